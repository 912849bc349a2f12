package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"urbannest/internal/app"
	"urbannest/internal/domain"
	"urbannest/internal/storage/memory"
)

// ---- fakes ----

type fakeNotifier struct {
	mu    sync.Mutex
	kinds []domain.NotifyKind
	texts []string
}

func (n *fakeNotifier) Notify(kind domain.NotifyKind, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	n.texts = append(n.texts, text)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.kinds)
}

func (n *fakeNotifier) last() (domain.NotifyKind, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.kinds) == 0 {
		return "", ""
	}
	return n.kinds[len(n.kinds)-1], n.texts[len(n.kinds)-1]
}

// slowStore wraps the memory store and parks Delete until released, to
// exercise the controller's duplicate-submission guard.
type slowStore struct {
	*memory.Store
	entered chan struct{} // closed when the first Delete is reached
	gate    chan struct{}
	once    sync.Once
}

func (s *slowStore) Delete(ctx context.Context, id, actorID string) (domain.Review, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.gate
	return s.Store.Delete(ctx, id, actorID)
}

func newService(t *testing.T) (*app.ReviewService, *memory.Store, *fakeNotifier) {
	t.Helper()
	store := memory.New(0)
	n := &fakeNotifier{}
	return app.NewReviewService(store, app.NewRatingService(store), n), store, n
}

// ---- tests ----

func TestSubmitNew_SuccessRefreshesSummary(t *testing.T) {
	svc, _, n := newService(t)

	res, err := svc.SubmitNew(context.Background(), 10, 4, "a lovely place, would stay again", domain.Author{UserID: "u1", UserName: "Ana"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.Review.ID == "" || res.Review.Rating != 4 {
		t.Fatalf("unexpected review: %+v", res.Review)
	}
	if res.Summary.Count != 1 || res.Summary.Average != 4.0 {
		t.Fatalf("summary not refreshed: %+v", res.Summary)
	}
	if n.count() != 1 {
		t.Fatalf("expected exactly one notification, got %d", n.count())
	}
	if kind, _ := n.last(); kind != domain.NotifySuccess {
		t.Fatalf("expected success notification")
	}
}

func TestSubmitNew_ValidationFailure_NoStateChange(t *testing.T) {
	svc, store, n := newService(t)
	ctx := context.Background()

	_, err := svc.SubmitNew(ctx, 10, 9, "long enough to reach the rating check", domain.Author{UserID: "u1"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Kind != domain.RatingOutOfRange {
		t.Fatalf("expected RatingOutOfRange, got %v", err)
	}

	rs, _ := store.ListByProperty(ctx, 10)
	if len(rs) != 0 {
		t.Fatalf("store must be unchanged, got %d reviews", len(rs))
	}
	if n.count() != 1 {
		t.Fatalf("expected exactly one notification, got %d", n.count())
	}
	if kind, text := n.last(); kind != domain.NotifyError || text == "" {
		t.Fatalf("expected error notification with message")
	}
}

func TestSubmitEdit_OwnershipEnforced(t *testing.T) {
	svc, _, n := newService(t)
	ctx := context.Background()

	res, err := svc.SubmitNew(ctx, 1, 3, "the original comment for this test", domain.Author{UserID: "u1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	five := 5
	_, err = svc.SubmitEdit(ctx, res.Review.ID, domain.Author{UserID: "intruder"}, domain.ReviewPatch{Rating: &five})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if kind, _ := n.last(); kind != domain.NotifyError {
		t.Fatalf("expected error notification")
	}
}

func TestSubmitEdit_CommentOnly(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	res, err := svc.SubmitNew(ctx, 1, 3, "the original comment for this test", domain.Author{UserID: "u1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	edited := "the edited comment for this test"
	out, err := svc.SubmitEdit(ctx, res.Review.ID, domain.Author{UserID: "u1"}, domain.ReviewPatch{Comment: &edited})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if out.Review.Rating != 3 {
		t.Fatalf("rating must survive a comment-only edit, got %d", out.Review.Rating)
	}
	if out.Review.Comment != edited {
		t.Fatalf("comment not applied: %q", out.Review.Comment)
	}
}

func TestRemove_RequiresConfirmation(t *testing.T) {
	svc, store, n := newService(t)
	ctx := context.Background()

	res, err := svc.SubmitNew(ctx, 1, 5, "this review is about to be deleted", domain.Author{UserID: "u1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := n.count()

	_, err = svc.Remove(ctx, res.Review.ID, "u1", false)
	if !errors.Is(err, domain.ErrConfirmRequired) {
		t.Fatalf("expected ErrConfirmRequired, got %v", err)
	}
	if _, err := store.GetByID(ctx, res.Review.ID); err != nil {
		t.Fatalf("unconfirmed remove must not delete: %v", err)
	}
	if n.count() != before {
		t.Fatalf("the confirm prompt is not a failure, no notification expected")
	}

	out, err := svc.Remove(ctx, res.Review.ID, "u1", true)
	if err != nil {
		t.Fatalf("confirmed remove: %v", err)
	}
	if out.Review.ID != res.Review.ID {
		t.Fatalf("expected removed review back")
	}
	if out.Summary.Count != 0 {
		t.Fatalf("summary must drop the deleted review: %+v", out.Summary)
	}
}

func TestRemove_DoubleClickDeduplicated(t *testing.T) {
	base := memory.New(0)
	slow := &slowStore{Store: base, entered: make(chan struct{}), gate: make(chan struct{})}
	n := &fakeNotifier{}
	svc := app.NewReviewService(slow, app.NewRatingService(base), n)
	ctx := context.Background()

	seeded, err := base.Create(ctx, domain.ReviewInput{
		PropertyID: 2,
		Author:     domain.Author{UserID: "u1"},
		Rating:     4,
		Comment:    "double click me and see what happens",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Remove(ctx, seeded.ID, "u1", true)
		firstDone <- err
	}()

	// second click while the first is still persisting
	select {
	case <-slow.entered:
	case <-time.After(time.Second):
		t.Fatalf("first remove never reached the store")
	}
	if _, err := svc.Remove(ctx, seeded.ID, "u1", true); !errors.Is(err, domain.ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	close(slow.gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first remove should win: %v", err)
	}

	// after the first completes, a further attempt is NotFound
	if _, err := svc.Remove(ctx, seeded.ID, "u1", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after successful delete, got %v", err)
	}
}

func TestRemove_SequentialDoubleDelete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	res, err := svc.SubmitNew(ctx, 1, 4, "delete once, then try deleting again", domain.Author{UserID: "u1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Remove(ctx, res.Review.ID, "u1", true); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if _, err := svc.Remove(ctx, res.Review.ID, "u1", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
