package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"urbannest/internal/domain"
	"urbannest/internal/storage/memory"
)

func author() domain.Author {
	return domain.Author{UserID: "u1", UserName: "Ana", UserAvatar: "A"}
}

func mustCreate(t *testing.T, s *memory.Store, propertyID int64, rating int, comment string) domain.Review {
	t.Helper()
	r, err := s.Create(context.Background(), domain.ReviewInput{
		PropertyID: propertyID, Author: author(), Rating: rating, Comment: comment,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return r
}

func TestCreate_Validates_NoPartialWrite(t *testing.T) {
	s := memory.New(0)
	ctx := context.Background()

	_, err := s.Create(ctx, domain.ReviewInput{PropertyID: 1, Author: author(), Rating: 9, Comment: "plenty long enough"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Kind != domain.RatingOutOfRange {
		t.Fatalf("expected RatingOutOfRange, got %v", err)
	}

	rs, err := s.ListByProperty(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rs) != 0 {
		t.Fatalf("failed create must not change the store, got %d reviews", len(rs))
	}
}

func TestListByProperty_NewestFirst(t *testing.T) {
	s := memory.New(0)
	ctx := context.Background()

	// seed out of order with explicit timestamps
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, off := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		s.SeedReview(domain.Review{
			ID: string(rune('a' + i)), PropertyID: 5, UserID: "u1",
			Rating: 4, Comment: "seeded fixture comment", UpdatedAt: base.Add(off),
		})
	}

	rs, err := s.ListByProperty(ctx, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rs) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(rs))
	}
	for i := 1; i < len(rs); i++ {
		if rs[i].UpdatedAt.After(rs[i-1].UpdatedAt) {
			t.Fatalf("not newest-first at %d: %v then %v", i, rs[i-1].UpdatedAt, rs[i].UpdatedAt)
		}
	}
}

func TestUpdate_PartialKeepsRating_RefreshesTimestamp(t *testing.T) {
	s := memory.New(0)
	ctx := context.Background()

	r := mustCreate(t, s, 3, 4, "original comment that is long enough")
	before := r.UpdatedAt

	newComment := "edited comment, still long enough"
	got, err := s.Update(ctx, r.ID, "u1", domain.ReviewPatch{Comment: &newComment})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Rating != 4 {
		t.Fatalf("rating must be untouched, got %d", got.Rating)
	}
	if got.Comment != newComment {
		t.Fatalf("comment not applied: %q", got.Comment)
	}
	if got.UpdatedAt.Before(before) {
		t.Fatalf("timestamp must be refreshed")
	}
}

func TestUpdate_RejectsNonAuthor(t *testing.T) {
	s := memory.New(0)
	r := mustCreate(t, s, 3, 4, "original comment that is long enough")

	five := 5
	_, err := s.Update(context.Background(), r.ID, "someone-else", domain.ReviewPatch{Rating: &five})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDelete_RemovesAndReturns(t *testing.T) {
	s := memory.New(0)
	ctx := context.Background()
	r := mustCreate(t, s, 2, 5, "a comment well over ten characters")

	removed, err := s.Delete(ctx, r.ID, "u1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed.ID != r.ID {
		t.Fatalf("expected removed review back, got %+v", removed)
	}

	if _, err := s.GetByID(ctx, r.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.Delete(ctx, r.ID, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete must be ErrNotFound, got %v", err)
	}
}

func TestCreate_IDsNeverReused(t *testing.T) {
	s := memory.New(0)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		r := mustCreate(t, s, 1, 3, "another comment long enough to pass")
		if seen[r.ID] {
			t.Fatalf("id %s reused", r.ID)
		}
		seen[r.ID] = true
		if _, err := s.Delete(ctx, r.ID, "u1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
}

func TestFavorites_AddListRemoveCount(t *testing.T) {
	s := memory.New(0)
	ctx := context.Background()
	if err := s.UpsertProperty(ctx, domain.Property{ID: 9, Title: "Casa"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := s.AddFavorite(ctx, "u1", 9); err != nil {
		t.Fatalf("add: %v", err)
	}
	// idempotent add
	if err := s.AddFavorite(ctx, "u1", 9); err != nil {
		t.Fatalf("add twice: %v", err)
	}
	n, err := s.CountFavorites(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("count=%d err=%v", n, err)
	}

	favs, err := s.ListFavorites(ctx, "u1")
	if err != nil || len(favs) != 1 || favs[0].PropertyID != 9 {
		t.Fatalf("list: %+v err=%v", favs, err)
	}

	if err := s.RemoveFavorite(ctx, "u1", 9); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveFavorite(ctx, "u1", 9); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestAddFavorite_UnknownProperty(t *testing.T) {
	s := memory.New(0)
	if err := s.AddFavorite(context.Background(), "u1", 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
