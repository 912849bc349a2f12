package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"urbannest/internal/adapters/observability"
	"urbannest/internal/domain"
)

// ReviewService sequences one user action: validate, persist, then refresh
// the property's rating summary. It also guards against duplicate in-flight
// submissions (double-click delete, repeated form posts) since the stores do
// not protect against those themselves.
type ReviewService struct {
	store    domain.ReviewStore
	rating   *RatingService
	notifier domain.Notifier

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewReviewService(store domain.ReviewStore, rating *RatingService, n domain.Notifier) *ReviewService {
	return &ReviewService{
		store:    store,
		rating:   rating,
		notifier: n,
		inFlight: map[string]struct{}{},
	}
}

// SubmitResult pairs the persisted review with the summary recomputed after
// the mutation, so callers can render new counts without a second round-trip.
type SubmitResult struct {
	Review  domain.Review
	Summary domain.RatingSummary
}

// begin marks key as persisting. The second caller for the same key loses.
func (s *ReviewService) begin(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return domain.ErrInFlight
	}
	s.inFlight[key] = struct{}{}
	return nil
}

func (s *ReviewService) end(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

func (s *ReviewService) SubmitNew(ctx context.Context, propertyID int64, rating int, comment string, author domain.Author) (SubmitResult, error) {
	key := fmt.Sprintf("create:%d:%s", propertyID, author.UserID)
	if err := s.begin(key); err != nil {
		observability.ObserveReview("create", "in_flight")
		return SubmitResult{}, err
	}
	defer s.end(key)

	rv, err := s.store.Create(ctx, domain.ReviewInput{
		PropertyID: propertyID,
		Author:     author,
		Rating:     rating,
		Comment:    comment,
	})
	if err != nil {
		s.fail("create", "Could not submit review", err)
		return SubmitResult{}, err
	}

	observability.ObserveReview("create", "ok")
	s.notifier.Notify(domain.NotifySuccess, "Review submitted")
	return SubmitResult{Review: rv, Summary: s.refresh(ctx, propertyID)}, nil
}

func (s *ReviewService) SubmitEdit(ctx context.Context, reviewID string, actor domain.Author, patch domain.ReviewPatch) (SubmitResult, error) {
	if err := s.begin(reviewID); err != nil {
		observability.ObserveReview("update", "in_flight")
		return SubmitResult{}, err
	}
	defer s.end(reviewID)

	rv, err := s.store.Update(ctx, reviewID, actor.UserID, patch)
	if err != nil {
		s.fail("update", "Could not update review", err)
		return SubmitResult{}, err
	}

	observability.ObserveReview("update", "ok")
	s.notifier.Notify(domain.NotifySuccess, "Review updated")
	return SubmitResult{Review: rv, Summary: s.refresh(ctx, rv.PropertyID)}, nil
}

// Remove is two-phase: the first, unconfirmed call performs no mutation and
// returns ErrConfirmRequired so the caller can show a confirmation prompt.
func (s *ReviewService) Remove(ctx context.Context, reviewID, actorID string, confirmed bool) (SubmitResult, error) {
	if !confirmed {
		return SubmitResult{}, domain.ErrConfirmRequired
	}
	if err := s.begin(reviewID); err != nil {
		observability.ObserveReview("delete", "in_flight")
		return SubmitResult{}, err
	}
	defer s.end(reviewID)

	rv, err := s.store.Delete(ctx, reviewID, actorID)
	if err != nil {
		s.fail("delete", "Could not delete review", err)
		return SubmitResult{}, err
	}

	observability.ObserveReview("delete", "ok")
	s.notifier.Notify(domain.NotifySuccess, "Review deleted")
	return SubmitResult{Review: rv, Summary: s.refresh(ctx, rv.PropertyID)}, nil
}

func (s *ReviewService) ListByProperty(ctx context.Context, propertyID int64) ([]domain.Review, error) {
	return s.store.ListByProperty(ctx, propertyID)
}

func (s *ReviewService) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	return s.store.ListByUser(ctx, userID)
}

// refresh recomputes the summary after a successful mutation. The mutation
// already happened, so a summary failure is logged rather than turned into a
// spurious operation error; the next read computes fresh anyway.
func (s *ReviewService) refresh(ctx context.Context, propertyID int64) domain.RatingSummary {
	sum, err := s.rating.Summarize(ctx, propertyID)
	if err != nil {
		log.Warn().Int64("property_id", propertyID).Err(err).Msg("summary refresh failed")
		return domain.RatingSummary{}
	}
	return sum
}

// fail emits exactly one user-facing message per failed operation.
func (s *ReviewService) fail(op, fallback string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		observability.ObserveReview(op, "validation")
		s.notifier.Notify(domain.NotifyError, verr.Message)
	case errors.Is(err, domain.ErrNotFound):
		observability.ObserveReview(op, "not_found")
		s.notifier.Notify(domain.NotifyError, "This review no longer exists")
	case errors.Is(err, domain.ErrForbidden):
		observability.ObserveReview(op, "forbidden")
		s.notifier.Notify(domain.NotifyError, "You can only change your own reviews")
	default:
		observability.ObserveReview(op, "error")
		s.notifier.Notify(domain.NotifyError, fallback)
	}
}
