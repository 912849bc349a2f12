package app

import (
	"context"
	"math"

	"urbannest/internal/domain"
)

// RatingService derives a property's rating summary from the live review
// set. It is computed fresh on every call: any component may mutate the
// store, so a cached aggregate could silently go stale.
type RatingService struct {
	reviews domain.ReviewStore
}

func NewRatingService(r domain.ReviewStore) *RatingService {
	return &RatingService{reviews: r}
}

func (s *RatingService) Summarize(ctx context.Context, propertyID int64) (domain.RatingSummary, error) {
	rs, err := s.reviews.ListByProperty(ctx, propertyID)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	if len(rs) == 0 {
		return domain.RatingSummary{Average: 0, Count: 0}, nil
	}
	sum := 0
	for _, r := range rs {
		sum += r.Rating
	}
	mean := float64(sum) / float64(len(rs))
	// one decimal, half away from zero: 1.666... -> 1.7, 4.25 -> 4.3
	return domain.RatingSummary{
		Average: math.Round(mean*10) / 10,
		Count:   len(rs),
	}, nil
}
