package app_test

import (
	"context"
	"testing"

	"urbannest/internal/app"
	"urbannest/internal/domain"
	"urbannest/internal/storage/memory"
)

func seedRatings(t *testing.T, s *memory.Store, propertyID int64, ratings ...int) {
	t.Helper()
	for i, r := range ratings {
		_, err := s.Create(context.Background(), domain.ReviewInput{
			PropertyID: propertyID,
			Author:     domain.Author{UserID: "u" + string(rune('a'+i)), UserName: "User"},
			Rating:     r,
			Comment:    "a review comment long enough to pass",
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestSummarize_Empty(t *testing.T) {
	store := memory.New(0)
	svc := app.NewRatingService(store)

	got, err := svc.Summarize(context.Background(), 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Average != 0 || got.Count != 0 {
		t.Fatalf("expected {0 0}, got %+v", got)
	}
}

func TestSummarize_Rounding(t *testing.T) {
	cases := []struct {
		ratings []int
		average float64
	}{
		{[]int{4, 5, 3}, 4.0},
		{[]int{4, 5}, 4.5},
		{[]int{1, 2, 2}, 1.7}, // 1.666... rounds half away from zero
		{[]int{5}, 5.0},
		{[]int{1, 4}, 2.5},
	}
	for _, c := range cases {
		store := memory.New(0)
		seedRatings(t, store, 7, c.ratings...)
		svc := app.NewRatingService(store)

		got, err := svc.Summarize(context.Background(), 7)
		if err != nil {
			t.Fatalf("ratings %v: %v", c.ratings, err)
		}
		if got.Average != c.average || got.Count != len(c.ratings) {
			t.Fatalf("ratings %v: expected {%v %d}, got %+v", c.ratings, c.average, len(c.ratings), got)
		}
	}
}

func TestSummarize_AlwaysFresh(t *testing.T) {
	store := memory.New(0)
	seedRatings(t, store, 3, 4, 5, 3)
	svc := app.NewRatingService(store)
	ctx := context.Background()

	first, err := svc.Summarize(ctx, 3)
	if err != nil || first.Count != 3 {
		t.Fatalf("first: %+v err=%v", first, err)
	}

	// delete one behind the aggregator's back; next call must reflect it
	rs, _ := store.ListByProperty(ctx, 3)
	if _, err := store.Delete(ctx, rs[0].ID, rs[0].UserID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	second, err := svc.Summarize(ctx, 3)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Count != 2 {
		t.Fatalf("expected count 2 after delete, got %+v", second)
	}
}
