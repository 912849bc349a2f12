package domain

import "time"

// Review is one user's rating+comment for one property. The author fields
// are a snapshot taken at submission time, not a live user reference.
type Review struct {
	ID         string
	PropertyID int64
	UserID     string
	UserName   string
	UserAvatar string
	Rating     int
	Comment    string
	UpdatedAt  time.Time // refreshed on every update; no separate creation stamp
}

type Author struct {
	UserID     string
	UserName   string
	UserAvatar string
}

type ReviewInput struct {
	PropertyID int64
	Author     Author
	Rating     int
	Comment    string
}

// ReviewPatch carries the fields an update may touch. Nil means "leave as is".
type ReviewPatch struct {
	Rating  *int
	Comment *string
}

// RatingSummary is derived on demand from the live review set and never stored.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
