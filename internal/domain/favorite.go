package domain

import "time"

type Favorite struct {
	UserID     string
	PropertyID int64
	SavedAt    time.Time
}
