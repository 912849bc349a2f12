package domain

import "context"

// ReviewStore owns review records. Mutations validate before touching state:
// a failed create/update/delete leaves the prior state fully intact.
// Update and Delete reject callers who are not the stored author.
type ReviewStore interface {
	ListByProperty(ctx context.Context, propertyID int64) ([]Review, error)
	ListByUser(ctx context.Context, userID string) ([]Review, error)
	GetByID(ctx context.Context, id string) (Review, error)
	Create(ctx context.Context, in ReviewInput) (Review, error)
	Update(ctx context.Context, id, actorID string, patch ReviewPatch) (Review, error)
	Delete(ctx context.Context, id, actorID string) (Review, error)
}

type PropertyStore interface {
	GetProperty(ctx context.Context, id int64) (Property, error)
	ListProperties(ctx context.Context, limit int) (PropertiesPage, error)
	SearchProperties(ctx context.Context, q PropertySearch) (PropertiesPage, error)
	UpsertProperty(ctx context.Context, p Property) error
}

type FavoriteStore interface {
	AddFavorite(ctx context.Context, userID string, propertyID int64) error
	RemoveFavorite(ctx context.Context, userID string, propertyID int64) error
	ListFavorites(ctx context.Context, userID string) ([]Favorite, error)
	CountFavorites(ctx context.Context, userID string) (int, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type NotifyKind string

const (
	NotifySuccess NotifyKind = "success"
	NotifyError   NotifyKind = "error"
)

// Notifier is the user-facing message side channel. The presentation layer
// owns how (and whether) the text is displayed.
type Notifier interface {
	Notify(kind NotifyKind, text string)
}
