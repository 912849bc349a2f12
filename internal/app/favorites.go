package app

import (
	"context"
	"sync"

	"urbannest/internal/domain"
)

// FavoriteService toggles a user's saved properties and broadcasts the new
// count to subscribers. Interested observers subscribe explicitly; there is
// no ambient event bus.
type FavoriteService struct {
	store    domain.FavoriteStore
	notifier domain.Notifier

	mu   sync.Mutex
	subs map[string]map[chan int]struct{} // userID -> subscriber channels
}

func NewFavoriteService(store domain.FavoriteStore, n domain.Notifier) *FavoriteService {
	return &FavoriteService{
		store:    store,
		notifier: n,
		subs:     map[string]map[chan int]struct{}{},
	}
}

// Toggle saves the property if it is not in the user's favorites, removes it
// if it is, and reports whether it is saved afterwards.
func (s *FavoriteService) Toggle(ctx context.Context, userID string, propertyID int64) (bool, error) {
	favs, err := s.store.ListFavorites(ctx, userID)
	if err != nil {
		return false, err
	}
	saved := false
	for _, f := range favs {
		if f.PropertyID == propertyID {
			saved = true
			break
		}
	}

	if saved {
		if err := s.store.RemoveFavorite(ctx, userID, propertyID); err != nil {
			s.notifier.Notify(domain.NotifyError, "Could not update favorites")
			return true, err
		}
		s.notifier.Notify(domain.NotifySuccess, "Removed from favorites")
	} else {
		if err := s.store.AddFavorite(ctx, userID, propertyID); err != nil {
			s.notifier.Notify(domain.NotifyError, "Could not update favorites")
			return false, err
		}
		s.notifier.Notify(domain.NotifySuccess, "Added to favorites")
	}

	if n, err := s.store.CountFavorites(ctx, userID); err == nil {
		s.publish(userID, n)
	}
	return !saved, nil
}

func (s *FavoriteService) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	return s.store.ListFavorites(ctx, userID)
}

func (s *FavoriteService) Count(ctx context.Context, userID string) (int, error) {
	return s.store.CountFavorites(ctx, userID)
}

// Subscribe returns a channel receiving the user's favorite count after each
// change, plus a cancel func. The channel is buffered; a subscriber that
// falls behind misses intermediate counts, never blocks a toggle.
func (s *FavoriteService) Subscribe(userID string) (<-chan int, func()) {
	ch := make(chan int, 1)
	s.mu.Lock()
	m := s.subs[userID]
	if m == nil {
		m = map[chan int]struct{}{}
		s.subs[userID] = m
	}
	m[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if m, ok := s.subs[userID]; ok {
			delete(m, ch)
			if len(m) == 0 {
				delete(s.subs, userID)
			}
		}
	}
	return ch, cancel
}

func (s *FavoriteService) publish(userID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[userID] {
		select {
		case ch <- count:
		default:
			// drop the stale tick, replace with the newest count
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- count:
			default:
			}
		}
	}
}
