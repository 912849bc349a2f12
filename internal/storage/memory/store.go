package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"urbannest/internal/domain"
)

// Store keeps the full data set in process memory. It backs local
// development and tests, seeded from the JSON fixtures, and can simulate
// backend latency so UI flows behave like they do against the real service.
type Store struct {
	mu         sync.Mutex
	delay      time.Duration
	properties map[int64]domain.Property
	reviews    map[string]domain.Review
	favorites  map[string]map[int64]time.Time
}

func New(delay time.Duration) *Store {
	return &Store{
		delay:      delay,
		properties: map[int64]domain.Property{},
		reviews:    map[string]domain.Review{},
		favorites:  map[string]map[int64]time.Time{},
	}
}

// wait simulates one backend round-trip, honoring cancellation.
func (s *Store) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ---- ReviewStore ----

func (s *Store) ListByProperty(ctx context.Context, propertyID int64) ([]domain.Review, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.PropertyID == propertyID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (domain.Review, error) {
	if err := s.wait(ctx); err != nil {
		return domain.Review{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) Create(ctx context.Context, in domain.ReviewInput) (domain.Review, error) {
	if err := s.wait(ctx); err != nil {
		return domain.Review{}, err
	}
	if verr := domain.ValidateForCreate(in); verr != nil {
		return domain.Review{}, verr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := domain.Review{
		ID:         uuid.NewString(), // never reused, even after deletion
		PropertyID: in.PropertyID,
		UserID:     in.Author.UserID,
		UserName:   in.Author.UserName,
		UserAvatar: in.Author.UserAvatar,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		UpdatedAt:  time.Now().UTC(),
	}
	s.reviews[r.ID] = r
	return r, nil
}

func (s *Store) Update(ctx context.Context, id, actorID string, patch domain.ReviewPatch) (domain.Review, error) {
	if err := s.wait(ctx); err != nil {
		return domain.Review{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	if cur.UserID != actorID {
		return domain.Review{}, domain.ErrForbidden
	}
	merged := cur
	if patch.Rating != nil {
		merged.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		merged.Comment = strings.TrimSpace(*patch.Comment)
	}
	if verr := domain.ValidateForUpdate(patch, merged); verr != nil {
		return domain.Review{}, verr
	}
	merged.UpdatedAt = time.Now().UTC()
	s.reviews[id] = merged
	return merged, nil
}

func (s *Store) Delete(ctx context.Context, id, actorID string) (domain.Review, error) {
	if err := s.wait(ctx); err != nil {
		return domain.Review{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	if cur.UserID != actorID {
		return domain.Review{}, domain.ErrForbidden
	}
	delete(s.reviews, id)
	return cur, nil
}

// Newest first; ties broken by id so ordering is stable across runs.
func sortNewestFirst(rs []domain.Review) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].UpdatedAt.Equal(rs[j].UpdatedAt) {
			return rs[i].UpdatedAt.After(rs[j].UpdatedAt)
		}
		return rs[i].ID > rs[j].ID
	})
}

// ---- PropertyStore ----

func (s *Store) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	if err := s.wait(ctx); err != nil {
		return domain.Property{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProperties(ctx context.Context, limit int) (domain.PropertiesPage, error) {
	if err := s.wait(ctx); err != nil {
		return domain.PropertiesPage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Property, 0, len(s.properties))
	for _, p := range s.properties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return domain.PropertiesPage{Items: out}, nil
}

func (s *Store) SearchProperties(ctx context.Context, q domain.PropertySearch) (domain.PropertiesPage, error) {
	if err := s.wait(ctx); err != nil {
		return domain.PropertiesPage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Property
	for _, p := range s.properties {
		if matches(p, q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return domain.PropertiesPage{Items: out}, nil
}

func matches(p domain.Property, q domain.PropertySearch) bool {
	if q.Query != nil {
		needle := strings.ToLower(*q.Query)
		hay := strings.ToLower(p.Title + " " + p.City + " " + p.Address + " " + p.State)
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	if q.PriceMin != nil && p.Price < *q.PriceMin {
		return false
	}
	if q.PriceMax != nil && p.Price > *q.PriceMax {
		return false
	}
	if q.Bedrooms != nil && p.Bedrooms < *q.Bedrooms {
		return false
	}
	if q.Bathrooms != nil && p.Bathrooms < *q.Bathrooms {
		return false
	}
	if q.SquareFeetMin != nil && p.SquareFeet < *q.SquareFeetMin {
		return false
	}
	if q.SquareFeetMax != nil && p.SquareFeet > *q.SquareFeetMax {
		return false
	}
	if len(q.PropertyTypes) > 0 && !contains(q.PropertyTypes, p.PropertyType) {
		return false
	}
	if len(q.ListingTypes) > 0 && !contains(q.ListingTypes, p.ListingType) {
		return false
	}
	return true
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func (s *Store) UpsertProperty(ctx context.Context, p domain.Property) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = p
	return nil
}

// SeedReview inserts a fixture review as-is, keeping its id and timestamp.
func (s *Store) SeedReview(r domain.Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[r.ID] = r
}

// ---- FavoriteStore ----

func (s *Store) AddFavorite(ctx context.Context, userID string, propertyID int64) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[propertyID]; !ok {
		return domain.ErrNotFound
	}
	m := s.favorites[userID]
	if m == nil {
		m = map[int64]time.Time{}
		s.favorites[userID] = m
	}
	if _, ok := m[propertyID]; !ok {
		m[propertyID] = time.Now().UTC()
	}
	return nil
}

func (s *Store) RemoveFavorite(ctx context.Context, userID string, propertyID int64) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.favorites[userID]
	if m == nil {
		return domain.ErrNotFound
	}
	if _, ok := m[propertyID]; !ok {
		return domain.ErrNotFound
	}
	delete(m, propertyID)
	return nil
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Favorite
	for pid, at := range s.favorites[userID] {
		out = append(out, domain.Favorite{UserID: userID, PropertyID: pid, SavedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].PropertyID > out[j].PropertyID
	})
	return out, nil
}

func (s *Store) CountFavorites(ctx context.Context, userID string) (int, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.favorites[userID]), nil
}
