package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"urbannest/internal/app"
	"urbannest/internal/domain"
)

type Handlers struct {
	Properties *app.PropertyQueryService
	Reviews    *app.ReviewService
	Rating     *app.RatingService
	Favorites  *app.FavoriteService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/properties", h.listProperties)
	s.mux.Get("/v1/properties/search", h.searchProperties)
	s.mux.Get("/v1/properties/{id}", h.getProperty)
	s.mux.Get("/v1/properties/{id}/reviews", h.listReviews)
	s.mux.Get("/v1/properties/{id}/rating", h.getRating)
	s.mux.Post("/v1/properties/{id}/reviews", h.createReview)
	s.mux.Patch("/v1/reviews/{id}", h.updateReview)
	s.mux.Delete("/v1/reviews/{id}", h.deleteReview)
	s.mux.Get("/v1/users/{id}/reviews", h.listUserReviews)
	s.mux.Get("/v1/users/{id}/favorites", h.listFavorites)
	s.mux.Post("/v1/users/{id}/favorites/{propertyID}", h.toggleFavorite)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the service error taxonomy onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblem(w, http.StatusBadRequest, "Validation Failed", verr.Message)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "item no longer exists")
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "only the author may change this review")
	case errors.Is(err, domain.ErrInFlight):
		writeProblem(w, http.StatusConflict, "Already In Progress", "this submission is already being processed")
	case errors.Is(err, domain.ErrConfirmRequired):
		writeProblem(w, http.StatusConflict, "Confirmation Required", "repeat the request with confirm=true to delete")
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "Storage Unavailable", "please retry shortly")
	default:
		log.Error().Err(err).Msg("unhandled service error")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCachedJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// actor reads the acting user's identity headers. The identity provider in
// front of this API is trusted to have authenticated them.
func actor(r *http.Request) (domain.Author, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		return domain.Author{}, false
	}
	return domain.Author{
		UserID:     id,
		UserName:   r.Header.Get("X-User-Name"),
		UserAvatar: r.Header.Get("X-User-Avatar"),
	}, true
}

// ---- DTOs ----

type propertyDTO struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zipCode"`
	Price        float64  `json:"price"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	SquareFeet   int      `json:"squareFeet"`
	PropertyType string   `json:"propertyType"`
	ListingType  string   `json:"listingType"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	Amenities    []string `json:"amenities"`
	YearBuilt    *int     `json:"yearBuilt,omitempty"`
	Parking      *string  `json:"parking,omitempty"`
	PetFriendly  bool     `json:"petFriendly"`
	DateListed   string   `json:"dateListed"`
	ContactName  *string  `json:"contactName,omitempty"`
	ContactPhone *string  `json:"contactPhone,omitempty"`
	ContactEmail *string  `json:"contactEmail,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

func toPropertyDTO(p domain.Property) propertyDTO {
	return propertyDTO{
		ID:           p.ID,
		Title:        p.Title,
		Address:      p.Address,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		Price:        p.Price,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		SquareFeet:   p.SquareFeet,
		PropertyType: p.PropertyType,
		ListingType:  p.ListingType,
		Description:  p.Description,
		Images:       p.Images,
		Amenities:    p.Amenities,
		YearBuilt:    p.YearBuilt,
		Parking:      p.Parking,
		PetFriendly:  p.PetFriendly,
		DateListed:   p.DateListed.UTC().Format(time.RFC3339),
		ContactName:  p.ContactName,
		ContactPhone: p.ContactPhone,
		ContactEmail: p.ContactEmail,
		Latitude:     p.Lat,
		Longitude:    p.Lon,
	}
}

type reviewDTO struct {
	ID         string `json:"id"`
	PropertyID int64  `json:"propertyId"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatar"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	UpdatedAt  string `json:"updatedAt"`
}

func toReviewDTO(r domain.Review) reviewDTO {
	return reviewDTO{
		ID:         r.ID,
		PropertyID: r.PropertyID,
		UserID:     r.UserID,
		UserName:   r.UserName,
		UserAvatar: r.UserAvatar,
		Rating:     r.Rating,
		Comment:    r.Comment,
		UpdatedAt:  r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toReviewDTOs(rs []domain.Review) []reviewDTO {
	out := make([]reviewDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReviewDTO(r))
	}
	return out
}

type mutationDTO struct {
	Review  reviewDTO            `json:"review"`
	Summary domain.RatingSummary `json:"summary"`
}

// ---- property handlers ----

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	p, err := h.Properties.GetProperty(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCachedJSON(w, r, toPropertyDTO(p))
}

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	page, err := h.Properties.ListProperties(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCachedJSON(w, r, propertiesBody(page))
}

func (h *Handlers) searchProperties(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearch(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	page, err := h.Properties.SearchProperties(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, propertiesBody(page))
}

func propertiesBody(page domain.PropertiesPage) map[string]any {
	items := make([]propertyDTO, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, toPropertyDTO(p))
	}
	return map[string]any{"items": items}
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := 100
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return 0, false
		}
		limit = l
	}
	return limit, true
}

func parseSearch(r *http.Request) (domain.PropertySearch, error) {
	var q domain.PropertySearch
	v := r.URL.Query()

	if s := v.Get("q"); s != "" {
		q.Query = &s
	}
	var err error
	if q.PriceMin, err = floatParam(v.Get("priceMin")); err != nil {
		return q, err
	}
	if q.PriceMax, err = floatParam(v.Get("priceMax")); err != nil {
		return q, err
	}
	if q.Bedrooms, err = intParam(v.Get("bedrooms")); err != nil {
		return q, err
	}
	if q.Bathrooms, err = floatParam(v.Get("bathrooms")); err != nil {
		return q, err
	}
	if q.SquareFeetMin, err = intParam(v.Get("sqftMin")); err != nil {
		return q, err
	}
	if q.SquareFeetMax, err = intParam(v.Get("sqftMax")); err != nil {
		return q, err
	}
	q.PropertyTypes = v["propertyType"]
	q.ListingTypes = v["listingType"]
	if l := v.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 || n > 200 {
			return q, errors.New("limit must be an integer between 1 and 200")
		}
		q.Limit = n
	}
	return q, nil
}

func floatParam(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("expected a number, got " + s)
	}
	return &f, nil
}

func intParam(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.New("expected an integer, got " + s)
	}
	return &n, nil
}

// ---- review handlers ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	rs, err := h.Reviews.ListByProperty(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCachedJSON(w, r, map[string]any{"items": toReviewDTOs(rs)})
}

func (h *Handlers) getRating(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	sum, err := h.Rating.Summarize(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	author, ok := actor(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing user identity")
		return
	}
	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected a JSON review")
		return
	}
	res, err := h.Reviews.SubmitNew(r.Context(), propertyID, body.Rating, body.Comment, author)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutationDTO{Review: toReviewDTO(res.Review), Summary: res.Summary})
}

func (h *Handlers) updateReview(w http.ResponseWriter, r *http.Request) {
	author, ok := actor(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing user identity")
		return
	}
	var body struct {
		Rating  *int    `json:"rating"`
		Comment *string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected a JSON review patch")
		return
	}
	res, err := h.Reviews.SubmitEdit(r.Context(), chi.URLParam(r, "id"), author,
		domain.ReviewPatch{Rating: body.Rating, Comment: body.Comment})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationDTO{Review: toReviewDTO(res.Review), Summary: res.Summary})
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	author, ok := actor(r)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing user identity")
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"
	res, err := h.Reviews.Remove(r.Context(), chi.URLParam(r, "id"), author.UserID, confirmed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationDTO{Review: toReviewDTO(res.Review), Summary: res.Summary})
}

func (h *Handlers) listUserReviews(w http.ResponseWriter, r *http.Request) {
	rs, err := h.Reviews.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCachedJSON(w, r, map[string]any{"items": toReviewDTOs(rs)})
}

// ---- favorite handlers ----

type favoriteDTO struct {
	PropertyID int64  `json:"propertyId"`
	SavedAt    string `json:"savedAt"`
}

func (h *Handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.Favorites.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]favoriteDTO, 0, len(favs))
	for _, f := range favs {
		items = append(items, favoriteDTO{PropertyID: f.PropertyID, SavedAt: f.SavedAt.UTC().Format(time.RFC3339Nano)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handlers) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	propertyID, err := strconv.ParseInt(chi.URLParam(r, "propertyID"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "property id must be a number")
		return
	}
	saved, err := h.Favorites.Toggle(r.Context(), userID, propertyID)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := h.Favorites.Count(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": saved, "count": count})
}
