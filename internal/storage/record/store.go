package record

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"urbannest/internal/adapters/recordsvc"
	"urbannest/internal/domain"
)

const (
	propertyTable = "property_c"
	reviewTable   = "review_c"
	favoriteTable = "favorite_c"
)

// Store adapts the hosted record service to the storage ports. Field names
// carry the service's _c suffix convention; everything else speaks domain types.
type Store struct{ c *recordsvc.Client }

func New(c *recordsvc.Client) *Store { return &Store{c: c} }

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, recordsvc.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, recordsvc.ErrUnauthorized), errors.Is(err, recordsvc.ErrForbidden):
		return domain.ErrStorageUnavailable
	default:
		return err
	}
}

// ---- review rows ----

type reviewRow struct {
	ID         int64  `json:"Id"`
	PropertyID int64  `json:"property_id_c"`
	UserID     string `json:"user_id_c"`
	UserName   string `json:"user_name_c"`
	UserAvatar string `json:"user_avatar_c"`
	Rating     int    `json:"rating_c"`
	Comment    string `json:"comment_c"`
	UpdatedAt  string `json:"updated_at_c"`
}

var reviewFields = []string{
	"Id", "property_id_c", "user_id_c", "user_name_c", "user_avatar_c",
	"rating_c", "comment_c", "updated_at_c",
}

func (row reviewRow) toDomain() domain.Review {
	ts, _ := time.Parse(time.RFC3339Nano, row.UpdatedAt)
	return domain.Review{
		ID:         strconv.FormatInt(row.ID, 10),
		PropertyID: row.PropertyID,
		UserID:     row.UserID,
		UserName:   row.UserName,
		UserAvatar: row.UserAvatar,
		Rating:     row.Rating,
		Comment:    row.Comment,
		UpdatedAt:  ts,
	}
}

func reviewID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, domain.ErrNotFound
	}
	return n, nil
}

// ---- ReviewStore ----

func (s *Store) ListByProperty(ctx context.Context, propertyID int64) ([]domain.Review, error) {
	return s.listReviews(ctx, recordsvc.Condition{
		FieldName: "property_id_c", Operator: "EqualTo", Values: []any{propertyID},
	})
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	return s.listReviews(ctx, recordsvc.Condition{
		FieldName: "user_id_c", Operator: "EqualTo", Values: []any{userID},
	})
}

func (s *Store) listReviews(ctx context.Context, cond recordsvc.Condition) ([]domain.Review, error) {
	var rows []reviewRow
	q := recordsvc.Query{
		Fields: reviewFields,
		Where:  []recordsvc.Condition{cond},
		OrderBy: []recordsvc.Sort{
			{FieldName: "updated_at_c", SortType: "DESC"},
			{FieldName: "Id", SortType: "DESC"},
		},
	}
	if err := s.c.FetchRecords(ctx, reviewTable, q, &rows); err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (domain.Review, error) {
	n, err := reviewID(id)
	if err != nil {
		return domain.Review{}, err
	}
	var row reviewRow
	if err := s.c.GetRecordByID(ctx, reviewTable, strconv.FormatInt(n, 10), &row); err != nil {
		return domain.Review{}, mapErr(err)
	}
	return row.toDomain(), nil
}

func (s *Store) Create(ctx context.Context, in domain.ReviewInput) (domain.Review, error) {
	if verr := domain.ValidateForCreate(in); verr != nil {
		return domain.Review{}, verr
	}
	now := time.Now().UTC()
	fields := map[string]any{
		"property_id_c": in.PropertyID,
		"user_id_c":     in.Author.UserID,
		"user_name_c":   in.Author.UserName,
		"user_avatar_c": in.Author.UserAvatar,
		"rating_c":      in.Rating,
		"comment_c":     strings.TrimSpace(in.Comment),
		"updated_at_c":  now.Format(time.RFC3339Nano),
	}
	var row reviewRow
	if err := s.c.CreateRecord(ctx, reviewTable, fields, &row); err != nil {
		return domain.Review{}, mapErr(err)
	}
	return row.toDomain(), nil
}

func (s *Store) Update(ctx context.Context, id, actorID string, patch domain.ReviewPatch) (domain.Review, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Review{}, err
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

	fields := map[string]any{
		"rating_c":     merged.Rating,
		"comment_c":    merged.Comment,
		"updated_at_c": merged.UpdatedAt.Format(time.RFC3339Nano),
	}
	var row reviewRow
	if err := s.c.UpdateRecord(ctx, reviewTable, id, fields, &row); err != nil {
		return domain.Review{}, mapErr(err)
	}
	return merged, nil
}

func (s *Store) Delete(ctx context.Context, id, actorID string) (domain.Review, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if cur.UserID != actorID {
		return domain.Review{}, domain.ErrForbidden
	}
	if err := s.c.DeleteRecord(ctx, reviewTable, id); err != nil {
		return domain.Review{}, mapErr(err)
	}
	return cur, nil
}

// ---- property rows ----

type propertyRow struct {
	ID           int64    `json:"Id"`
	Title        string   `json:"title_c"`
	Address      string   `json:"address_c"`
	City         string   `json:"city_c"`
	State        string   `json:"state_c"`
	ZipCode      string   `json:"zip_code_c"`
	Price        float64  `json:"price_c"`
	Bedrooms     int      `json:"bedrooms_c"`
	Bathrooms    float64  `json:"bathrooms_c"`
	SquareFeet   int      `json:"square_feet_c"`
	PropertyType string   `json:"property_type_c"`
	ListingType  string   `json:"listing_type_c"`
	Description  string   `json:"description_c"`
	Images       string   `json:"images_c"`    // newline separated
	Amenities    string   `json:"amenities_c"` // newline separated
	YearBuilt    *int     `json:"year_built_c"`
	Parking      *string  `json:"parking_c"`
	PetFriendly  bool     `json:"pet_friendly_c"`
	DateListed   int64    `json:"date_listed_timestamp_c"` // unix seconds
	ContactName  *string  `json:"contact_name_c"`
	ContactPhone *string  `json:"contact_phone_c"`
	ContactEmail *string  `json:"contact_email_c"`
	Latitude     *float64 `json:"latitude_c"`
	Longitude    *float64 `json:"longitude_c"`
}

var propertyFields = []string{
	"Id", "title_c", "address_c", "city_c", "state_c", "zip_code_c", "price_c",
	"bedrooms_c", "bathrooms_c", "square_feet_c", "property_type_c",
	"listing_type_c", "description_c", "images_c", "amenities_c", "year_built_c",
	"parking_c", "pet_friendly_c", "date_listed_timestamp_c", "contact_name_c",
	"contact_phone_c", "contact_email_c", "latitude_c", "longitude_c",
}

func (row propertyRow) toDomain() domain.Property {
	return domain.Property{
		ID:           row.ID,
		Title:        row.Title,
		Address:      row.Address,
		City:         row.City,
		State:        row.State,
		ZipCode:      row.ZipCode,
		Price:        row.Price,
		Bedrooms:     row.Bedrooms,
		Bathrooms:    row.Bathrooms,
		SquareFeet:   row.SquareFeet,
		PropertyType: row.PropertyType,
		ListingType:  row.ListingType,
		Description:  row.Description,
		Images:       splitLines(row.Images),
		Amenities:    splitLines(row.Amenities),
		YearBuilt:    row.YearBuilt,
		Parking:      row.Parking,
		PetFriendly:  row.PetFriendly,
		DateListed:   time.Unix(row.DateListed, 0).UTC(),
		ContactName:  row.ContactName,
		ContactPhone: row.ContactPhone,
		ContactEmail: row.ContactEmail,
		Lat:          row.Latitude,
		Lon:          row.Longitude,
	}
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func joinLines(ss []string) string { return strings.Join(ss, "\n") }

// ---- PropertyStore ----

func (s *Store) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	var row propertyRow
	if err := s.c.GetRecordByID(ctx, propertyTable, strconv.FormatInt(id, 10), &row); err != nil {
		return domain.Property{}, mapErr(err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListProperties(ctx context.Context, limit int) (domain.PropertiesPage, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.fetchProperties(ctx, recordsvc.Query{Fields: propertyFields, Limit: limit})
}

func (s *Store) SearchProperties(ctx context.Context, q domain.PropertySearch) (domain.PropertiesPage, error) {
	var where []recordsvc.Condition
	var groups []recordsvc.ConditionGroup

	if q.Query != nil && strings.TrimSpace(*q.Query) != "" {
		needle := strings.TrimSpace(*q.Query)
		groups = append(groups, recordsvc.ConditionGroup{
			Operator: "OR",
			Conditions: []recordsvc.Condition{
				{FieldName: "title_c", Operator: "Contains", Values: []any{needle}},
				{FieldName: "city_c", Operator: "Contains", Values: []any{needle}},
				{FieldName: "address_c", Operator: "Contains", Values: []any{needle}},
				{FieldName: "state_c", Operator: "Contains", Values: []any{needle}},
			},
		})
	}
	if q.PriceMin != nil {
		where = append(where, recordsvc.Condition{FieldName: "price_c", Operator: "GreaterThanOrEqualTo", Values: []any{*q.PriceMin}})
	}
	if q.PriceMax != nil {
		where = append(where, recordsvc.Condition{FieldName: "price_c", Operator: "LessThanOrEqualTo", Values: []any{*q.PriceMax}})
	}
	if q.Bedrooms != nil {
		where = append(where, recordsvc.Condition{FieldName: "bedrooms_c", Operator: "GreaterThanOrEqualTo", Values: []any{*q.Bedrooms}})
	}
	if q.Bathrooms != nil {
		where = append(where, recordsvc.Condition{FieldName: "bathrooms_c", Operator: "GreaterThanOrEqualTo", Values: []any{*q.Bathrooms}})
	}
	if q.SquareFeetMin != nil {
		where = append(where, recordsvc.Condition{FieldName: "square_feet_c", Operator: "GreaterThanOrEqualTo", Values: []any{*q.SquareFeetMin}})
	}
	if q.SquareFeetMax != nil {
		where = append(where, recordsvc.Condition{FieldName: "square_feet_c", Operator: "LessThanOrEqualTo", Values: []any{*q.SquareFeetMax}})
	}
	if len(q.PropertyTypes) > 0 {
		where = append(where, recordsvc.Condition{FieldName: "property_type_c", Operator: "ExactMatch", Values: anySlice(q.PropertyTypes)})
	}
	if len(q.ListingTypes) > 0 {
		where = append(where, recordsvc.Condition{FieldName: "listing_type_c", Operator: "ExactMatch", Values: anySlice(q.ListingTypes)})
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	return s.fetchProperties(ctx, recordsvc.Query{
		Fields:      propertyFields,
		Where:       where,
		WhereGroups: groups,
		Limit:       limit,
	})
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func (s *Store) fetchProperties(ctx context.Context, q recordsvc.Query) (domain.PropertiesPage, error) {
	var rows []propertyRow
	if err := s.c.FetchRecords(ctx, propertyTable, q, &rows); err != nil {
		return domain.PropertiesPage{}, mapErr(err)
	}
	out := make([]domain.Property, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return domain.PropertiesPage{Items: out}, nil
}

func (s *Store) UpsertProperty(ctx context.Context, p domain.Property) error {
	fields := map[string]any{
		"title_c":                 p.Title,
		"address_c":               p.Address,
		"city_c":                  p.City,
		"state_c":                 p.State,
		"zip_code_c":              p.ZipCode,
		"price_c":                 p.Price,
		"bedrooms_c":              p.Bedrooms,
		"bathrooms_c":             p.Bathrooms,
		"square_feet_c":           p.SquareFeet,
		"property_type_c":         p.PropertyType,
		"listing_type_c":          p.ListingType,
		"description_c":           p.Description,
		"images_c":                joinLines(p.Images),
		"amenities_c":             joinLines(p.Amenities),
		"pet_friendly_c":          p.PetFriendly,
		"date_listed_timestamp_c": p.DateListed.Unix(),
	}
	if p.YearBuilt != nil {
		fields["year_built_c"] = *p.YearBuilt
	}
	if p.Parking != nil {
		fields["parking_c"] = *p.Parking
	}
	if p.ContactName != nil {
		fields["contact_name_c"] = *p.ContactName
	}
	if p.ContactPhone != nil {
		fields["contact_phone_c"] = *p.ContactPhone
	}
	if p.ContactEmail != nil {
		fields["contact_email_c"] = *p.ContactEmail
	}
	if p.Lat != nil {
		fields["latitude_c"] = *p.Lat
	}
	if p.Lon != nil {
		fields["longitude_c"] = *p.Lon
	}

	// the service updates by record id when it already exists
	err := s.c.UpdateRecord(ctx, propertyTable, strconv.FormatInt(p.ID, 10), fields, nil)
	if errors.Is(err, recordsvc.ErrNotFound) {
		fields["Id"] = p.ID
		return mapErr(s.c.CreateRecord(ctx, propertyTable, fields, nil))
	}
	return mapErr(err)
}

// ---- FavoriteStore ----

type favoriteRow struct {
	ID         int64  `json:"Id"`
	UserID     string `json:"user_id_c"`
	PropertyID int64  `json:"property_id_c"`
	SavedAt    string `json:"saved_at_c"`
}

var favoriteFields = []string{"Id", "user_id_c", "property_id_c", "saved_at_c"}

func (s *Store) findFavorite(ctx context.Context, userID string, propertyID int64) (*favoriteRow, error) {
	var rows []favoriteRow
	q := recordsvc.Query{
		Fields: favoriteFields,
		Where: []recordsvc.Condition{
			{FieldName: "user_id_c", Operator: "EqualTo", Values: []any{userID}},
			{FieldName: "property_id_c", Operator: "EqualTo", Values: []any{propertyID}},
		},
		Limit: 1,
	}
	if err := s.c.FetchRecords(ctx, favoriteTable, q, &rows); err != nil {
		return nil, mapErr(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *Store) AddFavorite(ctx context.Context, userID string, propertyID int64) error {
	existing, err := s.findFavorite(ctx, userID, propertyID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	fields := map[string]any{
		"user_id_c":     userID,
		"property_id_c": propertyID,
		"saved_at_c":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	return mapErr(s.c.CreateRecord(ctx, favoriteTable, fields, nil))
}

func (s *Store) RemoveFavorite(ctx context.Context, userID string, propertyID int64) error {
	existing, err := s.findFavorite(ctx, userID, propertyID)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return mapErr(s.c.DeleteRecord(ctx, favoriteTable, strconv.FormatInt(existing.ID, 10)))
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	var rows []favoriteRow
	q := recordsvc.Query{
		Fields: favoriteFields,
		Where: []recordsvc.Condition{
			{FieldName: "user_id_c", Operator: "EqualTo", Values: []any{userID}},
		},
		OrderBy: []recordsvc.Sort{{FieldName: "saved_at_c", SortType: "DESC"}},
	}
	if err := s.c.FetchRecords(ctx, favoriteTable, q, &rows); err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.Favorite, 0, len(rows))
	for _, row := range rows {
		ts, _ := time.Parse(time.RFC3339Nano, row.SavedAt)
		out = append(out, domain.Favorite{UserID: row.UserID, PropertyID: row.PropertyID, SavedAt: ts})
	}
	return out, nil
}

func (s *Store) CountFavorites(ctx context.Context, userID string) (int, error) {
	favs, err := s.ListFavorites(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(favs), nil
}
