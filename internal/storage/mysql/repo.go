package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"urbannest/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- PropertyStore ----

func (r *Repo) UpsertProperty(ctx context.Context, p domain.Property) error {
	imgs, _ := json.Marshal(p.Images)
	amen, _ := json.Marshal(p.Amenities)
	_, err := r.db.ExecContext(ctx, upsertPropertySQL,
		p.ID,
		p.Title,
		p.Address,
		p.City,
		p.State,
		p.ZipCode,
		p.Price,
		p.Bedrooms,
		p.Bathrooms,
		p.SquareFeet,
		p.PropertyType,
		p.ListingType,
		p.Description,
		string(imgs),
		string(amen),
		valInt(p.YearBuilt),
		valStr(p.Parking),
		p.PetFriendly,
		p.DateListed,
		valStr(p.ContactName),
		valStr(p.ContactPhone),
		valStr(p.ContactEmail),
		valF64(p.Lat),
		valF64(p.Lon),
	)
	return err
}

func scanProperty(sc interface{ Scan(...any) error }) (domain.Property, error) {
	var p domain.Property
	var imagesJSON, amenitiesJSON []byte
	var yearBuilt sql.NullInt64
	var parking, contactName, contactPhone, contactEmail sql.NullString
	var lat, lon sql.NullFloat64

	if err := sc.Scan(
		&p.ID,
		&p.Title,
		&p.Address,
		&p.City,
		&p.State,
		&p.ZipCode,
		&p.Price,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.SquareFeet,
		&p.PropertyType,
		&p.ListingType,
		&p.Description,
		&imagesJSON,
		&amenitiesJSON,
		&yearBuilt,
		&parking,
		&p.PetFriendly,
		&p.DateListed,
		&contactName,
		&contactPhone,
		&contactEmail,
		&lat,
		&lon,
	); err != nil {
		return domain.Property{}, err
	}

	_ = json.Unmarshal(imagesJSON, &p.Images)
	_ = json.Unmarshal(amenitiesJSON, &p.Amenities)
	if yearBuilt.Valid {
		y := int(yearBuilt.Int64)
		p.YearBuilt = &y
	}
	if parking.Valid {
		s := parking.String
		p.Parking = &s
	}
	if contactName.Valid {
		s := contactName.String
		p.ContactName = &s
	}
	if contactPhone.Valid {
		s := contactPhone.String
		p.ContactPhone = &s
	}
	if contactEmail.Valid {
		s := contactEmail.String
		p.ContactEmail = &s
	}
	if lat.Valid {
		f := lat.Float64
		p.Lat = &f
	}
	if lon.Valid {
		f := lon.Float64
		p.Lon = &f
	}
	return p, nil
}

func (r *Repo) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, getPropertySQL, id))
	if err == sql.ErrNoRows {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProperties(ctx context.Context, limit int) (domain.PropertiesPage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, listPropertiesSQL, limit)
	if err != nil {
		return domain.PropertiesPage{}, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

func (r *Repo) SearchProperties(ctx context.Context, q domain.PropertySearch) (domain.PropertiesPage, error) {
	var where []string
	var args []any

	if q.Query != nil && strings.TrimSpace(*q.Query) != "" {
		like := "%" + strings.TrimSpace(*q.Query) + "%"
		where = append(where, "(title LIKE ? OR city LIKE ? OR address LIKE ? OR state LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if q.PriceMin != nil {
		where = append(where, "price >= ?")
		args = append(args, *q.PriceMin)
	}
	if q.PriceMax != nil {
		where = append(where, "price <= ?")
		args = append(args, *q.PriceMax)
	}
	if q.Bedrooms != nil {
		where = append(where, "bedrooms >= ?")
		args = append(args, *q.Bedrooms)
	}
	if q.Bathrooms != nil {
		where = append(where, "bathrooms >= ?")
		args = append(args, *q.Bathrooms)
	}
	if q.SquareFeetMin != nil {
		where = append(where, "square_feet >= ?")
		args = append(args, *q.SquareFeetMin)
	}
	if q.SquareFeetMax != nil {
		where = append(where, "square_feet <= ?")
		args = append(args, *q.SquareFeetMax)
	}
	if len(q.PropertyTypes) > 0 {
		where = append(where, "property_type IN ("+placeholders(len(q.PropertyTypes))+")")
		for _, t := range q.PropertyTypes {
			args = append(args, t)
		}
	}
	if len(q.ListingTypes) > 0 {
		where = append(where, "listing_type IN ("+placeholders(len(q.ListingTypes))+")")
		for _, t := range q.ListingTypes {
			args = append(args, t)
		}
	}

	sqlStr := "SELECT" + propertyColumns + "\nFROM properties"
	if len(where) > 0 {
		sqlStr += "\nWHERE " + strings.Join(where, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	sqlStr += "\nORDER BY id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return domain.PropertiesPage{}, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func collectProperties(rows *sql.Rows) (domain.PropertiesPage, error) {
	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return domain.PropertiesPage{}, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return domain.PropertiesPage{}, err
	}
	return domain.PropertiesPage{Items: out}, nil
}

// ---- ReviewStore ----

func scanReview(sc interface{ Scan(...any) error }) (domain.Review, error) {
	var rv domain.Review
	err := sc.Scan(
		&rv.ID,
		&rv.PropertyID,
		&rv.UserID,
		&rv.UserName,
		&rv.UserAvatar,
		&rv.Rating,
		&rv.Comment,
		&rv.UpdatedAt,
	)
	return rv, err
}

func (r *Repo) GetByID(ctx context.Context, id string) (domain.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id))
	if err == sql.ErrNoRows {
		return domain.Review{}, domain.ErrNotFound
	}
	return rv, err
}

func (r *Repo) ListByProperty(ctx context.Context, propertyID int64) ([]domain.Review, error) {
	return r.listReviews(ctx, listReviewsByPropertySQL, propertyID)
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	return r.listReviews(ctx, listReviewsByUserSQL, userID)
}

func (r *Repo) listReviews(ctx context.Context, query string, arg any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, in domain.ReviewInput) (domain.Review, error) {
	if verr := domain.ValidateForCreate(in); verr != nil {
		return domain.Review{}, verr
	}
	rv := domain.Review{
		ID:         uuid.NewString(),
		PropertyID: in.PropertyID,
		UserID:     in.Author.UserID,
		UserName:   in.Author.UserName,
		UserAvatar: in.Author.UserAvatar,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		UpdatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	_, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID, rv.PropertyID, rv.UserID, rv.UserName, rv.UserAvatar,
		rv.Rating, rv.Comment, rv.UpdatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

// Update merges the patch inside a transaction so the read-merge-write is not
// racing a concurrent mutation of the same row.
func (r *Repo) Update(ctx context.Context, id, actorID string, patch domain.ReviewPatch) (domain.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, err
	}
	defer tx.Rollback()

	cur, err := scanReview(tx.QueryRowContext(ctx, getReviewSQL+" FOR UPDATE", id))
	if err == sql.ErrNoRows {
		return domain.Review{}, domain.ErrNotFound
	}
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
	merged.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	if _, err := tx.ExecContext(ctx, updateReviewSQL, merged.Rating, merged.Comment, merged.UpdatedAt, id); err != nil {
		return domain.Review{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Review{}, err
	}
	return merged, nil
}

func (r *Repo) Delete(ctx context.Context, id, actorID string) (domain.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, err
	}
	defer tx.Rollback()

	cur, err := scanReview(tx.QueryRowContext(ctx, getReviewSQL+" FOR UPDATE", id))
	if err == sql.ErrNoRows {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, err
	}
	if cur.UserID != actorID {
		return domain.Review{}, domain.ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, deleteReviewSQL, id); err != nil {
		return domain.Review{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Review{}, err
	}
	return cur, nil
}

// ---- FavoriteStore ----

func (r *Repo) AddFavorite(ctx context.Context, userID string, propertyID int64) error {
	_, err := r.db.ExecContext(ctx, addFavoriteSQL, userID, propertyID)
	return err
}

func (r *Repo) RemoveFavorite(ctx context.Context, userID string, propertyID int64) error {
	res, err := r.db.ExecContext(ctx, removeFavoriteSQL, userID, propertyID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, listFavoritesSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.UserID, &f.PropertyID, &f.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) CountFavorites(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countFavoritesSQL, userID).Scan(&n)
	return n, err
}
