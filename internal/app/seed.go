package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"urbannest/internal/domain"
)

// SeedService loads the JSON fixtures into a backend. Properties go first so
// review rows have a parent; per-item failures are logged and skipped.
type SeedService struct {
	properties domain.PropertyStore
	reviews    domain.ReviewStore
	workers    int
}

func NewSeedService(p domain.PropertyStore, r domain.ReviewStore, workers int) *SeedService {
	if workers <= 0 {
		workers = 4
	}
	return &SeedService{properties: p, reviews: r, workers: workers}
}

type propertyFixture struct {
	ID           int64    `json:"Id"`
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
	YearBuilt    *int     `json:"yearBuilt"`
	Parking      *string  `json:"parking"`
	PetFriendly  bool     `json:"petFriendly"`
	DateListed   string   `json:"dateListed"`
	ContactName  *string  `json:"contactName"`
	ContactPhone *string  `json:"contactPhone"`
	ContactEmail *string  `json:"contactEmail"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

type reviewFixture struct {
	ID         int64  `json:"Id"`
	PropertyID int64  `json:"propertyId"`
	UserID     int64  `json:"userId"`
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatar"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	Date       string `json:"date"`
}

func (s *SeedService) Run(ctx context.Context, dir string) error {
	var props []propertyFixture
	if err := readFixture(filepath.Join(dir, "properties.json"), &props); err != nil {
		return err
	}
	var revs []reviewFixture
	if err := readFixture(filepath.Join(dir, "reviews.json"), &revs); err != nil {
		return err
	}

	sem := semaphore.NewWeighted(int64(s.workers))
	var wg sync.WaitGroup

	for _, pf := range props {
		pf := pf
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			if err := s.properties.UpsertProperty(ctx, pf.toDomain()); err != nil {
				log.Warn().Int64("id", pf.ID).Err(err).Msg("seed property failed")
				return
			}
			log.Info().Int64("id", pf.ID).Msg("seed property ok")
		}()
	}
	wg.Wait()

	// reviews after all properties, still bounded by the same semaphore
	for _, rf := range revs {
		rf := rf
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			_, err := s.reviews.Create(ctx, domain.ReviewInput{
				PropertyID: rf.PropertyID,
				Author: domain.Author{
					UserID:     "user-" + strconv.FormatInt(rf.UserID, 10),
					UserName:   rf.UserName,
					UserAvatar: rf.UserAvatar,
				},
				Rating:  rf.Rating,
				Comment: rf.Comment,
			})
			if err != nil {
				log.Warn().Int64("id", rf.ID).Err(err).Msg("seed review failed")
				return
			}
			log.Info().Int64("id", rf.ID).Msg("seed review ok")
		}()
	}
	wg.Wait()
	return nil
}

func (f propertyFixture) toDomain() domain.Property {
	listed, err := time.Parse(time.RFC3339, f.DateListed)
	if err != nil {
		listed = time.Now().UTC()
	}
	return domain.Property{
		ID:           f.ID,
		Title:        f.Title,
		Address:      f.Address,
		City:         f.City,
		State:        f.State,
		ZipCode:      f.ZipCode,
		Price:        f.Price,
		Bedrooms:     f.Bedrooms,
		Bathrooms:    f.Bathrooms,
		SquareFeet:   f.SquareFeet,
		PropertyType: f.PropertyType,
		ListingType:  f.ListingType,
		Description:  f.Description,
		Images:       f.Images,
		Amenities:    f.Amenities,
		YearBuilt:    f.YearBuilt,
		Parking:      f.Parking,
		PetFriendly:  f.PetFriendly,
		DateListed:   listed,
		ContactName:  f.ContactName,
		ContactPhone: f.ContactPhone,
		ContactEmail: f.ContactEmail,
		Lat:          f.Latitude,
		Lon:          f.Longitude,
	}
}

func readFixture(path string, dst any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
