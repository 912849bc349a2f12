//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "urbannest/internal/adapters/http_server"
	redisad "urbannest/internal/adapters/redis"
	"urbannest/internal/app"
	"urbannest/internal/domain"
	mysqlrepo "urbannest/internal/storage/mysql"
)

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

type toastRecorder struct{ texts []string }

func (n *toastRecorder) Notify(_ domain.NotifyKind, text string) { n.texts = append(n.texts, text) }

// ---------- the test ----------
func TestHTTP_EndToEnd_ReviewWorkflow(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=urbannest",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "urbannest")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// Apply the real migrations
	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	propID := int64(33003)
	if err := repo.UpsertProperty(ctx, domain.Property{
		ID:           propID,
		Title:        "E2E Terrace Flat",
		Address:      "1 Test Way",
		City:         "Denver",
		State:        "CO",
		ZipCode:      "80202",
		Price:        1975,
		Bedrooms:     1,
		Bathrooms:    1,
		SquareFeet:   700,
		PropertyType: "apartment",
		ListingType:  "rent",
		Images:       []string{},
		Amenities:    []string{},
		DateListed:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("UpsertProperty: %v", err)
	}

	// Full stack: chi server, services, redis cache, mysql repo.
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	toasts := &toastRecorder{}

	rating := app.NewRatingService(repo)
	reviews := app.NewReviewService(repo, rating, toasts)
	favorites := app.NewFavoriteService(repo, toasts)
	queries := app.NewPropertyQueryService(repo, cache, time.Minute)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Properties: queries,
		Reviews:    reviews,
		Rating:     rating,
		Favorites:  favorites,
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	post := func(path, body string) (*http.Response, map[string]any) {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
		req.Header.Set("X-User-ID", "user-e2e")
		req.Header.Set("X-User-Name", "E2E Tester")
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		defer res.Body.Close()
		var out map[string]any
		_ = json.NewDecoder(res.Body).Decode(&out)
		return res, out
	}

	// Create a review through the API
	res, body := post(fmt.Sprintf("/v1/properties/%d/reviews", propID),
		`{"rating":5,"comment":"The terrace gets sun the whole afternoon."}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", res.StatusCode)
	}
	reviewID := body["review"].(map[string]any)["id"].(string)
	if reviewID == "" {
		t.Fatal("no review id returned")
	}

	// The summary returned with the mutation reflects the new row
	summary := body["summary"].(map[string]any)
	if summary["average"].(float64) != 5.0 || summary["count"].(float64) != 1 {
		t.Fatalf("summary after create: %v", summary)
	}

	// A second reviewer shifts the fresh aggregate
	req, _ := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/v1/properties/%d/reviews", ts.URL, propID),
		strings.NewReader(`{"rating":2,"comment":"The elevator was out both times I visited."}`))
	req.Header.Set("X-User-ID", "user-other")
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	res2.Body.Close()
	if res2.StatusCode != http.StatusCreated {
		t.Fatalf("second create status %d", res2.StatusCode)
	}

	res3, err := http.Get(fmt.Sprintf("%s/v1/properties/%d/rating", ts.URL, propID))
	if err != nil {
		t.Fatalf("GET rating: %v", err)
	}
	defer res3.Body.Close()
	var sum struct {
		Average float64 `json:"average"`
		Count   int     `json:"count"`
	}
	if err := json.NewDecoder(res3.Body).Decode(&sum); err != nil {
		t.Fatalf("decode rating: %v", err)
	}
	if sum.Average != 3.5 || sum.Count != 2 {
		t.Fatalf("rating = %+v, want average 3.5 count 2", sum)
	}

	// Two-phase delete through the API
	del, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/reviews/"+reviewID, nil)
	del.Header.Set("X-User-ID", "user-e2e")
	res4, err := http.DefaultClient.Do(del)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	res4.Body.Close()
	if res4.StatusCode != http.StatusConflict {
		t.Fatalf("unconfirmed delete status %d, want 409", res4.StatusCode)
	}

	del2, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/reviews/"+reviewID+"?confirm=true", nil)
	del2.Header.Set("X-User-ID", "user-e2e")
	res5, err := http.DefaultClient.Do(del2)
	if err != nil {
		t.Fatalf("confirmed DELETE: %v", err)
	}
	res5.Body.Close()
	if res5.StatusCode != http.StatusOK {
		t.Fatalf("confirmed delete status %d", res5.StatusCode)
	}

	if len(toasts.texts) == 0 {
		t.Fatal("expected user-facing notifications for the mutations")
	}
}
