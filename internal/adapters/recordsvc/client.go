package recordsvc

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"urbannest/internal/adapters/observability"
)

// Client talks to a hosted record service: generic tables queried with
// field-list/filter/order-by objects, mutated by id. The wire shapes follow
// the backend, not us.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Query is the generic record-service query object.
type Query struct {
	Fields      []string         `json:"fields,omitempty"`
	Where       []Condition      `json:"where,omitempty"`
	WhereGroups []ConditionGroup `json:"whereGroups,omitempty"`
	OrderBy     []Sort           `json:"orderBy,omitempty"`
	Limit       int              `json:"limit,omitempty"`
	Offset      int              `json:"offset,omitempty"`
}

type Condition struct {
	FieldName string `json:"fieldName"`
	Operator  string `json:"operator"` // EqualTo|Contains|GreaterThanOrEqualTo|LessThanOrEqualTo|ExactMatch
	Values    []any  `json:"values"`
}

// ConditionGroup joins conditions with an explicit operator; top-level Where
// entries are always ANDed by the service.
type ConditionGroup struct {
	Operator   string      `json:"operator"` // AND|OR
	Conditions []Condition `json:"conditions"`
}

type Sort struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sortType"` // ASC|DESC
}

// envelope is the service's uniform success/data/message response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

var (
	ErrNotFound     = errors.New("recordsvc: not found")
	ErrUnauthorized = errors.New("recordsvc: unauthorized")
	ErrForbidden    = errors.New("recordsvc: forbidden")
)

func (c *Client) FetchRecords(ctx context.Context, table string, q Query, out any) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("%s/tables/%s/query", c.base, table), q, out)
}

func (c *Client) GetRecordByID(ctx context.Context, table, id string, out any) error {
	return c.call(ctx, http.MethodGet, fmt.Sprintf("%s/tables/%s/records/%s", c.base, table, id), nil, out)
}

func (c *Client) CreateRecord(ctx context.Context, table string, fields any, out any) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("%s/tables/%s/records", c.base, table), fields, out)
}

func (c *Client) UpdateRecord(ctx context.Context, table, id string, fields any, out any) error {
	return c.call(ctx, http.MethodPatch, fmt.Sprintf("%s/tables/%s/records/%s", c.base, table, id), fields, out)
}

func (c *Client) DeleteRecord(ctx context.Context, table, id string) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("%s/tables/%s/records/%s", c.base, table, id), nil, nil)
}

// call performs a request with client-side rate limiting, retries, and JSON
// decode of the success envelope into out. Retries on 429 and transient 5xx,
// honoring Retry-After when provided.
func (c *Client) call(ctx context.Context, method, url string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	start := time.Now()
	endpoint := method + " " + pathOf(url)

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("User-Agent", "urbannest/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := decodeEnvelope(resp.Body, out)
			resp.Body.Close()
			observability.ObserveExternal("recordsvc", endpoint, resp.StatusCode, time.Since(start))
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			observability.ObserveExternal("recordsvc", endpoint, resp.StatusCode, time.Since(start))
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			observability.ObserveExternal("recordsvc", endpoint, resp.StatusCode, time.Since(start))
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			observability.ObserveExternal("recordsvc", endpoint, resp.StatusCode, time.Since(start))
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			observability.ObserveExternal("recordsvc", endpoint, resp.StatusCode, time.Since(start))
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal("recordsvc", endpoint, resp.StatusCode, time.Since(start))
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			observability.ObserveExternal("recordsvc", endpoint, resp.StatusCode, time.Since(start))
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// decodeEnvelope unwraps the success/data/message shape. A well-formed 200
// with success=false is a service-level failure and carries its own message.
func decodeEnvelope(r io.Reader, out any) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return err
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "record service reported failure"
		}
		if strings.Contains(strings.ToLower(msg), "not found") {
			return ErrNotFound
		}
		return errors.New(msg)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func pathOf(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		if j := strings.IndexByte(url[i+3:], '/'); j >= 0 {
			return url[i+3+j:]
		}
	}
	return url
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
