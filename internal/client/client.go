// Package client talks to a running cashpulse daemon over its HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/cashpulse/internal/daemon"
	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 16 << 20
)

var (
	// ErrUnauthorized indicates the daemon requires a token, or rejected ours.
	ErrUnauthorized = errors.New("client: unauthorized (missing or invalid token)")
	// ErrNotFound indicates the requested household is unknown to the daemon.
	ErrNotFound = errors.New("client: not found")
	// ErrUnreachable indicates the daemon could not be contacted.
	ErrUnreachable = errors.New("client: daemon unreachable")
)

// NotFoundError carries the daemon's "did you mean" hints. It matches
// ErrNotFound with errors.Is.
type NotFoundError struct {
	HouseholdID string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("household %q not found", e.HouseholdID)
	}
	return fmt.Sprintf("household %q not found (did you mean %s?)", e.HouseholdID, strings.Join(e.Suggestions, ", "))
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Client calls the daemon API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for addr, which may be "host:port" or a full URL.
// token is sent as a bearer token when non-empty.
func New(addr, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(addr), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http:    &http.Client{},
	}
}

// Healthy reports whether /healthz answers.
func (c *Client) Healthy(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, "")
	return err
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (*daemon.Status, error) {
	var st daemon.Status
	if err := c.getJSON(ctx, "/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Households fetches the ranked household list, optionally one band only.
func (c *Client) Households(ctx context.Context, class model.Classification) ([]model.HouseholdScore, error) {
	path := "/v1/households"
	if class != "" {
		path += "?class=" + url.QueryEscape(string(class))
	}
	var rows []model.HouseholdScore
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Household fetches the latest full result for one household.
func (c *Client) Household(ctx context.Context, id string) (*model.FinancialHealthResult, error) {
	var r model.FinancialHealthResult
	err := c.getJSON(ctx, "/v1/households/"+url.PathEscape(id), &r)
	var nf *NotFoundError
	if errors.As(err, &nf) {
		nf.HouseholdID = id
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Events fetches buffered events newer than since.
func (c *Client) Events(ctx context.Context, since int64) ([]daemon.Event, error) {
	var events []daemon.Event
	if err := c.getJSON(ctx, "/v1/events?since="+strconv.FormatInt(since, 10), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Score asks the daemon to score a snapshot JSON document without storing
// it. A zero asOf anchors on the latest transaction.
func (c *Client) Score(ctx context.Context, snapshot io.Reader, asOf time.Time) (*model.FinancialHealthResult, error) {
	path := "/v1/score"
	if !asOf.IsZero() {
		path += "?as_of=" + asOf.Format("2006-01")
	}
	body, err := c.do(ctx, http.MethodPost, path, snapshot, "application/json")
	if err != nil {
		return nil, err
	}
	var r model.FinancialHealthResult
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("client: parsing score: %w", err)
	}
	return &r, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("client: parsing %s: %w", path, err)
	}
	return nil
}

// do performs a request and returns the response body, mapping error
// statuses onto the package's sentinel errors.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("client: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("client: reading response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	var er daemon.ErrorResponse
	_ = json.Unmarshal(data, &er)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, &NotFoundError{Suggestions: er.Suggestions}
	case http.StatusUnprocessableEntity:
		if er.Validation != nil {
			return nil, er.Validation
		}
	}
	if er.Error != "" {
		return nil, fmt.Errorf("client: %s (HTTP %d)", er.Error, resp.StatusCode)
	}
	return nil, fmt.Errorf("client: unexpected status %d", resp.StatusCode)
}

// IsValidation reports whether err is a snapshot the daemon rejected.
func IsValidation(err error) bool {
	var ve *health.ValidationError
	return errors.As(err, &ve)
}
