package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// APIError is a non-2xx answer from the schedule API.  Message is the
// server's error text, which the store shows to the admin as is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("schedule api: status %d", e.Status)
	}
	return e.Message
}

// Client calls the admin schedule endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the API at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends the request and decodes the response into out, which is
// either the whole body or, for {success, data} envelopes, the data.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("schedule api: marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("schedule api: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("schedule api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("schedule api: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		c.logger.Debug("schedule api error", "method", method, "path", path, "status", resp.StatusCode, "error", e.Error)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("schedule api: decode response: %w", err)
	}
	return nil
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// WeekOverview fetches the seven day summaries starting at weekStart.
// An empty weekStart lets the server pick the current week.
func (c *Client) WeekOverview(ctx context.Context, weekStart string) ([]model.DayOverview, error) {
	q := url.Values{"action": {"get_week_overview"}}
	if weekStart != "" {
		q.Set("week_start", weekStart)
	}
	var env envelope[[]model.DayOverview]
	if err := c.do(ctx, http.MethodGet, "/api/admin/schedule?"+q.Encode(), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// DaySlots fetches every slot on date.
func (c *Client) DaySlots(ctx context.Context, date string) ([]model.Slot, error) {
	q := url.Values{"action": {"get_day_slots"}, "date": {date}}
	var env envelope[[]model.Slot]
	if err := c.do(ctx, http.MethodGet, "/api/admin/schedule?"+q.Encode(), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) ToggleWorkingDay(ctx context.Context, date string, working bool) error {
	return c.do(ctx, http.MethodPost, "/api/admin/schedule", map[string]any{
		"action":     "toggle_working_day",
		"date":       date,
		"is_working": working,
	}, nil)
}

func (c *Client) AddSlot(ctx context.Context, in SlotInput) error {
	return c.do(ctx, http.MethodPost, "/api/admin/schedule", struct {
		Action string `json:"action"`
		SlotInput
	}{Action: "add_slot", SlotInput: in}, nil)
}

func (c *Client) DeleteSlot(ctx context.Context, slotID string) error {
	return c.do(ctx, http.MethodPost, "/api/admin/schedule", map[string]any{
		"action":  "delete_slot",
		"slot_id": slotID,
	}, nil)
}

// CheckUpdates asks whether anything in the week changed after lastSync.
func (c *Client) CheckUpdates(ctx context.Context, lastSync time.Time, weekStart string) (bool, error) {
	body := map[string]any{"weekStart": weekStart}
	if !lastSync.IsZero() {
		body["lastSync"] = lastSync.UTC().Format(time.RFC3339Nano)
	}
	var out struct {
		HasUpdates bool `json:"hasUpdates"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/schedule/check-updates", body, &out); err != nil {
		return false, err
	}
	return out.HasUpdates, nil
}
