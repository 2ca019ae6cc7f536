package serverapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nova/internal/model"
)

const (
	DefaultURL       = "http://localhost:3000"
	DefaultUserAgent = "nova-voice/1.0"
	defaultTimeout   = 10 * time.Second
)

// StatusError is a non-2xx answer from the server. Msg carries the
// "error" field of the body when there is one.
type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("server answered %d", e.Code)
	}
	return fmt.Sprintf("server answered %d: %s", e.Code, e.Msg)
}

// Client talks to nova-server over its JSON contract.
type Client struct {
	base      string
	userAgent string
	http      *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		base:      strings.TrimRight(baseURL, "/"),
		userAgent: DefaultUserAgent,
		http:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL is the server root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

// PostLog records one interaction. An empty timestamp lets the server stamp it.
func (c *Client) PostLog(ctx context.Context, e model.LogEntry) error {
	return c.do(ctx, http.MethodPost, "/log-data", e, nil)
}

func (c *Client) PostStatus(ctx context.Context, status string) error {
	return c.do(ctx, http.MethodPost, "/status", model.StatusRecord{Status: status}, nil)
}

func (c *Client) Status(ctx context.Context) (model.StatusRecord, error) {
	var rec model.StatusRecord
	err := c.do(ctx, http.MethodGet, "/status", nil, &rec)
	return rec, err
}

func (c *Client) Logs(ctx context.Context) ([]model.LogEntry, error) {
	var out []model.LogEntry
	err := c.do(ctx, http.MethodGet, "/logs", nil, &out)
	return out, err
}

// AddEvent creates a calendar event and returns it as stored.
func (c *Client) AddEvent(ctx context.Context, f model.EventFields) (model.CalendarEvent, error) {
	var resp struct {
		Event model.CalendarEvent `json:"event"`
	}
	err := c.do(ctx, http.MethodPost, "/calendar-events", f, &resp)
	return resp.Event, err
}

// Events lists the events of a month (0-11) and year.
func (c *Client) Events(ctx context.Context, month, year int) ([]model.CalendarEvent, error) {
	q := url.Values{}
	q.Set("month", strconv.Itoa(month))
	q.Set("year", strconv.Itoa(year))

	var out []model.CalendarEvent
	err := c.do(ctx, http.MethodGet, "/calendar-events?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/calendar-events/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &eb)
		return &StatusError{Code: resp.StatusCode, Msg: eb.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
