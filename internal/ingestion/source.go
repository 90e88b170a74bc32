package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mr1hm/pulsemap/internal/models"
)

// maxBodyBytes bounds how much of an upstream response is read.
const maxBodyBytes = 64 << 20

// Source fetches one upstream feed and normalizes it into events of a single
// type, already filtered, ranked and truncated to the source's cap.
type Source interface {
	Type() models.EventType
	Fetch(ctx context.Context) ([]models.Event, error)
}

// FetchError covers transport failures, timeouts, non-2xx responses and
// undecodable bodies. The source yields nothing for that refresh.
type FetchError struct {
	Source models.EventType
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError describes a single upstream record that was dropped.
type ParseError struct {
	Source models.EventType
	Record string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("skip %s record %q: %s", e.Source, e.Record, e.Reason)
}

// Client is the HTTP client shared by every source.
type Client struct {
	http      *http.Client
	userAgent string
	onSkip    func(*ParseError)
}

// NewClient builds a traced HTTP client. onSkip, when set, is called for
// every record a source drops.
func NewClient(timeout time.Duration, userAgent string, onSkip func(*ParseError)) *Client {
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: userAgent,
		onSkip:    onSkip,
	}
}

func (c *Client) get(ctx context.Context, source models.EventType, url, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Source: source, Err: fmt.Errorf("error creating request: %w", err)}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Source: source, Err: fmt.Errorf("error while doing request: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &FetchError{Source: source, Err: fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)}
	}

	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxBodyBytes), resp.Body}, nil
}

func (c *Client) getJSON(ctx context.Context, source models.EventType, url string, v any) error {
	body, err := c.get(ctx, source, url, "application/geo+json, application/json")
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return &FetchError{Source: source, Err: fmt.Errorf("error decoding response body: %w", err)}
	}
	return nil
}

func (c *Client) skip(source models.EventType, record, reason string) {
	err := &ParseError{Source: source, Record: record, Reason: reason}
	slog.Debug("record skipped", "source", source, "record", record, "reason", reason)
	if c.onSkip != nil {
		c.onSkip(err)
	}
}

// byTimeDesc sorts newest first.
func byTimeDesc(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.After(events[j].Time)
	})
}

func truncate(events []models.Event, limit int) []models.Event {
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}

func floatPtr(f float64) *float64 {
	return &f
}
