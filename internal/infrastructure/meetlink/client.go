// Package meetlink talks to the external meeting provider that mints video
// call links for confirmed appointments.  The provider is optional: callers
// treat a failure as "no link" and carry on.
package meetlink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// MeetingRequest describes the meeting to create.
type MeetingRequest struct {
	AppointmentID string    `json:"appointment_id"`
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	HostName      string    `json:"host_name"`
	ViewerName    string    `json:"viewer_name"`
}

// Provider creates meeting links.
type Provider interface {
	CreateMeeting(ctx context.Context, req MeetingRequest) (string, error)
}

// NopProvider never creates a link.
type NopProvider struct{}

func (NopProvider) CreateMeeting(context.Context, MeetingRequest) (string, error) { return "", nil }

// Config configures the HTTP provider client.
type Config struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

// Client is the HTTP Provider.
type Client struct {
	endpoint     string
	token        string
	timeout      time.Duration
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	httpClient   *http.Client
	metrics      *prometheus.AppMetrics
	logger       logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryWait sets the backoff bounds between attempts.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		if min > 0 && max >= min {
			c.retryWaitMin, c.retryWaitMax = min, max
		}
	}
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient validates cfg and returns a provider client.
func NewClient(cfg Config, logger logging.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Validation("meetlink: endpoint must be an absolute http(s) URL").WithDetail(cfg.Endpoint)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	c := &Client{
		endpoint:     u.String(),
		token:        cfg.Token,
		timeout:      cfg.Timeout,
		retryMax:     cfg.MaxRetries,
		retryWaitMin: 200 * time.Millisecond,
		retryWaitMax: 2 * time.Second,
		httpClient:   &http.Client{},
		logger:       logger.Named("meetlink"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type meetingResponse struct {
	URL string `json:"url"`
}

// CreateMeeting posts req to the provider and returns the meeting URL.  Every
// call carries a fresh Idempotency-Key shared by its retries; the key never
// appears in the returned link or anywhere else in the appointment.
func (c *Client) CreateMeeting(ctx context.Context, req MeetingRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "meetlink: encode request")
	}
	idempotencyKey := uuid.New().String()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Debug("retrying meeting creation",
				logging.Int("attempt", attempt),
				logging.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		link, retry, err := c.attempt(ctx, body, idempotencyKey)
		if err == nil {
			prometheus.RecordMeetLinkCall(c.metrics, time.Since(start), nil)
			return link, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}

	prometheus.RecordMeetLinkCall(c.metrics, time.Since(start), lastErr)
	c.logger.Warn("meeting creation failed",
		logging.String("appointment_id", req.AppointmentID),
		logging.Err(lastErr))
	return "", lastErr
}

// attempt performs one request bounded by the per-call timeout.  retry reports
// whether the failure is transient.
func (c *Client) attempt(ctx context.Context, body []byte, idempotencyKey string) (link string, retry bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrCodeMeetLinkFailed, "meetlink: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	httpReq.Header.Set("X-Request-ID", uuid.New().String())
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", true, errors.Wrap(err, errors.ErrCodeMeetLinkFailed, "meetlink: request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, errors.Wrap(err, errors.ErrCodeMeetLinkFailed, "meetlink: read response")
	}

	if resp.StatusCode >= 300 {
		transient := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", transient, errors.New(errors.ErrCodeMeetLinkFailed, "meetlink: provider rejected request").
			WithDetail(fmt.Sprintf("status=%d body=%q", resp.StatusCode, truncate(string(raw), 200)))
	}

	var out meetingResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", false, errors.Wrap(err, errors.ErrCodeMeetLinkFailed, "meetlink: decode response")
	}
	if strings.TrimSpace(out.URL) == "" {
		return "", false, errors.New(errors.ErrCodeMeetLinkFailed, "meetlink: provider returned no url")
	}
	return strings.TrimSpace(out.URL), false, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if d > c.retryWaitMax {
		d = c.retryWaitMax
	}
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int63n(q))
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

//Personal.AI order the ending
