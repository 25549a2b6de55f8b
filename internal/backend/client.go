// Package backend is the HTTP client for the remote chat service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "chatpanel/backend"

// StatusError is returned when the service answers with a non-2xx status
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

// Error implements error
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: API error: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: API error: %s - %s", e.Op, e.Status, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client talks to the remote chat service
type Client struct {
	mu      sync.RWMutex
	baseURL string

	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	duration   metric.Float64Histogram
	failures   metric.Int64Counter
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTracer sets the tracer used for request spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// WithMeter sets the meter used for request metrics
func WithMeter(meter metric.Meter) Option {
	return func(c *Client) { c.initMetrics(meter) }
}

// NewClient creates a Client for the service at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    normalizeBaseURL(baseURL),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
		tracer:     otel.Tracer(instrumentationName),
	}
	c.initMetrics(otel.Meter(instrumentationName))

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) initMetrics(meter metric.Meter) {
	histogram, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err == nil {
		c.duration = histogram
	}

	counter, err := meter.Int64Counter(
		"chatpanel.api.errors",
		metric.WithDescription("Failed requests to the chat service"),
	)
	if err == nil {
		c.failures = counter
	}
}

func normalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// BaseURL returns the service address requests are sent to
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL repoints the client at another service address
func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = normalizeBaseURL(u)
}

// Health probes GET /health. Any 2xx counts as healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

// CreateSession requests a new session id, optionally seeded with a system prompt
func (c *Client) CreateSession(ctx context.Context, systemPrompt string) (string, error) {
	var resp CreateSessionResponse
	req := CreateSessionRequest{SystemPrompt: systemPrompt}
	if err := c.do(ctx, "create_session", http.MethodPost, "/session/create", req, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("create_session: empty session_id in response")
	}
	return resp.SessionID, nil
}

// Chat sends a user message in the given session and returns the bot reply
func (c *Client) Chat(ctx context.Context, sessionID, message string) (string, error) {
	var resp ChatResponse
	req := ChatRequest{Message: message, SessionID: sessionID}
	if err := c.do(ctx, "chat", http.MethodPost, "/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// History fetches the service's message list for a session
func (c *Client) History(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	var resp HistoryResponse
	if err := c.do(ctx, "history", http.MethodGet, "/history/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SessionInfo fetches session metadata
func (c *Client) SessionInfo(ctx context.Context, sessionID string) (SessionInfo, error) {
	var resp SessionInfo
	if err := c.do(ctx, "session_info", http.MethodGet, "/session/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return SessionInfo{}, err
	}
	return resp, nil
}

// do issues one request, decoding a JSON body into out when out is non-nil
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "chat_service."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	requestID := uuid.NewString()
	defer func() {
		c.record(ctx, op, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Warn("chat service request failed", "op", op, "request_id", requestID, "error", err)
		} else {
			c.logger.Debug("chat service request", "op", op, "request_id", requestID,
				"duration_ms", time.Since(start).Milliseconds())
		}
	}()

	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: failed to unmarshal response: %w", op, err)
	}
	return nil
}

func (c *Client) record(ctx context.Context, op string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	if c.duration != nil {
		c.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}
	if err != nil && c.failures != nil {
		c.failures.Add(ctx, 1, attrs)
	}
}
