package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"simtrack/pkg/platform/circuit"
)

var tracer = otel.Tracer("simtrack/authority")

const checkPath = "/check-simcard-status"

// wireResponse is the authority's raw response shape.
type wireResponse struct {
	Status   string  `json:"status"`
	IsSold   bool    `json:"is_sold"`
	SaleDate *string `json:"sale_date"`
	Message  string  `json:"message"`
}

// HTTPClient calls the authority over HTTP with a fixed request timeout and
// a circuit breaker. No retries happen here; retry policy belongs to the
// caller.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type Option func(c *HTTPClient)

func WithLogger(logger *slog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithHTTPClient overrides the underlying HTTP client, for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient constructs an authority client. timeout bounds every request
// so authority calls can never block the reconcile engine indefinitely.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: circuit.New("authority"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckStatus looks up one card code. Transport failures, timeouts, an open
// circuit, and non-success responses all fold into the synthetic error
// shape; the message distinguishes them for observability.
func (c *HTTPClient) CheckStatus(ctx context.Context, code string) Result {
	ctx, span := tracer.Start(ctx, "authority.CheckStatus")
	defer span.End()

	if c.breaker.IsOpen() {
		span.SetAttributes(attribute.Bool("authority.circuit_open", true))
		return ErrorResult("Failed to check status: authority circuit open")
	}

	result, failure := c.call(ctx, code)
	span.SetAttributes(attribute.String("authority.status", result.Status))
	if failure {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "authority circuit opened", "breaker", c.breaker.Name())
		}
		return result
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "authority circuit closed", "breaker", c.breaker.Name())
	}
	return result
}

func (c *HTTPClient) call(ctx context.Context, code string) (result Result, failure bool) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return ErrorResult(fmt.Sprintf("Failed to check status: %v", err)), true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkPath, bytes.NewReader(body))
	if err != nil {
		return ErrorResult(fmt.Sprintf("Failed to check status: %v", err)), true
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Transport failure or timeout: the authority could not be reached.
		return ErrorResult(fmt.Sprintf("Failed to check status: %v", err)), true
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The authority answered but rejected the request.
		return ErrorResult(fmt.Sprintf("API returned status %d", resp.StatusCode)), true
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return ErrorResult(fmt.Sprintf("Failed to decode response: %v", err)), true
	}

	result = Result{
		Status:  wire.Status,
		IsSold:  wire.IsSold,
		Message: wire.Message,
	}
	if wire.SaleDate != nil && *wire.SaleDate != "" {
		saleDate, err := parseSaleDate(*wire.SaleDate)
		if err != nil {
			c.logger.WarnContext(ctx, "unparseable sale date from authority",
				"sale_date", *wire.SaleDate,
				"error", err)
		} else {
			result.SaleDate = &saleDate
		}
	}
	return result, false
}

// Ping probes the authority's root endpoint. Used by the health handler
// only; it bypasses the circuit breaker so a probe never affects merge
// behavior.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authority returned status %d", resp.StatusCode)
	}
	return nil
}

// parseSaleDate accepts the two formats the authority is known to emit.
func parseSaleDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
