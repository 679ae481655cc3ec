// Package notify delivers order confirmations to the email collaborator.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stride/internal/domain"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultTimeout        = 10 * time.Second
	responseBodyReadLimit = 1024
)

var (
	ErrEndpointRequired = errors.New("notification endpoint is required")
)

// EmailNotifier posts order confirmations to the email function endpoint
type EmailNotifier struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker[struct{}]
	logger     *zap.Logger
}

// Option configures optional notifier behavior.
type Option func(*EmailNotifier)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *EmailNotifier) {
		if client != nil {
			n.httpClient = client
		}
	}
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(apiKey string) Option {
	return func(n *EmailNotifier) {
		n.apiKey = strings.TrimSpace(apiKey)
	}
}

// WithLogger attaches a logger for breaker state changes.
func WithLogger(logger *zap.Logger) Option {
	return func(n *EmailNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewEmailNotifier builds a notifier for the given endpoint. The breaker opens
// after five consecutive failures and probes again after thirty seconds.
func NewEmailNotifier(endpoint string, timeout time.Duration, opts ...Option) (*EmailNotifier, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, ErrEndpointRequired
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	n := &EmailNotifier{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   trimmed,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}

	n.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "order-confirmation-email",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			n.logger.Warn("Notification circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return n, nil
}

// SendOrderConfirmation posts the confirmation payload; any non-2xx status is an error
func (n *EmailNotifier) SendOrderConfirmation(ctx context.Context, confirmation domain.OrderConfirmation) error {
	payload, err := json.Marshal(confirmation)
	if err != nil {
		return fmt.Errorf("failed to marshal order confirmation: %w", err)
	}

	_, err = n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.post(ctx, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to send order confirmation %s: %w", confirmation.OrderNumber, err)
	}
	return nil
}

func (n *EmailNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// LogNotifier records confirmations in the log instead of sending them
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier used when no endpoint is configured
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOrderConfirmation(_ context.Context, confirmation domain.OrderConfirmation) error {
	n.logger.Info("Order confirmation (delivery disabled)",
		zap.String("order_number", confirmation.OrderNumber),
		zap.String("email", confirmation.Email),
		zap.Int("items", len(confirmation.Items)),
		zap.Float64("total", confirmation.Total),
	)
	return nil
}
