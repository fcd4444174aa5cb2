package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/assetsmith/assetsmith/internal/platform/errors"
	"github.com/assetsmith/assetsmith/internal/platform/timeouts"
)

const (
	defaultMaxAttempts = 3
	defaultRetryWait   = time.Second
	maxErrorBodyBytes  = 2048
)

// ClientOptions configures a GraphQL client.
type ClientOptions struct {
	// Endpoint is the GraphQL endpoint URL.
	Endpoint string
	// Token is the bearer API token attached to every request.
	Token string
	// HTTPClient overrides the control-plane HTTP client. A nil value gets a
	// client bounded by the control-plane timeout.
	HTTPClient *http.Client
	// MaxAttempts caps attempts per request, zero means the default of 3.
	MaxAttempts int
	// RetryWait is the first backoff interval; subsequent waits double.
	// Zero means the default of one second.
	RetryWait time.Duration

	Logger zerolog.Logger
}

// Client issues authenticated GraphQL requests against a single endpoint.
// Transport and server-side failures are retried with exponential backoff;
// structured application errors in the response body are deterministic
// rejections and returned without retry.
type Client struct {
	endpoint    string
	token       string
	httpClient  *http.Client
	maxAttempts int
	retryWait   time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewClient builds a Client from options.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.ControlPlane}
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	retryWait := opts.RetryWait
	if retryWait <= 0 {
		retryWait = defaultRetryWait
	}
	return &Client{
		endpoint:    opts.Endpoint,
		token:       opts.Token,
		httpClient:  httpClient,
		maxAttempts: maxAttempts,
		retryWait:   retryWait,
		logger:      opts.Logger,
		tracer:      otel.Tracer("forge"),
	}
}

// Endpoint returns the configured GraphQL endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Do executes one GraphQL request. Each attempt uses a fresh request; the
// error returned after exhausting retries wraps the last underlying failure.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "forge.request")
	defer span.End()

	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryWait
	expo.Multiplier = 2
	expo.RandomizationFactor = 0

	attempt := 0
	data, err := backoff.Retry(ctx, func() (json.RawMessage, error) {
		attempt++
		data, err := c.attempt(ctx, body)
		if err != nil {
			span.SetAttributes(attribute.Int("forge.attempts", attempt))
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("graphql request failed")
		}
		return data, err
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(c.maxAttempts)))
	if err != nil {
		if errors.ClassOf(err) == errors.ClassRemote {
			return nil, err
		}
		return nil, errors.Wrap(errors.CodeTransportExhausted,
			fmt.Sprintf("graphql request failed after %d attempts", attempt), err)
	}
	return data, nil
}

// attempt performs a single request. Remote application errors come back
// wrapped in backoff.Permanent so the retry loop stops immediately.
func (c *Client) attempt(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post graphql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("graphql endpoint returned status %d: %s", resp.StatusCode, snippet)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(env.Errors) > 0 {
		return nil, backoff.Permanent(errors.New(errors.CodeRemoteGraphQL, env.Errors[0].Message))
	}
	return env.Data, nil
}
