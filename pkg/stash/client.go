// Package stash provides a minimal GraphQL client for the Stash media
// server, covering the scene catalog queries the exporter needs.
package stash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Stash client operations.
var (
	stashRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stash_requests_total",
		Help: "Total Stash GraphQL requests by operation and status",
	}, []string{"operation", "status"})

	stashRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stash_request_duration_seconds",
		Help:    "Stash GraphQL request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})
)

// findScenesQuery pages through the scene catalog. Scenes come back as raw
// JSON objects; only the fields below are requested.
const findScenesQuery = `query FindScenes($filter: FindFilterType) {
  findScenes(filter: $filter) {
    count
    scenes {
      id
      title
      files {
        path
        duration
      }
      paths {
        sprite
      }
    }
  }
}`

// Client is a Stash GraphQL API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the GraphQL endpoint, e.g. http://localhost:9999/graphql.
	BaseURL string

	// APIKey authenticates the request when the server has one configured.
	APIKey string

	// SessionCookie authenticates via an inherited UI session instead.
	SessionCookie *SessionCookie

	// User-Agent header
	UserAgent string

	// Timeout per request
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration for the endpoint.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "stash-scene-export/0.1.0",
		Timeout:   30 * time.Second,
	}
}

// New creates a new Stash client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "stash-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// FromConnection creates a client from a plugin server connection descriptor.
func FromConnection(conn Connection) (*Client, error) {
	cfg := DefaultConfig(conn.GraphQLURL())
	cfg.SessionCookie = conn.SessionCookie
	return New(cfg)
}

// graphqlRequest is the standard GraphQL POST body.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlError is one entry of the errors array in a GraphQL response.
type graphqlError struct {
	Message string `json:"message"`
}

type findScenesResponse struct {
	Data struct {
		FindScenes struct {
			Count  int               `json:"count"`
			Scenes []json.RawMessage `json:"scenes"`
		} `json:"findScenes"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// FindScenes fetches one page of the scene catalog and returns the scenes as
// raw JSON objects together with the total catalog count. The count is
// reported on every page; callers paginate by requesting strictly increasing
// page numbers, the server guarantees stable ordering across pages.
func (c *Client) FindScenes(ctx context.Context, pageSize, page int) ([]json.RawMessage, int, error) {
	const operation = "findScenes"

	if pageSize <= 0 {
		return nil, 0, fmt.Errorf("page size must be positive (got %d)", pageSize)
	}
	if page < 1 {
		return nil, 0, fmt.Errorf("page index is 1-based (got %d)", page)
	}

	body, err := json.Marshal(graphqlRequest{
		Query: findScenesQuery,
		Variables: map[string]any{
			"filter": map[string]any{
				"per_page": pageSize,
				"page":     page,
			},
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create %s request: %w", operation, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.APIKey != "" {
		req.Header.Set("ApiKey", c.config.APIKey)
	}
	if c.config.SessionCookie != nil {
		req.AddCookie(&http.Cookie{
			Name:  c.config.SessionCookie.Name,
			Value: c.config.SessionCookie.Value,
		})
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	stashRequestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())

	if err != nil {
		stashRequestsTotal.WithLabelValues(operation, "network_error").Inc()
		c.logger.Error().Err(err).Int("page", page).Msg("Stash request failed")
		return nil, 0, &APIError{
			Class:   ErrorClassNetwork,
			Message: "findScenes request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	stashRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Int("page", page).
			Str("error_class", string(class)).
			Msg("Stash request error")
		return nil, 0, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
	}

	var out findScenesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassGraphQL,
			Message:    "malformed findScenes response body",
			Err:        err,
		}
	}

	if len(out.Errors) > 0 {
		c.logger.Warn().
			Int("page", page).
			Str("message", out.Errors[0].Message).
			Msg("Stash returned GraphQL errors")
		return nil, 0, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassGraphQL,
			Message:    out.Errors[0].Message,
		}
	}

	found := out.Data.FindScenes
	c.logger.Debug().
		Int("page", page).
		Int("page_size", pageSize).
		Int("scenes", len(found.Scenes)).
		Int("count", found.Count).
		Msg("Fetched scene page")

	return found.Scenes, found.Count, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
