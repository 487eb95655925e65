// Package client provides a Go HTTP client for the concertdb API.
//
// [Client] mirrors the server's administration, catalog and referral
// endpoints and decodes responses into the same
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models] values the
// server uses. Typed IDs are sent and received as UUID strings.
//
// Responses with a status of 400 or above are returned as [*APIError], which
// carries the status code and raw body:
//
//	c := client.NewClient("http://localhost:8080")
//
//	if _, err := c.Migrate(ctx); err != nil {
//		var apiErr *client.APIError
//		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
//			// another migration is running
//		}
//	}
//
//	status, err := c.MigrationStatus(ctx)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/migration"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/referral"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
)

// Client provides typed access to the concertdb REST API.
//
// Client instances are safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new concertdb API client.
//
// The baseURL should include the protocol and host (e.g., "http://localhost:8080")
// but should not include a trailing slash or API path prefix.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Migrations of large data sets run inside the request.
			Timeout: 5 * time.Minute,
		},
	}
}

// APIError is returned for responses with status 400 or above.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, body=%s", e.StatusCode, e.Body)
}

// Health is the body of GET /health.
type Health struct {
	Status       string `json:"status"`
	DatabaseType string `json:"databaseType"`
	Migrated     bool   `json:"migrated"`
	Error        string `json:"error,omitempty"`
}

// MigrationStatus is the body of the migration status endpoints.
type MigrationStatus struct {
	migration.Status
	DatabaseType string `json:"databaseType"`
	Override     bool   `json:"override"`
}

// doRequest performs an HTTP request with proper headers
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

// decodeResponse decodes the JSON response into the target struct
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var result T
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return result, err
	}
	err = decodeResponse(resp, &result)
	return result, err
}

func post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var result T
	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return result, err
	}
	err = decodeResponse(resp, &result)
	return result, err
}

// Health checks the health of the server and its active store. An unhealthy
// server answers 503, which is returned as an *APIError.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	return get[*Health](ctx, c, "/health")
}

// Administration

// Stats returns entity counts from the active store.
func (c *Client) Stats(ctx context.Context) (*store.Stats, error) {
	return get[*store.Stats](ctx, c, "/api/admin/stats")
}

// MigrationStatus returns the current migration status.
func (c *Client) MigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	return get[*MigrationStatus](ctx, c, "/api/admin/migration/status")
}

// Migrate copies the relational data into the document store and waits for
// the result.
func (c *Client) Migrate(ctx context.Context) (*migration.Result, error) {
	return post[*migration.Result](ctx, c, "/api/admin/migrate", nil)
}

// ResetMigration switches the server back to the relational store.
func (c *Client) ResetMigration(ctx context.Context) (*MigrationStatus, error) {
	return post[*MigrationStatus](ctx, c, "/api/admin/migration/reset", nil)
}

// Catalog

func (c *Client) ListArtists(ctx context.Context) ([]*models.Artist, error) {
	return get[[]*models.Artist](ctx, c, "/api/artists")
}

func (c *Client) ListArenas(ctx context.Context) ([]*models.Arena, error) {
	return get[[]*models.Arena](ctx, c, "/api/arenas")
}

// ListConcerts returns all concerts ordered by date.
func (c *Client) ListConcerts(ctx context.Context) ([]*models.Concert, error) {
	return get[[]*models.Concert](ctx, c, "/api/concerts")
}

func (c *Client) GetConcert(ctx context.Context, id models.ConcertID) (*models.Concert, error) {
	return get[*models.Concert](ctx, c, fmt.Sprintf("/api/concerts/%s", id))
}

// ListUserTickets returns the tickets bought by a fan.
func (c *Client) ListUserTickets(ctx context.Context, fanID models.UserID) ([]*models.Ticket, error) {
	return get[[]*models.Ticket](ctx, c, fmt.Sprintf("/api/users/%s/tickets", fanID))
}

// Referrals

type referralRequest struct {
	Code  string        `json:"code"`
	FanID models.UserID `json:"fan_id"`
}

// ValidateReferral checks whether fanID may use code without spending it.
func (c *Client) ValidateReferral(ctx context.Context, code string, fanID models.UserID) (*referral.Validation, error) {
	return post[*referral.Validation](ctx, c, "/api/referrals/validate", referralRequest{Code: code, FanID: fanID})
}

// RedeemReferral spends code for fanID.
func (c *Client) RedeemReferral(ctx context.Context, code string, fanID models.UserID) (*referral.Validation, error) {
	return post[*referral.Validation](ctx, c, "/api/referrals/redeem", referralRequest{Code: code, FanID: fanID})
}
