// Package remote is the sync boundary to the system of record. The engine
// treats the remote API as a black box: a fixed set of endpoints addressed by
// entity kind and operation.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/coxswain-app/shoreline/internal/models"
)

// defaultTimeout bounds every remote call so a dead remote cannot wedge a
// queue drain indefinitely.
const defaultTimeout = 15 * time.Second

// Syncer delivers a single queued mutation to the remote system.
type Syncer interface {
	Sync(ctx context.Context, item models.MutationQueueItem) error
}

// SnapshotAPI fetches remote snapshots for cache hydration.
type SnapshotAPI interface {
	ListSchedules(ctx context.Context, groupID string) ([]models.CachedScheduleEntry, error)
	ListLineups(ctx context.Context, scheduleID string) ([]models.CachedLineupEntry, error)
	GetRegatta(ctx context.Context, id string) (models.CachedRegattaEntry, []models.CachedRegattaRaceEntry, error)
}

var _ Syncer = (*Client)(nil)
var _ SnapshotAPI = (*Client)(nil)

// Client is the HTTP implementation of the sync boundary.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*resty.Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *resty.Client) {
		c.SetAuthToken(token)
	}
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(httpClient)
	}
	return &Client{http: httpClient}
}

// collectionPath resolves the remote collection for an entity kind.
// Assignments are edits to a lineup, so they share the lineup endpoints.
func collectionPath(kind models.EntityKind) (string, error) {
	switch kind {
	case models.EntityKindSchedule:
		return "/schedules", nil
	case models.EntityKindLineup, models.EntityKindAssignment:
		return "/lineups", nil
	}
	return "", fmt.Errorf("remote: no endpoint for entity kind %q", kind)
}

// Sync implements Syncer. Create posts to the collection; update and delete
// address the entity directly.
func (c *Client) Sync(ctx context.Context, item models.MutationQueueItem) error {
	collection, err := collectionPath(item.EntityKind)
	if err != nil {
		return err
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", item.ClientRequestID)

	var resp *resty.Response
	switch item.Operation {
	case models.OperationCreate:
		resp, err = req.SetBody([]byte(item.Payload)).
			SetHeader("Content-Type", "application/json").
			Post(collection)
	case models.OperationUpdate:
		resp, err = req.SetBody([]byte(item.Payload)).
			SetHeader("Content-Type", "application/json").
			Patch(collection + "/" + item.EntityID)
	case models.OperationDelete:
		resp, err = req.Delete(collection + "/" + item.EntityID)
	default:
		return fmt.Errorf("remote: unknown operation %q", item.Operation)
	}

	return classify(resp, err)
}

// ListSchedules fetches the schedule snapshot for a group.
func (c *Client) ListSchedules(ctx context.Context, groupID string) ([]models.CachedScheduleEntry, error) {
	var out []models.CachedScheduleEntry
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("groupId", groupID).
		SetResult(&out).
		Get("/schedules")
	if err := classify(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// ListLineups fetches the lineup snapshot for a schedule entry.
func (c *Client) ListLineups(ctx context.Context, scheduleID string) ([]models.CachedLineupEntry, error) {
	var out []models.CachedLineupEntry
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("scheduleId", scheduleID).
		SetResult(&out).
		Get("/lineups")
	if err := classify(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRegatta fetches a regatta and its races.
func (c *Client) GetRegatta(ctx context.Context, id string) (models.CachedRegattaEntry, []models.CachedRegattaRaceEntry, error) {
	var out struct {
		Regatta models.CachedRegattaEntry       `json:"regatta"`
		Races   []models.CachedRegattaRaceEntry `json:"races"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/regattas/" + id)
	if err := classify(resp, err); err != nil {
		return models.CachedRegattaEntry{}, nil, err
	}
	return out.Regatta, out.Races, nil
}

// classify maps a resty outcome onto the engine's error taxonomy.
func classify(resp *resty.Response, err error) error {
	if err != nil {
		return &NetworkError{Err: err}
	}
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}
	return &APIError{
		StatusCode: code,
		Status:     resp.Status(),
		Body:       string(resp.Body()),
	}
}
