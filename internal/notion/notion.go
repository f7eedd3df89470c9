// Package notion is the remote query adapter: a thin client for the
// workspace API that fetches raw event records for the weekly view and
// the daily reminder, and creates new records. It owns no event state;
// every query returns fresh records.
package notion

import (
	"errors"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2025-09-03"
)

// Configuration errors. These are never retried: they require user
// action (opening the settings) rather than another attempt.
var (
	// ErrTokenMissing means no integration token is configured.
	ErrTokenMissing = errors.New("notion: token not configured")
	// ErrDataSourceMissing means no query source ID is configured.
	ErrDataSourceMissing = errors.New("notion: data source ID not configured")
	// ErrDatabaseMissing means no container ID for record creation is configured.
	ErrDatabaseMissing = errors.New("notion: database ID not configured")
)

// IsConfigError reports whether err is a missing-configuration error,
// as opposed to a remote request failure.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrTokenMissing) ||
		errors.Is(err, ErrDataSourceMissing) ||
		errors.Is(err, ErrDatabaseMissing)
}

// Client issues queries against a single data source and creates records
// in a single database. A Client is immutable; saving new settings builds
// a new Client and swaps the one reference the application holds.
type Client struct {
	// BaseURL may be overridden in tests; it defaults to the public API.
	BaseURL string

	token        string
	databaseID   string
	dataSourceID string
	http         *http.Client
}

// NewClient returns a Client for the given credentials. Empty values are
// allowed; the corresponding operations then fail fast with a typed
// configuration error.
func NewClient(token, databaseID, dataSourceID string) *Client {
	return &Client{
		BaseURL:      defaultBaseURL,
		token:        token,
		databaseID:   databaseID,
		dataSourceID: dataSourceID,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured reports whether the client can run queries.
func (c *Client) Configured() bool {
	return c != nil && c.token != "" && c.dataSourceID != ""
}
