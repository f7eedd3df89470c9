package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notioncal/internal/config"
	"notioncal/internal/dateutil"
)

// newTestServer builds a Server whose query adapter points at a fake
// remote backend.
func newTestServer(t *testing.T, backend http.HandlerFunc) (*Server, string) {
	t.Helper()

	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &config.Config{
		Listen:       "127.0.0.1:0",
		Token:        "secret",
		DatabaseID:   "db-1",
		DataSourceID: "ds-1",
		RefreshCron:  "0 * * * *",
		ReminderHour: 23,
	}

	s := NewServer(cfg, cfgPath)
	s.Client().BaseURL = ts.URL
	return s, cfgPath
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

// weekBackend serves one dated record inside the current week plus a
// Monday-recurring record.
func weekBackend(t *testing.T) (http.HandlerFunc, string) {
	t.Helper()
	week := dateutil.WeekWindow(time.Now())
	tuesday := dateutil.LocalDateString(week[2])

	payload := fmt.Sprintf(`{
	  "results": [
	    {
	      "url": "https://www.notion.so/page-1",
	      "properties": {
	        "Name": {"title": [{"plain_text": "dentist"}]},
	        "Date": {"date": {"start": "%sT10:00:00.000+09:00"}},
	        "Tag": {"multi_select": [{"name": "health"}]},
	        "Repeat Day": {"select": null}
	      }
	    },
	    {
	      "url": "https://www.notion.so/page-2",
	      "properties": {
	        "Name": {"title": [{"plain_text": "standup"}]},
	        "Date": {"date": null},
	        "Tag": {"multi_select": []},
	        "Repeat Day": {"select": {"name": "Monday"}}
	      }
	    }
	  ]
	}`, tuesday)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}, tuesday
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	rr := do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestAPIEvents(t *testing.T) {
	backend, tuesday := weekBackend(t)
	s, _ := newTestServer(t, backend)

	rr := do(s, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	require.Len(t, resp.Week, 7)
	assert.Equal(t, resp.Week[0], resp.RangeStart)
	assert.Equal(t, resp.Week[6], resp.RangeEnd)

	require.Len(t, resp.Occurrences, 2)
	assert.Equal(t, "dentist", resp.Occurrences[0].Name)
	assert.Equal(t, tuesday, resp.Occurrences[0].Date)
	assert.Equal(t, "10:00", resp.Occurrences[0].Time)
	assert.False(t, resp.Occurrences[0].Recurring)

	assert.Equal(t, "standup", resp.Occurrences[1].Name)
	assert.Equal(t, resp.Week[1], resp.Occurrences[1].Date, "recurring record lands on the window's Monday")
	assert.True(t, resp.Occurrences[1].Recurring)
}

func TestAPIEventsNeedsSetup(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	s := NewServer(&config.Config{Listen: "127.0.0.1:0"}, cfgPath)

	rr := do(s, http.MethodGet, "/api/events", "")
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)

	var resp struct {
		Error      string `json:"error"`
		NeedsSetup bool   `json:"needs_setup"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.NeedsSetup)
	assert.NotEmpty(t, resp.Error)
}

func TestAPIEventsRemoteFailure(t *testing.T) {
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"upstream exploded"}`))
	})

	rr := do(s, http.MethodGet, "/api/events", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "upstream exploded")
}

func TestAddEventValidation(t *testing.T) {
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rr := do(s, http.MethodPost, "/api/events", `{"date":"2024-03-04"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(s, http.MethodPost, "/api/events", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddEvent(t *testing.T) {
	var gotPath string
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	})

	body := `{"name":"dentist","date":"2024-03-07T15:30","tags":"health, teeth","repeat_day":"None"}`
	rr := do(s, http.MethodPost, "/api/events", body)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/pages", gotPath)
}

func TestSettingsSaveRebuildsAdapter(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "")
	t.Setenv("NOTION_DATABASE_ID", "")
	t.Setenv("NOTION_DATA_SOURCE_ID", "")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	s := NewServer(&config.Config{Listen: "127.0.0.1:0"}, cfgPath)
	require.False(t, s.Client().Configured())

	body := `{"token":"new-token","database_id":"db-9","data_source_id":"ds-9"}`
	rr := do(s, http.MethodPost, "/api/settings", body)
	require.Equal(t, http.StatusOK, rr.Code)

	// The adapter was swapped synchronously.
	assert.True(t, s.Client().Configured())

	// The settings were persisted.
	saved, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "new-token", saved.Token)
	assert.Equal(t, "db-9", saved.DatabaseID)
	assert.Equal(t, "ds-9", saved.DataSourceID)
}

func TestSettingsGet(t *testing.T) {
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rr := do(s, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var dto settingsDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
	assert.Equal(t, "secret", dto.Token)
	assert.Equal(t, "db-1", dto.DatabaseID)
	assert.Equal(t, "ds-1", dto.DataSourceID)
}

func TestWeekPage(t *testing.T) {
	backend, _ := weekBackend(t)
	s, _ := newTestServer(t, backend)

	rr := do(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)

	html := rr.Body.String()
	assert.Contains(t, html, `id="week"`)
	assert.Contains(t, html, "日曜日")
	assert.Contains(t, html, "dentist")
	assert.Contains(t, html, "最終更新")
}

func TestWeekPagePromptsForSetup(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	s := NewServer(&config.Config{Listen: "127.0.0.1:0"}, cfgPath)

	rr := do(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "設定が必要です")
}

func TestRefreshDropsCache(t *testing.T) {
	calls := 0
	backend := func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"results":[]}`))
	}
	s, _ := newTestServer(t, backend)

	do(s, http.MethodGet, "/api/events", "")
	do(s, http.MethodGet, "/api/events", "")
	assert.Equal(t, 1, calls, "second read within TTL must hit the cache")

	rr := do(s, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	do(s, http.MethodGet, "/api/events", "")
	assert.Equal(t, 2, calls, "refresh must force a re-query")
}

func TestExportICS(t *testing.T) {
	backend, _ := weekBackend(t)
	s, _ := newTestServer(t, backend)

	rr := do(s, http.MethodGet, "/export.ics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rr.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rr.Body.String(), "SUMMARY:standup")
	assert.Contains(t, rr.Body.String(), "FREQ=WEEKLY")
}

func TestBasicAuth(t *testing.T) {
	backend, _ := weekBackend(t)
	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		Listen:    "127.0.0.1:0",
		Token:     "secret",
		BasicAuth: &config.BasicAuthConfig{Username: "u", Password: "p"},
	}
	s := NewServer(cfg, filepath.Join(t.TempDir(), "config.yaml"))
	s.Client().BaseURL = ts.URL

	// /health stays open.
	rr := do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	// Everything else requires credentials.
	rr = do(s, http.MethodGet, "/api/settings", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.SetBasicAuth("u", "p")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
