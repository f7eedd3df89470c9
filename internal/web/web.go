// Package web serves the weekly view and the JSON API: the refresh and
// add-event user actions, the settings store surface, and the ICS/PNG
// exports.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"notioncal/internal/config"
	"notioncal/internal/dateutil"
	"notioncal/internal/ics"
	appLog "notioncal/internal/log"
	"notioncal/internal/model"
	"notioncal/internal/notion"
	"notioncal/internal/schedule"
)

//go:embed templates/*.html
var templateFS embed.FS

// eventsCacheTTL bounds how long an expanded week is reused before the
// remote source is queried again. Manual refresh and the cron schedule
// both drop the cache explicitly.
const eventsCacheTTL = 30 * time.Second

// Server owns the HTTP surface plus the one query adapter reference the
// application holds. Saving settings rebuilds the adapter and swaps that
// reference synchronously; in-flight queries simply finish on the old
// one, which is benign because queries are idempotent and read-only.
type Server struct {
	mux     *http.ServeMux
	cfgPath string
	tmpl    *template.Template

	cfgMu sync.RWMutex
	cfg   *config.Config

	clientMu sync.RWMutex
	client   *notion.Client

	eventsMu sync.RWMutex
	cache    *weekCache
}

// weekCache holds one expanded week and its fetch time.
type weekCache struct {
	occurrences []model.Occurrence
	week        [7]time.Time
	updatedAt   time.Time
}

// NewServer constructs the server and its initial query adapter from the
// loaded settings.
func NewServer(cfg *config.Config, cfgPath string) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfgPath: cfgPath,
		cfg:     cfg,
		client:  notion.NewClient(cfg.Token, cfg.DatabaseID, cfg.DataSourceID),
		tmpl:    template.Must(template.ParseFS(templateFS, "templates/week.html")),
	}
	s.registerRoutes()
	return s
}

// Client returns the current query adapter. The reminder scheduler and
// all handlers resolve the adapter through this so a settings save takes
// effect immediately.
func (s *Server) Client() *notion.Client {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return s.client
}

// swapClient rebuilds the adapter from cfg and replaces the held
// reference.
func (s *Server) swapClient(cfg *config.Config) {
	c := notion.NewClient(cfg.Token, cfg.DatabaseID, cfg.DataSourceID)
	s.clientMu.Lock()
	s.client = c
	s.clientMu.Unlock()
}

// InvalidateEvents drops the cached week so the next render re-queries
// the remote source. Wired to both the manual refresh action and the
// cron schedule.
func (s *Server) InvalidateEvents() {
	s.eventsMu.Lock()
	s.cache = nil
	s.eventsMu.Unlock()
}

// PreviewPath is where the snapshot command writes (and /preview.png
// reads) the week view PNG, next to the config file.
func (s *Server) PreviewPath() string {
	return filepath.Join(filepath.Dir(s.cfgPath), "preview.png")
}

// Handler returns the http.Handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	s.cfgMu.RLock()
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password
	s.cfgMu.RUnlock()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="notioncal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleWeek)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/events", s.handleAddEvent)
	s.mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	s.mux.HandleFunc("POST /api/settings", s.handleSettingsSave)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /export.ics", s.handleExportICS)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// weekOccurrences returns the expanded occurrences for the current week
// window. The window itself is recomputed on every call; the cache is
// only reused while it is fresh and still anchored to the same Sunday.
func (s *Server) weekOccurrences(ctx context.Context) ([]model.Occurrence, [7]time.Time, error) {
	week := dateutil.WeekWindow(time.Now())

	s.eventsMu.RLock()
	c := s.cache
	s.eventsMu.RUnlock()
	if c != nil && model.SameDate(c.week[0], week[0]) && time.Since(c.updatedAt) < eventsCacheTTL {
		return c.occurrences, week, nil
	}

	records, err := s.Client().QueryRange(ctx, week[0], week[6])
	if err != nil {
		return nil, week, err
	}
	occurrences := schedule.Expand(records, week)

	s.eventsMu.Lock()
	s.cache = &weekCache{occurrences: occurrences, week: week, updatedAt: time.Now()}
	s.eventsMu.Unlock()

	return occurrences, week, nil
}

// View data for the week template.
type weekPage struct {
	Columns      []columnView
	Status       string
	NeedsSetup   bool
	WeekdayNames []string
}

type columnView struct {
	Label      string // "日曜日 1/5"
	IsSunday   bool
	IsSaturday bool
	Events     []model.Occurrence
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	page := weekPage{WeekdayNames: model.WeekdayNames[:]}

	occurrences, week, err := s.weekOccurrences(r.Context())
	switch {
	case err == nil:
		cols := schedule.Layout(occurrences, week)
		for i, col := range cols {
			page.Columns = append(page.Columns, columnView{
				Label:      col.Label + " " + col.Date.Format("1/2"),
				IsSunday:   i == 0,
				IsSaturday: i == 6,
				Events:     col.Events,
			})
		}
		page.Status = "最終更新: " + time.Now().Format("15:04:05")
	case notion.IsConfigError(err):
		page.NeedsSetup = true
		page.Status = "設定が必要です。右上の⚙️から設定してください。"
	default:
		appLog.Error("week view query failed", err)
		page.Status = "エラーが発生しました: " + err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, page); err != nil {
		appLog.Error("week template render failed", err)
	}
}

// eventsResponse is the JSON response shape for GET /api/events.
type eventsResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
	Week        []string        `json:"week"`
	RangeStart  string          `json:"range_start"`
	RangeEnd    string          `json:"range_end"`
}

type occurrenceDTO struct {
	Name      string   `json:"name"`
	Date      string   `json:"date"`
	Time      string   `json:"time,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	URL       string   `json:"url,omitempty"`
	Recurring bool     `json:"recurring"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	occurrences, week, err := s.weekOccurrences(r.Context())
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	resp := eventsResponse{
		Occurrences: make([]occurrenceDTO, 0, len(occurrences)),
		RangeStart:  dateutil.LocalDateString(week[0]),
		RangeEnd:    dateutil.LocalDateString(week[6]),
	}
	for _, d := range week {
		resp.Week = append(resp.Week, dateutil.LocalDateString(d))
	}
	for _, occ := range occurrences {
		resp.Occurrences = append(resp.Occurrences, occurrenceDTO{
			Name:      occ.Name,
			Date:      dateutil.LocalDateString(occ.Date),
			Time:      occ.Time,
			Tags:      occ.Tags,
			URL:       occ.URL,
			Recurring: occ.Recurring,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// addEventRequest is the new-event form payload. Tags is a
// comma-separated string, as entered in the form.
type addEventRequest struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Tags      string `json:"tags"`
	RepeatDay string `json:"repeat_day"`
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req addEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", false)
		return
	}
	if req.Name == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "name and date are required", false)
		return
	}

	params := notion.CreateParams{
		Name:      req.Name,
		Date:      req.Date,
		Tags:      parseTags(req.Tags),
		RepeatDay: req.RepeatDay,
	}
	if err := s.Client().CreateEvent(r.Context(), params); err != nil {
		s.writeQueryError(w, err)
		return
	}

	// The new record must show up on the next render.
	s.InvalidateEvents()
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

// settingsDTO is the settings surface exchanged with the UI.
type settingsDTO struct {
	Token        string `json:"token"`
	DatabaseID   string `json:"database_id"`
	DataSourceID string `json:"data_source_id"`
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, _ *http.Request) {
	s.cfgMu.RLock()
	dto := settingsDTO{
		Token:        s.cfg.Token,
		DatabaseID:   s.cfg.DatabaseID,
		DataSourceID: s.cfg.DataSourceID,
	}
	s.cfgMu.RUnlock()
	writeJSON(w, http.StatusOK, dto)
}

// handleSettingsSave persists new credentials and rebuilds the query
// adapter before responding, so the save is effective the moment the
// client sees the response.
func (s *Server) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	var dto settingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", false)
		return
	}

	s.cfgMu.Lock()
	s.cfg.Token = strings.TrimSpace(dto.Token)
	s.cfg.DatabaseID = strings.TrimSpace(dto.DatabaseID)
	s.cfg.DataSourceID = strings.TrimSpace(dto.DataSourceID)
	s.cfg.Normalize()
	cfg := *s.cfg
	s.cfgMu.Unlock()

	if err := config.Save(s.cfgPath, &cfg); err != nil {
		appLog.Error("settings save failed", err, "path", s.cfgPath)
		writeError(w, http.StatusInternalServerError, "failed to save settings", false)
		return
	}

	s.swapClient(&cfg)
	s.InvalidateEvents()
	appLog.Info("settings saved, query adapter rebuilt")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.InvalidateEvents()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	occurrences, _, err := s.weekOccurrences(r.Context())
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	doc, err := ics.BuildWeekCalendar(occurrences, time.Now())
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build calendar", false)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="week.ics"`)
	_, _ = w.Write([]byte(doc))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile returns 404/500 as appropriate for a missing file.
	http.ServeFile(w, r, s.PreviewPath())
}

// writeQueryError maps adapter failures onto the two user-facing error
// paths: configuration errors point the UI at the settings prompt,
// everything else surfaces as generic text carrying the remote message.
func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	if notion.IsConfigError(err) {
		writeError(w, http.StatusPreconditionFailed, err.Error(), true)
		return
	}
	appLog.Error("remote request failed", err)
	writeError(w, http.StatusBadGateway, err.Error(), false)
}

func parseTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, needsSetup bool) {
	type errResp struct {
		Error      string `json:"error"`
		NeedsSetup bool   `json:"needs_setup,omitempty"`
	}
	writeJSON(w, status, errResp{Error: msg, NeedsSetup: needsSetup})
}
