package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"notioncal/internal/dateutil"
	appLog "notioncal/internal/log"
	"notioncal/internal/model"
)

// Remote property names of the event schema.
const (
	propName      = "Name"
	propDate      = "Date"
	propTag       = "Tag"
	propRepeatDay = "Repeat Day"
)

// untitledName is used when a record has an empty title.
const untitledName = "無題"

// QueryRange fetches all records whose date falls within [start, end]
// (inclusive, compared as local calendar dates) plus every record with a
// repeat day set. Requires token and data source ID; fails fast with a
// typed error otherwise.
func (c *Client) QueryRange(ctx context.Context, start, end time.Time) ([]model.EventRecord, error) {
	return c.query(ctx, queryRequest{
		Filter: rangeFilter(dateutil.LocalDateString(start), dateutil.LocalDateString(end)),
	})
}

// QueryTomorrow fetches records dated exactly targetDate or repeating on
// targetWeekday, sorted ascending by date server-side so the reminder
// message lists earliest entries first.
func (c *Client) QueryTomorrow(ctx context.Context, targetDate time.Time, targetWeekday string) ([]model.EventRecord, error) {
	return c.query(ctx, queryRequest{
		Filter: tomorrowFilter(dateutil.LocalDateString(targetDate), targetWeekday),
		Sorts:  []sortSpec{{Property: propDate, Direction: "ascending"}},
	})
}

// Wire shapes for query responses. Properties is a name-keyed map
// because the schema uses property names containing spaces.
type queryResponse struct {
	Results []page `json:"results"`
}

type page struct {
	URL        string                   `json:"url"`
	Properties map[string]propertyValue `json:"properties"`
}

type propertyValue struct {
	Title       []richText    `json:"title,omitempty"`
	Date        *dateValue    `json:"date,omitempty"`
	MultiSelect []selectValue `json:"multi_select,omitempty"`
	Select      *selectValue  `json:"select,omitempty"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type dateValue struct {
	Start string `json:"start"`
}

type selectValue struct {
	Name string `json:"name"`
}

type apiError struct {
	Message string `json:"message"`
}

func (c *Client) query(ctx context.Context, q queryRequest) ([]model.EventRecord, error) {
	if c == nil || c.token == "" {
		return nil, ErrTokenMissing
	}
	if c.dataSourceID == "" {
		return nil, ErrDataSourceMissing
	}

	url := c.BaseURL + "/data_sources/" + c.dataSourceID + "/query"
	var resp queryResponse
	if err := c.post(ctx, url, q, &resp); err != nil {
		return nil, err
	}

	records := make([]model.EventRecord, 0, len(resp.Results))
	for _, p := range resp.Results {
		records = append(records, decodeRecord(p))
	}

	appLog.Debug("notion query completed", "result_count", len(records))
	return records, nil
}

// post sends a JSON request and decodes a JSON response. Non-2xx
// responses propagate the remote error message verbatim.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notion: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("notion: %s", apiErr.Message)
		}
		return fmt.Errorf("notion: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeRecord maps a raw result page onto an EventRecord. Absent or
// partially-filled properties degrade to zero values; placement problems
// are resolved later by the expander, never here.
func decodeRecord(p page) model.EventRecord {
	rec := model.EventRecord{
		Name: untitledName,
		URL:  p.URL,
	}

	if title := p.Properties[propName].Title; len(title) > 0 && title[0].PlainText != "" {
		rec.Name = title[0].PlainText
	}
	if d := p.Properties[propDate].Date; d != nil {
		rec.RawDate = d.Start
	}
	for _, tag := range p.Properties[propTag].MultiSelect {
		rec.Tags = append(rec.Tags, tag.Name)
	}
	if sel := p.Properties[propRepeatDay].Select; sel != nil {
		rec.RepeatDay = sel.Name
	}

	return rec
}
