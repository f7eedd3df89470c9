package notion

import (
	"context"

	appLog "notioncal/internal/log"
	"notioncal/internal/model"
)

// CreateParams describes a new event record to create.
type CreateParams struct {
	// Name is the record title. Required.
	Name string
	// Date is the ISO date ("2006-01-02") or datetime ("2006-01-02T15:04")
	// as entered in the form. Required.
	Date string
	// Tags are label strings for the multi-select Tag property.
	Tags []string
	// RepeatDay is a weekday name, or model.RepeatNone / "" for a
	// one-off event.
	RepeatDay string
}

// CreateEvent creates a record in the configured database. The Repeat
// Day property is only written when a real weekday is given, matching
// the schema's weekday-or-None select.
func (c *Client) CreateEvent(ctx context.Context, p CreateParams) error {
	if c == nil || c.token == "" {
		return ErrTokenMissing
	}
	if c.databaseID == "" {
		return ErrDatabaseMissing
	}

	properties := map[string]any{
		propName: map[string]any{
			"title": []map[string]any{
				{"text": map[string]string{"content": p.Name}},
			},
		},
		propDate: map[string]any{
			"date": map[string]string{"start": p.Date},
		},
	}

	tags := make([]map[string]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, map[string]string{"name": t})
	}
	properties[propTag] = map[string]any{"multi_select": tags}

	if p.RepeatDay != "" && p.RepeatDay != model.RepeatNone {
		properties[propRepeatDay] = map[string]any{
			"select": map[string]string{"name": p.RepeatDay},
		}
	}

	body := map[string]any{
		"parent":     map[string]string{"database_id": c.databaseID},
		"properties": properties,
	}

	if err := c.post(ctx, c.BaseURL+"/pages", body, nil); err != nil {
		return err
	}

	appLog.Info("event created", "name", p.Name, "date", p.Date, "repeat_day", p.RepeatDay)
	return nil
}
