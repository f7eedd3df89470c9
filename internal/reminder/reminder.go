// Package reminder implements the daily reminder scheduler: a two-phase
// timer that waits until the next configured hour (the alignment phase),
// then re-fires on a fixed 24-hour interval (the steady phase). On each
// fire it queries tomorrow's events and hands a short summary to the
// notification sink.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notioncal/internal/dateutil"
	appLog "notioncal/internal/log"
	"notioncal/internal/model"
	"notioncal/internal/notion"
)

// Interval is the steady-phase firing period. It is a fixed wall
// duration with no drift correction, so a DST transition shifts the
// local firing time by the offset change until the process restarts.
const Interval = 24 * time.Hour

// maxLines is how many events the reminder body lists before truncating.
const maxLines = 5

// Clock abstracts wall-clock access so tests can drive the scheduler
// with a fake clock instead of real delays.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns a Clock backed by the real wall clock.
func SystemClock() Clock { return systemClock{} }

// Querier is the slice of the query adapter the reminder needs.
type Querier interface {
	QueryTomorrow(ctx context.Context, targetDate time.Time, targetWeekday string) ([]model.EventRecord, error)
}

// Source yields the currently configured query adapter. Saving settings
// swaps the adapter the application holds, so the scheduler resolves it
// anew on every fire instead of capturing one instance.
type Source func() Querier

// Notifier delivers a transient (title, body) system notification.
type Notifier interface {
	Notify(title, body string) error
}

// Scheduler runs the daily reminder. Its lifecycle is Run until the
// context is canceled; there is no state beyond waiting-for-alignment
// and steady-repeating.
type Scheduler struct {
	clock    Clock
	hour     int
	source   Source
	notifier Notifier
}

// New returns a Scheduler firing daily at the given local hour.
func New(clock Clock, hour int, source Source, notifier Notifier) *Scheduler {
	return &Scheduler{
		clock:    clock,
		hour:     hour,
		source:   source,
		notifier: notifier,
	}
}

// NextDelay returns the duration from now until today at hour:00:00
// local, or the same instant tomorrow when that time has already been
// reached.
func NextDelay(now time.Time, hour int) time.Duration {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !now.Before(target) {
		target = target.AddDate(0, 0, 1)
	}
	return target.Sub(now)
}

// Run blocks until ctx is canceled: one alignment wait to the next
// firing instant, then a fire every Interval.
func (s *Scheduler) Run(ctx context.Context) {
	delay := NextDelay(s.clock.Now(), s.hour)
	appLog.Info("reminder scheduler armed", "hour", s.hour, "first_fire_in", delay)

	select {
	case <-ctx.Done():
		return
	case <-s.clock.After(delay):
	}

	for {
		s.fire(ctx)
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(Interval):
		}
	}
}

// fire runs one reminder check. Reminders are opportunistic: missing
// configuration is ignored, remote failures are logged, and neither is
// retried before the next scheduled fire.
func (s *Scheduler) fire(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil && !notion.IsConfigError(err) {
		appLog.Error("reminder check failed", err)
	}
}

// RunOnce performs one reminder check immediately: query tomorrow's
// events and notify when there are any. A configuration error is
// returned as-is so callers can distinguish it; zero results produce no
// notification and no error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.clock.Now()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	weekday := dateutil.WeekdayName(tomorrow)

	records, err := s.source().QueryTomorrow(ctx, tomorrow, weekday)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		appLog.Info("no events tomorrow", "date", dateutil.LocalDateString(tomorrow))
		return nil
	}

	title, body := BuildMessage(records)
	if err := s.notifier.Notify(title, body); err != nil {
		return fmt.Errorf("reminder: notify failed: %w", err)
	}

	appLog.Info("reminder sent", "date", dateutil.LocalDateString(tomorrow), "event_count", len(records))
	return nil
}

// BuildMessage formats the reminder notification from tomorrow's
// records, which arrive in server-sorted date order. The body lists the
// first 5 as "HH:MM name" lines (time omitted for records without one),
// then a truncation note when more exist.
func BuildMessage(records []model.EventRecord) (title, body string) {
	var b strings.Builder
	for i, rec := range records {
		if i >= maxLines {
			break
		}
		if t := rec.TimePart(); t != "" {
			b.WriteString(t)
			b.WriteByte(' ')
		}
		b.WriteString(rec.Name)
		b.WriteByte('\n')
	}
	if len(records) > maxLines {
		fmt.Fprintf(&b, "...他 %d 件", len(records)-maxLines)
	}

	title = fmt.Sprintf("明日の予定 (%d件)", len(records))
	return title, b.String()
}
