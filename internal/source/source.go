package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bstt/internal/config"
	appLog "bstt/internal/log"
	"bstt/internal/model"
)

// Window is the inclusive time range events are requested for.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAround returns [now-days, now+days].
func WindowAround(now time.Time, days int) Window {
	return Window{
		Start: now.AddDate(0, 0, -days),
		End:   now.AddDate(0, 0, days),
	}
}

// Source produces a flat, unordered list of timetable events.
type Source interface {
	Name() string
	Fetch(ctx context.Context, w Window) ([]model.Event, error)
}

// FromConfig builds every source enabled in cfg.
func FromConfig(cfg *config.Config, f *Fetcher) []Source {
	sources := make([]Source, 0, 1+len(cfg.ICS))
	if cfg.HasCampus() {
		sources = append(sources, &Campus{
			Endpoint: cfg.Endpoint,
			Cookie:   cfg.Cookie,
			Fetcher:  f,
		})
	}
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		sources = append(sources, &ICS{
			ID:       id,
			URL:      c.URL,
			Location: cfg.Location(),
			Fetcher:  f,
		})
	}
	return sources
}

// Collect fetches every source and merges the results. A failing source is
// logged and skipped; an error is returned only when nothing succeeded.
func Collect(ctx context.Context, sources []Source, w Window) ([]model.Event, error) {
	if len(sources) == 0 {
		return nil, errors.New("no event sources configured")
	}

	var (
		events []model.Event
		errs   []error
		ok     int
	)
	for _, src := range sources {
		evs, err := src.Fetch(ctx, w)
		if err != nil {
			appLog.Error("source fetch failed", err, "source", src.Name())
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		ok++
		events = append(events, evs...)
	}

	if ok == 0 {
		return nil, errors.Join(errs...)
	}
	if len(errs) > 0 {
		appLog.Warn("continuing with partial events", "failed", len(errs), "succeeded", ok)
	}
	return events, nil
}
