package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bstt/internal/config"
	appLog "bstt/internal/log"
	"bstt/internal/model"
	"bstt/internal/timetable"
	"bstt/internal/web"
)

// snapshot is the last successfully fetched event list shared between the
// refresh and tick jobs.
type snapshot struct {
	mu     sync.RWMutex
	events []model.Event
	ok     bool
}

func (s *snapshot) refresh(ctx context.Context, load loadFunc) {
	events, err := load(ctx)
	if err != nil {
		// Keep showing the previous data if there is any.
		appLog.Error("watch: refresh failed", err)
		return
	}
	s.mu.Lock()
	s.events = events
	s.ok = true
	s.mu.Unlock()
}

// line renders the status for now, or the error sentinel before the first
// successful fetch.
func (s *snapshot) line(now time.Time) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return timetable.ErrorLine
	}
	return timetable.Project(s.events, now, timetable.DefaultTables()).String()
}

// statusPrinter serialises writes and suppresses unchanged lines.
type statusPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func (p *statusPrinter) print(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.w, line)
}

// runWatch prints the status line once, then re-renders on cfg.Tick and
// refetches on cfg.Refresh until ctx is cancelled. Output is one line per
// change, suitable for polybar/waybar "tail" modules.
func runWatch(ctx context.Context, cfg *config.Config, load loadFunc, loc *time.Location, w io.Writer) error {
	snap := &snapshot{}
	out := &statusPrinter{w: w}
	render := func() { out.print(snap.line(time.Now().In(loc))) }

	snap.refresh(ctx, load)
	render()

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.Tick, render); err != nil {
		return fmt.Errorf("invalid tick schedule %q: %w", cfg.Tick, err)
	}
	if _, err := c.AddFunc(cfg.Refresh, func() {
		snap.refresh(ctx, load)
		render()
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", cfg.Refresh, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// runServe runs the HTTP API and drops its event cache on cfg.Refresh so
// clients pick up upstream changes without waiting on the TTL.
func runServe(ctx context.Context, cfg *config.Config, load loadFunc) error {
	srv := web.NewServer(cfg, web.Loader(load))

	c := cron.New(cron.WithLocation(cfg.Location()))
	if _, err := c.AddFunc(cfg.Refresh, func() {
		appLog.Debug("serve: scheduled refresh")
		srv.Invalidate()
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", cfg.Refresh, err)
	}
	c.Start()
	defer c.Stop()

	return srv.ListenAndServe(ctx)
}
