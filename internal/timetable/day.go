package timetable

import (
	"sort"
	"time"

	appLog "bstt/internal/log"
	"bstt/internal/model"
)

// Selection is the result of narrowing an event list to one calendar date.
type Selection struct {
	// Events are the matching events, ascending by start instant. Equal
	// instants fall back to the raw start text, then input order.
	Events []model.Event
	// Skipped are events dropped because their start did not parse.
	Skipped []model.Event
}

// SelectDay returns the events whose start, in loc, falls on the calendar
// date of target (also taken in loc). The input slice is not modified.
func SelectDay(events []model.Event, target time.Time, loc *time.Location) Selection {
	if loc == nil {
		loc = time.Local
	}
	target = target.In(loc)

	type dated struct {
		ev    model.Event
		start time.Time
	}

	var (
		sel     Selection
		matches []dated
	)
	for _, ev := range events {
		start, err := ev.ParseStart(loc)
		if err != nil {
			appLog.Debug("skipping event with unparseable start", "title", ev.Title, "start", ev.Start, "err", err)
			sel.Skipped = append(sel.Skipped, ev)
			continue
		}
		if sameDate(start, target) {
			matches = append(matches, dated{ev: ev, start: start})
		}
	}

	// Sources may mix offsets ("...Z" next to "...+01:00"), so text order is
	// not time order.
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].start.Equal(matches[j].start) {
			return matches[i].start.Before(matches[j].start)
		}
		return matches[i].ev.Start < matches[j].ev.Start
	})

	for _, m := range matches {
		sel.Events = append(sel.Events, m.ev)
	}
	return sel
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// daysBetween returns the signed number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
