package timetable

import (
	"fmt"
	"time"

	"bstt/internal/model"
)

const (
	// BorderWindow is how long before a class ends the status switches to
	// announcing the next one.
	BorderWindow = 10 * time.Minute

	IdleLine  = "TTB: BLK"
	ErrorLine = "TTB: ERR"

	clockLayout = "15:04"
)

// Kind classifies the status line.
type Kind int

const (
	KindIdle Kind = iota
	KindNext
	KindCurrent
	KindBorder
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindCurrent:
		return "current"
	case KindBorder:
		return "border"
	default:
		return "idle"
	}
}

// Slot is an event together with its parsed bounds.
type Slot struct {
	Event model.Event
	Start time.Time
	End   time.Time
}

// Status is the projection of today's events onto a single instant.
type Status struct {
	Kind    Kind
	Current *Slot
	Next    *Slot
	Line    string
}

func (s Status) String() string {
	return s.Line
}

// Project classifies now against the events that start on now's calendar
// date (in now's location) and renders the status line. It never reads the
// clock itself.
func Project(events []model.Event, now time.Time, tables Tables) Status {
	loc := now.Location()
	today := SelectDay(events, now, loc)

	var st Status
	for _, ev := range today.Events {
		// SelectDay guarantees start parses.
		start, _ := ev.ParseStart(loc)

		if st.Current == nil {
			if end, err := ev.ParseEnd(loc); err == nil && !start.After(now) && now.Before(end) {
				st.Current = &Slot{Event: ev, Start: start, End: end}
			}
		}
		if st.Next == nil && start.After(now) {
			st.Next = &Slot{Event: ev, Start: start}
			if end, err := ev.ParseEnd(loc); err == nil {
				st.Next.End = end
			}
		}
		if st.Current != nil && st.Next != nil {
			break
		}
	}

	switch {
	case st.Current != nil && st.Next != nil && !now.Before(st.Current.End.Add(-BorderWindow)):
		st.Kind = KindBorder
		st.Line = fmt.Sprintf("BRD %s→%s | %s @ %s",
			st.Current.End.Format(clockLayout),
			st.Next.Start.Format(clockLayout),
			tables.Title(st.Next.Event.Title),
			tables.Location(st.Next.Event.Location),
		)
	case st.Current != nil:
		st.Kind = KindCurrent
		st.Line = fmt.Sprintf("CUR %s | %s END %s",
			tables.Title(st.Current.Event.Title),
			tables.Location(st.Current.Event.Location),
			st.Current.End.Format(clockLayout),
		)
	case st.Next != nil:
		st.Kind = KindNext
		st.Line = fmt.Sprintf("NXT %s | %s @ %s",
			tables.Title(st.Next.Event.Title),
			tables.Location(st.Next.Event.Location),
			st.Next.Start.Format(clockLayout),
		)
	default:
		st.Kind = KindIdle
		st.Line = IdleLine
	}

	return st
}
