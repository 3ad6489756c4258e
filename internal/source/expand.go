package source

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "bstt/internal/log"
	"bstt/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the zone occurrences are formatted in. nil means
	// time.Local.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the occurrences (inclusive).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway RRULEs. Zero means the default.
	MaxOccurrencesPerEvent int
}

// Expand turns parsed VEVENTs into timetable events inside the configured
// range. It handles single events, RRULE recurrences, EXDATE removal and
// RECURRENCE-ID overrides. All-day entries are not timetable slots and are
// dropped.
func Expand(events []ParsedEvent, cfg ExpandConfig) []model.Event {
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		appLog.Warn("expand: range end before start; nothing to expand")
		return nil
	}

	baseByUID := make(map[string]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	uids := make([]string, 0)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		prev, seen := baseByUID[ev.UID]
		if !seen {
			uids = append(uids, ev.UID)
		}
		// A feed may repeat a VEVENT; the highest SEQUENCE is the live revision.
		if !seen || ev.Seq > prev.Seq {
			if seen {
				appLog.Debug("expand: superseded revision", "source", ev.SourceID, "uid", ev.UID, "seq", prev.Seq, "by_seq", ev.Seq)
			}
			baseByUID[ev.UID] = ev
		}
	}
	// Map iteration order is random; keep output deterministic.
	sort.Strings(uids)

	out := make([]model.Event, 0)
	for _, uid := range uids {
		ev := baseByUID[uid]
		if ev.AllDay {
			appLog.Debug("expand: skipping all-day event", "source", ev.SourceID, "uid", uid, "summary", ev.Summary)
			continue
		}
		out = append(out, expandEvent(ev, overridesByUID[uid], cfg)...)
	}
	return out
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Event {
	if ev.RawRRule == "" {
		if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
			return nil
		}
		if o, ok := findOverrideForStart(overrides, ev.Start); ok {
			ev = o
		}
		return []model.Event{toModel(ev, ev.Start, ev.End, cfg.DisplayLocation)}
	}

	// DTSTART goes into the options before the rule is built so BYDAY/BYHOUR
	// defaults derive from the event rather than the current time.
	opt, err := rrule.StrToROption(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "source", ev.SourceID, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	opt.Dtstart = ev.Start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		appLog.Error("expand: invalid RRULE", err, "source", ev.SourceID, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	occTimes := set.Between(cfg.RangeStart.In(ev.Start.Location()), cfg.RangeEnd.In(ev.Start.Location()), true)
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		appLog.Warn("expand: truncated occurrences", "source", ev.SourceID, "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]model.Event, 0, len(occTimes))
	for _, occStart := range occTimes {
		inst, start, end := ev, occStart, occStart.Add(dur)
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			inst, start, end = o, o.Start, o.End
		}
		out = append(out, toModel(inst, start, end, cfg.DisplayLocation))
	}
	return out
}

// findOverrideForStart finds the override whose RECURRENCE-ID equals start.
// When several match, the highest SEQUENCE wins.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	var (
		best  ParsedEvent
		found bool
	)
	for _, ov := range overrides {
		if ov.Recurrence == nil || !ov.Recurrence.Equal(start) {
			continue
		}
		if !found || ov.Seq > best.Seq {
			best, found = ov, true
		}
	}
	return best, found
}

func toModel(ev ParsedEvent, start, end time.Time, loc *time.Location) model.Event {
	out := model.Event{
		Title:     ev.Summary,
		EventType: ev.Category,
		Start:     start.In(loc).Format(time.RFC3339),
		End:       end.In(loc).Format(time.RFC3339),
		Location:  ev.Location,
	}
	if ev.Organizer != "" {
		name := ev.Organizer
		out.TeacherName = &name
	}
	return out
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
