package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "bstt/internal/log"
	"bstt/internal/model"
)

const defaultICSEventType = "Event"

// ICS is an iCalendar subscription merged into the timetable.
type ICS struct {
	ID  string
	URL string
	// Location is the zone events are rendered in; nil means time.Local.
	Location *time.Location
	Fetcher  *Fetcher
}

func (s *ICS) Name() string { return "ics:" + s.ID }

func (s *ICS) Fetch(ctx context.Context, w Window) ([]model.Event, error) {
	res, err := s.Fetcher.Get(ctx, "ics|"+s.URL, s.URL, icsHeader())
	if err != nil {
		return nil, err
	}

	parsed, err := ParseICS(s.ID, res.Body)
	if err != nil {
		return nil, err
	}

	events := Expand(parsed, ExpandConfig{
		DisplayLocation: s.Location,
		RangeStart:      w.Start,
		RangeEnd:        w.End,
	})
	appLog.Info("ics events fetched", "id", s.ID, "vevents", len(parsed), "occurrences", len(events), "from_cache", res.FromCache)
	return events, nil
}

var _ Source = (*ICS)(nil)

// ParsedEvent is a VEVENT before recurrence expansion.
type ParsedEvent struct {
	// SourceID names the subscription in logs.
	SourceID string

	UID string
	// Seq is SEQUENCE. Among revisions of one instance the highest wins.
	Seq int

	Summary   string
	Category  string
	Location  string
	Organizer string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, if this VEVENT overrides one instance
	IsOverride bool
}

// ParseICS parses an iCalendar payload. Individual VEVENTs that fail to parse
// are logged and skipped; cancelled events are dropped.
func ParseICS(sourceID string, body []byte) ([]ParsedEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty ICS body")
	}
	upper := strings.ToUpper(string(trimmed[:min(len(trimmed), 16)]))
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return nil, errors.New("received HTML instead of iCalendar data - check if URL requires authentication")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics parse: %w", err)
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(sourceID, ve)
		if perr != nil {
			appLog.Debug("ics vevent skipped", "id", sourceID, "err", perr)
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

func parseVEvent(sourceID string, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{SourceID: sourceID}

	out.UID = propValue(ve, ical.ComponentPropertyUniqueId)
	if out.UID == "" {
		return out, errors.New("missing UID")
	}
	if strings.EqualFold(propValue(ve, ical.ComponentPropertyStatus), "CANCELLED") {
		return out, errors.New("cancelled")
	}
	if n, err := strconv.Atoi(strings.TrimSpace(propValue(ve, ical.ComponentPropertySequence))); err == nil {
		out.Seq = n
	}

	out.Summary = propValue(ve, ical.ComponentPropertySummary)
	out.Location = propValue(ve, ical.ComponentPropertyLocation)

	out.Category = defaultICSEventType
	if cats := propValue(ve, ical.ComponentPropertyCategories); cats != "" {
		first, _, _ := strings.Cut(cats, ",")
		if first = strings.TrimSpace(first); first != "" {
			out.Category = first
		}
	}

	if org := ve.GetProperty(ical.ComponentPropertyOrganizer); org != nil {
		if cn, ok := org.ICalParameters["CN"]; ok && len(cn) > 0 {
			out.Organizer = strings.Trim(cn[0], `"`)
		}
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		end = start
	}
	out.Start = start
	out.End = end

	if dt := ve.GetProperty(ical.ComponentPropertyDtStart); dt != nil {
		if vs, ok := dt.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(dt.Value, "T") {
			out.AllDay = true
		}
	}

	out.RawRRule = propValue(ve, ical.ComponentPropertyRrule)

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if rid := ve.GetProperty("RECURRENCE-ID"); rid != nil {
		if t, err := parseICSTime(rid.Value); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// parseICSTime handles the basic DATE / DATE-TIME / UTC forms used by
// EXDATE and RECURRENCE-ID.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.Local)
}

func icsHeader() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/calendar, */*;q=0.5")
	h.Set("User-Agent", userAgent)
	return h
}
