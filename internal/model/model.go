package model

import (
	"strings"
	"time"
)

// Event is one scheduled occurrence as delivered by the timetable API.
// Start and End stay as the raw RFC3339 text; parse them on demand.
type Event struct {
	Title       string  `json:"desc1"`
	EventType   string  `json:"desc2"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Location    string  `json:"locAdd1"`
	TeacherName *string `json:"teacherName,omitempty"`
}

// Response is the body returned by the campusm calendar endpoint.
type Response struct {
	Events []Event `json:"events"`
}

// ParseStart returns Start as an instant in loc.
func (e Event) ParseStart(loc *time.Location) (time.Time, error) {
	return parseIn(e.Start, loc)
}

// ParseEnd returns End as an instant in loc.
func (e Event) ParseEnd(loc *time.Location) (time.Time, error) {
	return parseIn(e.End, loc)
}

// FirstLecturer returns the first comma-separated name in TeacherName.
func (e Event) FirstLecturer() string {
	if e.TeacherName == nil {
		return ""
	}
	first, _, _ := strings.Cut(*e.TeacherName, ",")
	return strings.TrimSpace(first)
}

func parseIn(s string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc), nil
}
