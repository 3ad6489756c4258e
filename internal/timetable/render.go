package timetable

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"bstt/internal/model"
)

const (
	dateLayout      = "Monday, 02 January 2006"
	noEventsMessage = "No events scheduled for this day."
)

var (
	boldStyle     = lipgloss.NewStyle().Bold(true)
	noEventsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)

	// Per-column foreground, in header order. Empty means default.
	columnColors = []lipgloss.Color{"6", "3", "", "2", "4"}
)

// Row is one rendered timetable line.
type Row struct {
	Time     string `json:"time"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Lecturer string `json:"lecturer"`
}

// DayView is everything needed to print one day's timetable.
type DayView struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
	Rows  []Row     `json:"rows"`
}

// DayLabel names target relative to today by calendar-day difference.
func DayLabel(target, today time.Time) string {
	switch daysBetween(today, target) {
	case 0:
		return " (Today)"
	case 1:
		return " (Tomorrow)"
	case -1:
		return " (Yesterday)"
	default:
		return ""
	}
}

// BuildDay selects target's events (in today's location) and turns them into
// rows.
func BuildDay(events []model.Event, target, today time.Time) DayView {
	loc := today.Location()
	target = target.In(loc)
	sel := SelectDay(events, target, loc)

	view := DayView{
		Date:  target,
		Label: DayLabel(target, today),
		Rows:  make([]Row, 0, len(sel.Events)),
	}
	for _, ev := range sel.Events {
		view.Rows = append(view.Rows, Row{
			Time:     timeRange(ev, loc),
			Type:     ev.EventType,
			Title:    ev.Title,
			Location: ev.Location,
			Lecturer: ev.FirstLecturer(),
		})
	}
	return view
}

func timeRange(ev model.Event, loc *time.Location) string {
	start, _ := ev.ParseStart(loc)
	end := "?"
	if t, err := ev.ParseEnd(loc); err == nil {
		end = t.Format(clockLayout)
	}
	return start.Format(clockLayout) + " - " + end
}

// Render writes the day heading followed by either a table or the
// "no events" message.
func Render(w io.Writer, v DayView) error {
	heading := fmt.Sprintf("Timetable for %s%s", v.Date.Format(dateLayout), v.Label)
	if _, err := fmt.Fprintln(w, " "+boldStyle.Render(heading)); err != nil {
		return err
	}

	if len(v.Rows) == 0 {
		_, err := fmt.Fprintln(w, "\n"+noEventsStyle.Render(noEventsMessage))
		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Time", "Type", "Event", "Location", "Lecturer").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col < len(columnColors) && columnColors[col] != "" {
				return cellStyle.Foreground(columnColors[col])
			}
			return cellStyle
		})
	for _, r := range v.Rows {
		t.Row(r.Time, r.Type, r.Title, r.Location, r.Lecturer)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
