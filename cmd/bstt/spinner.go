package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"bstt/internal/model"
)

var (
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	okMark        = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✓")
	failMark      = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render("✗")
)

const spinnerInterval = 50 * time.Millisecond

// fetchWithSpinner runs load in the background and animates a spinner on w
// until it returns. The events are only handed back once the fetch is done.
func fetchWithSpinner(ctx context.Context, load loadFunc, w io.Writer) ([]model.Event, error) {
	type result struct {
		events []model.Event
		err    error
	}
	done := make(chan result, 1)
	go func() {
		events, err := load(ctx)
		done <- result{events, err}
	}()

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	const msg = "Fetching timetable..."
	for i := 0; ; i++ {
		fmt.Fprintf(w, "\r%s %s", spinnerStyle.Render(spinnerFrames[i%len(spinnerFrames)]), msg)
		select {
		case res := <-done:
			mark := okMark
			if res.err != nil {
				mark = failMark
			}
			fmt.Fprintf(w, "\r%s %s\n", mark, msg)
			return res.events, res.err
		case <-ticker.C:
		}
	}
}
