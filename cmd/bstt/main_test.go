package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appLog "bstt/internal/log"
	"bstt/internal/model"
	"bstt/internal/timetable"
)

var bst = time.FixedZone("BST", 60*60)

func fixedLoader(events []model.Event, err error) loadFunc {
	return func(context.Context) ([]model.Event, error) { return events, err }
}

func sampleEvents() []model.Event {
	return []model.Event{
		{Title: "Core Physics II", EventType: "Lecture", Start: "2025-10-06T09:00:00+01:00", End: "2025-10-06T10:00:00+01:00", Location: "Physics Building: Room 1.11"},
		{Title: "Practical Physics", EventType: "Practical", Start: "2025-10-06T10:15:00+01:00", End: "2025-10-06T12:00:00+01:00", Location: "Fry Building"},
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"+1", 1, false},
		{"-2", -2, false},
		{" 3 ", 3, false},
		{"tomorrow", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseOffset(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseOffset(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestParseFlags(t *testing.T) {
	o := parseFlags([]string{"-mini", "-config", "/tmp/x.yaml"})
	if !o.mini || o.configPath != "/tmp/x.yaml" || o.dayOffset != "0" {
		t.Fatalf("unexpected options: %+v", o)
	}

	o = parseFlags([]string{"--", "-1"})
	if o.dayOffset != "-1" {
		t.Fatalf("dayOffset = %q", o.dayOffset)
	}
}

func TestRunMini(t *testing.T) {
	now := time.Date(2025, 10, 6, 8, 30, 0, 0, bst)

	var buf bytes.Buffer
	if code := runMini(context.Background(), fixedLoader(sampleEvents(), nil), now, &buf); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got := buf.String(); got != "NXT Core P | Phys:1.11 @ 09:00" {
		t.Fatalf("output = %q", got)
	}

	buf.Reset()
	if code := runMini(context.Background(), fixedLoader(nil, errors.New("401")), now, &buf); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got := buf.String(); got != timetable.ErrorLine {
		t.Fatalf("output = %q", got)
	}
}

func TestRunFull(t *testing.T) {
	now := time.Date(2025, 10, 6, 8, 0, 0, 0, bst)

	var stdout, stderr bytes.Buffer
	if code := runFull(context.Background(), fixedLoader(sampleEvents(), nil), 0, now, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr=%q", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Monday, 06 October 2025 (Today)", "09:00 - 10:00", "Practical Physics"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(stderr.String(), "Fetching timetable...") {
		t.Errorf("expected spinner on stderr, got %q", stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := runFull(context.Background(), fixedLoader(nil, errors.New("cookie expired")), 0, now, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no stdout on failure, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "cookie expired") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	var stdout, stderr bytes.Buffer
	if code := run(options{configPath: path, dayOffset: "0"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "template config has been created") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	// The template still holds the placeholder cookie; mini mode swallows it.
	stdout.Reset()
	stderr.Reset()
	if code := run(options{configPath: path, mini: true}, &stdout, &stderr); code != 0 {
		t.Fatalf("mini exit code = %d", code)
	}
	if stdout.String() != timetable.ErrorLine {
		t.Errorf("mini stdout = %q", stdout.String())
	}
}

func TestRunMiniReportsTemplatePath(t *testing.T) {
	var logs bytes.Buffer
	appLog.SetOutput(&logs)
	t.Cleanup(func() { appLog.SetOutput(os.Stderr) })

	path := filepath.Join(t.TempDir(), "config.yaml")
	var stdout, stderr bytes.Buffer
	if code := run(options{configPath: path, mini: true}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if stdout.String() != timetable.ErrorLine {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(logs.String(), "config template created") || !strings.Contains(logs.String(), path) {
		t.Errorf("expected template path in log, got %q", logs.String())
	}
}

func TestSnapshotLine(t *testing.T) {
	now := time.Date(2025, 10, 6, 9, 30, 0, 0, bst)
	snap := &snapshot{}

	if got := snap.line(now); got != timetable.ErrorLine {
		t.Fatalf("line before fetch = %q", got)
	}

	snap.refresh(context.Background(), fixedLoader(sampleEvents(), nil))
	if got := snap.line(now); !strings.HasPrefix(got, "CUR ") {
		t.Fatalf("line = %q", got)
	}

	// A failed refresh keeps the previous events.
	snap.refresh(context.Background(), fixedLoader(nil, errors.New("timeout")))
	if got := snap.line(now); !strings.HasPrefix(got, "CUR ") {
		t.Fatalf("line after failed refresh = %q", got)
	}
}

func TestStatusPrinterSuppressesRepeats(t *testing.T) {
	var buf bytes.Buffer
	p := &statusPrinter{w: &buf}
	p.print("TTB: BLK")
	p.print("TTB: BLK")
	p.print("NXT Core P | Phys:1.11 @ 09:00")
	if got := buf.String(); got != "TTB: BLK\nNXT Core P | Phys:1.11 @ 09:00\n" {
		t.Fatalf("output = %q", got)
	}
}
