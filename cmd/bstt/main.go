package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/charmbracelet/lipgloss"

	"bstt/internal/config"
	appLog "bstt/internal/log"
	"bstt/internal/model"
	"bstt/internal/source"
	"bstt/internal/timetable"
)

const version = "0.4.0"

var (
	errorLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true).Render("Error:")
	warningLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render("Warning:")
)

// options holds CLI flag values.
type options struct {
	configPath string
	mini       bool
	watch      bool
	serve      bool
	debug      bool
	dayOffset  string
}

// loadFunc fetches the flat event list from every configured source.
type loadFunc func(ctx context.Context) ([]model.Event, error)

func main() {
	opts := parseFlags(os.Args[1:])
	os.Exit(run(opts, os.Stdout, os.Stderr))
}

func parseFlags(args []string) options {
	var o options
	fs := flag.NewFlagSet("bstt", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Fetches and displays your student timetable.\n\nUsage: bstt [flags] [day_offset]\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.configPath, "config", config.DefaultPath, "Path to config file")
	fs.BoolVar(&o.mini, "mini", false, "Compact single-line output for status bars")
	fs.BoolVar(&o.watch, "watch", false, "Keep printing the status line on the configured tick")
	fs.BoolVar(&o.serve, "serve", false, "Serve the status and day view as JSON over HTTP")
	fs.BoolVar(&o.debug, "debug", false, "Verbose logging to stderr")
	_ = fs.Parse(args)

	// Day offset from today for the full view, e.g. 0 for today, +1 for tomorrow.
	o.dayOffset = "0"
	if fs.NArg() > 0 {
		o.dayOffset = fs.Arg(0)
	}
	return o
}

// run executes one invocation and returns the process exit code.
func run(opts options, stdout, stderr io.Writer) int {
	quiet := opts.mini || opts.watch
	switch {
	case opts.debug:
		appLog.SetLevel(appLog.LevelDebug)
	case quiet:
		appLog.SetLevel(appLog.LevelError)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		if quiet {
			// stdout belongs to the status bar, so the path goes to the log.
			if errors.Is(err, config.ErrCreated) {
				appLog.Error("config template created; add your cookie", err, "path", opts.configPath)
			} else {
				appLog.Error("failed to load config", err, "path", opts.configPath)
			}
			fmt.Fprint(stdout, timetable.ErrorLine)
			if opts.watch {
				fmt.Fprintln(stdout)
			}
			return 0
		}
		return reportConfigError(stderr, opts.configPath, err)
	}
	if !opts.debug && !quiet {
		appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	}
	appLog.Debug("bstt starting", "version", version, "config_path", opts.configPath, "timezone", cfg.Location().String())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	load := newLoader(cfg)
	loc := cfg.Location()

	switch {
	case opts.serve:
		if err := runServe(ctx, cfg, load); err != nil {
			return fail(stderr, err)
		}
		return 0
	case opts.watch:
		if err := runWatch(ctx, cfg, load, loc, stdout); err != nil {
			return fail(stderr, err)
		}
		return 0
	case opts.mini:
		return runMini(ctx, load, time.Now().In(loc), stdout)
	default:
		offset, err := parseOffset(opts.dayOffset)
		if err != nil {
			return fail(stderr, err)
		}
		return runFull(ctx, load, offset, time.Now().In(loc), stdout, stderr)
	}
}

func newLoader(cfg *config.Config) loadFunc {
	fetcher := source.NewFetcher(cfg.CacheDir, nil)
	sources := source.FromConfig(cfg, fetcher)
	return func(ctx context.Context) ([]model.Event, error) {
		return source.Collect(ctx, sources, source.WindowAround(time.Now(), cfg.WindowDays))
	}
}

// runMini prints exactly one status string with no trailing newline. Any
// upstream failure is reported as the error sentinel, never as a dump.
func runMini(ctx context.Context, load loadFunc, now time.Time, w io.Writer) int {
	events, err := load(ctx)
	if err != nil {
		appLog.Error("mini: fetch failed", err)
		fmt.Fprint(w, timetable.ErrorLine)
		return 0
	}
	fmt.Fprint(w, timetable.Project(events, now, timetable.DefaultTables()).String())
	return 0
}

// runFull fetches with a spinner on stderr and prints the table for
// today+offset.
func runFull(ctx context.Context, load loadFunc, offset int, now time.Time, stdout, stderr io.Writer) int {
	events, err := fetchWithSpinner(ctx, load, stderr)
	if err != nil {
		return fail(stderr, err)
	}

	view := timetable.BuildDay(events, now.AddDate(0, 0, offset), now)
	if err := timetable.Render(stdout, view); err != nil {
		return fail(stderr, err)
	}
	return 0
}

// parseOffset accepts signed integers such as "0", "+1" or "-2".
func parseOffset(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid day offset %q", s)
	}
	return n, nil
}

func reportConfigError(w io.Writer, path string, err error) int {
	switch {
	case errors.Is(err, config.ErrCreated):
		fmt.Fprintf(w, "%s Config file not found at '%s'.\n", warningLabel, path)
		fmt.Fprintf(w, "A template config has been created. Edit it with your cookie: `sudo nano %s`\n", path)
	case errors.Is(err, config.ErrPlaceholderCookie):
		fmt.Fprintf(w, "%s Your config at '%s' still contains the default value.\n", errorLabel, path)
		fmt.Fprintf(w, "Please replace '%s' with your actual cookie.\n", config.PlaceholderCookie)
	default:
		fmt.Fprintf(w, "%s failed to load config '%s': %v\n", errorLabel, path, err)
	}
	return 1
}

func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "%s %v\n", errorLabel, err)
	return 1
}
