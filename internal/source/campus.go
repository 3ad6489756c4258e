package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	appLog "bstt/internal/log"
	"bstt/internal/model"
)

const (
	// campusTimeLayout is the query format the campusm endpoint expects.
	campusTimeLayout = "2006-01-02T15:04:05.000Z"
	userAgent        = "bstt/0.4.0 (Linux CLI Timetable Tool)"
)

// Campus fetches the student timetable JSON from the campusm calendar API.
type Campus struct {
	Endpoint string
	Cookie   string
	Fetcher  *Fetcher
}

func (c *Campus) Name() string { return "campus" }

// Fetch requests events in w. Decode failures quote the received body so a
// stale cookie (which yields an HTML login page) is easy to spot.
func (c *Campus) Fetch(ctx context.Context, w Window) ([]model.Event, error) {
	u, err := c.requestURL(w)
	if err != nil {
		return nil, err
	}

	res, err := c.Fetcher.Get(ctx, "campus|"+c.Endpoint, u, c.header())
	if err != nil {
		return nil, fmt.Errorf("campus request: %w", err)
	}

	var data model.Response
	if err := json.Unmarshal(res.Body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode JSON response from server. Error: %w\n\n---\nReceived Body:\n%s---", err, res.Body)
	}

	appLog.Info("campus events fetched", "count", len(data.Events), "window", windowString(w), "from_cache", res.FromCache)
	return data.Events, nil
}

func (c *Campus) requestURL(w Window) (string, error) {
	base, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	q := base.Query()
	q.Set("start", w.Start.UTC().Format(campusTimeLayout))
	q.Set("end", w.End.UTC().Format(campusTimeLayout))
	base.RawQuery = q.Encode()
	return base.String(), nil
}

func (c *Campus) header() http.Header {
	h := http.Header{}
	h.Set("Cookie", c.Cookie)
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Referer", "https://app.bristol.ac.uk/campusm/home")
	h.Set("X-Requested-With", "XMLHttpRequest")
	h.Set("Pragma", "no-cache")
	h.Set("Cache-Control", "no-cache")
	return h
}

var _ Source = (*Campus)(nil)

func windowString(w Window) string {
	return w.Start.UTC().Format(time.DateOnly) + ".." + w.End.UTC().Format(time.DateOnly)
}
