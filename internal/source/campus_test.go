package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestCampusFetch(t *testing.T) {
	var gotQuery, gotUA, gotXRW string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "session=abc" {
			http.Error(w, "login required", http.StatusUnauthorized)
			return
		}
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		gotXRW = r.Header.Get("X-Requested-With")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[{"desc1":"Core Physics II","desc2":"Lecture","start":"2025-10-06T09:00:00+01:00","end":"2025-10-06T10:00:00+01:00","locAdd1":"Physics Building"}]}`))
	}))
	defer srv.Close()

	c := &Campus{
		Endpoint: srv.URL + "/campusm/sso/cal2/Student%20Timetable",
		Cookie:   "session=abc",
		Fetcher:  NewFetcher("", srv.Client()),
	}
	now := time.Date(2025, 10, 6, 8, 0, 0, 0, time.UTC)

	events, err := c.Fetch(context.Background(), WindowAround(now, 90))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Core Physics II" {
		t.Fatalf("unexpected events: %+v", events)
	}

	q, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatal(err)
	}
	if q.Get("start") != "2025-07-08T08:00:00.000Z" {
		t.Errorf("start = %q", q.Get("start"))
	}
	if q.Get("end") != "2026-01-04T08:00:00.000Z" {
		t.Errorf("end = %q", q.Get("end"))
	}
	if gotUA != userAgent {
		t.Errorf("user agent = %q", gotUA)
	}
	if gotXRW != "XMLHttpRequest" {
		t.Errorf("X-Requested-With = %q", gotXRW)
	}
}

func TestCampusDecodeErrorQuotesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>Please sign in</html>"))
	}))
	defer srv.Close()

	c := &Campus{Endpoint: srv.URL, Cookie: "stale", Fetcher: NewFetcher("", srv.Client())}
	_, err := c.Fetch(context.Background(), WindowAround(time.Now(), 1))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !strings.Contains(err.Error(), "Received Body:\n<html>Please sign in</html>") {
		t.Fatalf("error does not quote body: %v", err)
	}
}

func TestCampusStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := &Campus{Endpoint: srv.URL, Cookie: "x", Fetcher: NewFetcher("", srv.Client())}
	_, err := c.Fetch(context.Background(), WindowAround(time.Now(), 1))
	if err == nil || !strings.Contains(err.Error(), "403 Forbidden") {
		t.Fatalf("expected status in error, got %v", err)
	}
}
