package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "bstt/internal/log"
)

// maxErrorBody caps how much of an error response is quoted back.
const maxErrorBody = 2048

// Result is the body of one fetch, either fresh or from the disk cache.
type Result struct {
	Body      []byte
	FromCache bool
}

// cacheEntry holds HTTP cache metadata for a single cache key.
type cacheEntry struct {
	Key          string    `json:"key"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StatusError is returned for non-2xx responses with no cache to fall back on.
type StatusError struct {
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status: %s. Server response:\n%s", e.Status, e.Body)
}

// Fetcher performs conditional GETs (ETag / Last-Modified) backed by a disk
// cache. On network errors or non-2xx replies a cached body is reused.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher. An empty cacheDir disables the disk cache;
// a nil client gets a 15s timeout default.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// Get fetches url. key identifies the cache slot; it is separate from the URL
// because the campus endpoint embeds the current time in its query.
func (f *Fetcher) Get(ctx context.Context, key, url string, header http.Header) (Result, error) {
	if url == "" {
		return Result{}, errors.New("source URL is empty")
	}

	cachePath := f.cachePathForKey(key)
	var (
		meta       cacheEntry
		cachedBody []byte
	)
	if cachePath != "" {
		if err := os.MkdirAll(cachePath, 0o700); err != nil {
			appLog.Warn("cache dir unavailable; continuing without cache", "path", cachePath, "err", err)
			cachePath = ""
		} else {
			meta, _ = loadCacheMeta(cachePath)
			cachedBody, _ = loadCacheBody(cachePath)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("fetch start", "key", key, "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("fetch network error, using cached body", err, "key", key, "url", redactURL(url))
			return Result{Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Result{}, err
		}
		if cachePath != "" {
			newMeta := cacheEntry{
				Key:          key,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := saveCache(cachePath, newMeta, body); err != nil {
				appLog.Error("cache save failed", err, "key", key)
			}
		}
		appLog.Debug("fetch success", "key", key, "status", resp.StatusCode, "bytes", len(body))
		return Result{Body: body}, nil

	case resp.StatusCode == http.StatusNotModified:
		if len(cachedBody) == 0 {
			return Result{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("fetch not modified; using cache", "key", key)
		return Result{Body: cachedBody, FromCache: true}, nil

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if len(cachedBody) > 0 {
			appLog.Error("fetch non-OK, using cached body", errors.New(resp.Status), "key", key, "status", resp.StatusCode)
			return Result{Body: cachedBody, FromCache: true}, nil
		}
		return Result{}, &StatusError{Status: resp.Status, Body: string(body)}
	}
}

func (f *Fetcher) cachePathForKey(key string) string {
	if f.cacheDir == "" || key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body"))
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host for logging.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' && u[j] != '?' {
		j++
	}
	return u[:j] + redactedSuffix
}
