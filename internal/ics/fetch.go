package ics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "carpoolcal/internal/log"
)

// cacheMeta holds HTTP cache metadata for the feed URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher fetches the carpool ICS feed with HTTP caching (ETag /
// Last-Modified) backed by a disk cache, so a flaky or unchanged upstream
// does not break or re-download the batch run.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher whose cache lives under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Fetch returns the ICS payload for feedURL, honoring ETag and
// Last-Modified. On a 304 or a network failure the cached body is reused;
// fromCache reports when that happened.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (body []byte, fromCache bool, err error) {
	if feedURL == "" {
		return nil, false, errors.New("feed URL is empty")
	}
	if err := os.MkdirAll(f.cacheDir, 0o700); err != nil {
		return nil, false, err
	}

	meta, _ := f.loadMeta()
	cachedBody, _ := os.ReadFile(f.bodyPath())

	// Invalidate the cache when the configured URL changed.
	if meta.URL != feedURL {
		meta = cacheMeta{}
		cachedBody = nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, false, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("ics fetch start", "url", redactURL(feedURL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("ics fetch network error, using cached body", err, "url", redactURL(feedURL))
			return cachedBody, true, nil
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		fresh, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, false, readErr
		}
		newMeta := cacheMeta{
			URL:          feedURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := f.saveCache(newMeta, fresh); err != nil {
			appLog.Error("ics cache save failed", err, "url", redactURL(feedURL))
		}
		appLog.Info("ics fetch success", "url", redactURL(feedURL), "bytes", len(fresh))
		return fresh, false, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, false, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "url", redactURL(feedURL))
		return cachedBody, true, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(feedURL), "status", resp.StatusCode)
			return cachedBody, true, nil
		}
		return nil, false, errors.New(resp.Status)
	}
}

func (f *Fetcher) metaPath() string { return filepath.Join(f.cacheDir, "meta.json") }
func (f *Fetcher) bodyPath() string { return filepath.Join(f.cacheDir, "body.ics") }

func (f *Fetcher) loadMeta() (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(f.metaPath())
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func (f *Fetcher) saveCache(meta cacheMeta, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(f.bodyPath(), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.metaPath(), data, 0o600)
}

// redactURL hides path and query of the feed URL in logs; private ICS URLs
// typically embed a secret token.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
