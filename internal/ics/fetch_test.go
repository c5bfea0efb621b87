package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchCachesAndRevalidates(t *testing.T) {
	const payload = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())

	body, fromCache, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	if fromCache || string(body) != payload {
		t.Errorf("first fetch: fromCache=%v body=%q", fromCache, body)
	}

	// Second fetch revalidates with the stored ETag and reuses the cache.
	body, fromCache, err = f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !fromCache || string(body) != payload {
		t.Errorf("second fetch: fromCache=%v body=%q", fromCache, body)
	}
	if hits != 2 {
		t.Errorf("server hits = %d, want 2", hits)
	}
}

func TestFetchFallsBackToCacheOnError(t *testing.T) {
	const payload = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(payload))
	}))

	f := NewFetcher(t.TempDir())

	if _, _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("prime Fetch: %v", err)
	}

	// Upstream goes away; the cached body keeps the batch run alive.
	url := srv.URL
	srv.Close()

	body, fromCache, err := f.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch after close: %v", err)
	}
	if !fromCache || string(body) != payload {
		t.Errorf("fallback fetch: fromCache=%v body=%q", fromCache, body)
	}
}

func TestFetchEmptyURL(t *testing.T) {
	f := NewFetcher(t.TempDir())
	if _, _, err := f.Fetch(context.Background(), ""); err == nil {
		t.Error("Fetch(\"\") succeeded, want error")
	}
}
