package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// rangeServer serves content with byte-range support and counts requests.
type rangeServer struct {
	content    []byte
	requests   int
	reject416  bool // respond 416 to every range request
	ignoreRange bool
}

func (rs *rangeServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.requests++

		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" || rs.ignoreRange {
			w.Header().Set("Content-Length", strconv.Itoa(len(rs.content)))
			w.WriteHeader(http.StatusOK)
			w.Write(rs.content)
			return
		}

		if rs.reject416 {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		offsetText := strings.TrimSuffix(strings.TrimPrefix(rangeHeader, "bytes="), "-")
		offset, err := strconv.Atoi(offsetText)
		if err != nil || offset >= len(rs.content) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		w.Header().Set("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", offset, len(rs.content)-1, len(rs.content)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(rs.content[offset:])
	}
}

func testContent(size int) []byte {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	return content
}

func TestFetchFullDownload(t *testing.T) {
	rs := &rangeServer{content: testContent(64 * 1024)}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "server.jar")
	f := NewFetcher()
	f.BlockSize = 4096

	if err := f.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, rs.content) {
		t.Error("downloaded content differs from served content")
	}
	if _, err := os.Stat(dest + PartSuffix); !os.IsNotExist(err) {
		t.Error("partial file should be gone after successful fetch")
	}
}

func TestFetchResume(t *testing.T) {
	content := testContent(32 * 1024)
	splitPoints := []int{1, 100, 16 * 1024, 32*1024 - 1}

	for _, split := range splitPoints {
		rs := &rangeServer{content: content}
		srv := httptest.NewServer(rs.handler())

		dest := filepath.Join(t.TempDir(), "server.jar")
		if err := os.WriteFile(dest+PartSuffix, content[:split], 0644); err != nil {
			t.Fatal(err)
		}

		f := NewFetcher()
		if err := f.Fetch(context.Background(), srv.URL, dest); err != nil {
			t.Fatalf("split %d: Fetch failed: %v", split, err)
		}

		got, err := os.ReadFile(dest)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("split %d: resumed file differs from content", split)
		}
		srv.Close()
	}
}

func TestFetchExistingDestinationShortCircuits(t *testing.T) {
	rs := &rangeServer{content: testContent(1024)}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "server.jar")
	f := NewFetcher()

	if err := f.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("first Fetch failed: %v", err)
	}
	before, _ := os.ReadFile(dest)
	requestsAfterFirst := rs.requests

	if err := f.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}

	if rs.requests != requestsAfterFirst {
		t.Errorf("second fetch made %d network requests, want 0", rs.requests-requestsAfterFirst)
	}
	after, _ := os.ReadFile(dest)
	if !bytes.Equal(before, after) {
		t.Error("second fetch changed the destination file")
	}
}

func TestFetch416DiscardsPartialAndRestarts(t *testing.T) {
	content := testContent(8 * 1024)
	rs := &rangeServer{content: content, reject416: true}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "server.jar")
	// Stale partial from a previous object version.
	if err := os.WriteFile(dest+PartSuffix, []byte("stale-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher()
	if err := f.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("final file should equal a fresh full download")
	}
}

func TestFetchPersistent416SurfacesError(t *testing.T) {
	// A server that answers 416 even to requests without a Range header
	// keeps rejecting the restarted download; the fetcher must not recurse.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "server.jar")
	if err := os.WriteFile(dest+PartSuffix, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher()
	err := f.Fetch(context.Background(), srv.URL, dest)
	if err == nil {
		t.Fatal("expected error from persistent 416")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Errorf("error should be a *FetchError, got %T", err)
	}
}

func TestFetchTransportErrorPreservesPartial(t *testing.T) {
	content := testContent(4 * 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "server.jar")
	if err := os.WriteFile(dest+PartSuffix, content[:1000], 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher()
	if err := f.Fetch(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected error from 500 response")
	}

	info, err := os.Stat(dest + PartSuffix)
	if err != nil {
		t.Fatalf("partial file should survive a failed fetch: %v", err)
	}
	if info.Size() != 1000 {
		t.Errorf("partial size = %d, want 1000", info.Size())
	}
}

func TestFetchIgnoredRangeRestartsFromZero(t *testing.T) {
	content := testContent(8 * 1024)
	rs := &rangeServer{content: content, ignoreRange: true}
	srv := httptest.NewServer(rs.handler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "server.jar")
	if err := os.WriteFile(dest+PartSuffix, content[:500], 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher()
	if err := f.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, content) {
		t.Error("file fetched from a server ignoring Range should equal full content")
	}
}

func TestProgressPercent(t *testing.T) {
	if pct := (Progress{Downloaded: 50, Total: 200}).Percent(); pct != 25 {
		t.Errorf("Percent = %d, want 25", pct)
	}
	if pct := (Progress{Downloaded: 50}).Percent(); pct != -1 {
		t.Errorf("Percent with unknown total = %d, want -1", pct)
	}
}
