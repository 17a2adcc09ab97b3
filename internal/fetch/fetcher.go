package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// PartSuffix marks an in-progress download. The partial file's size is
	// the authoritative resume offset for the next attempt.
	PartSuffix = ".part"

	defaultBlockSize = 1 << 20 // 1 MiB
	defaultUserAgent = "McAuto/1.1"
)

// Progress describes the state of a running download. Total is zero when
// the server did not report an overall size.
type Progress struct {
	Downloaded int64
	Total      int64
}

// Percent returns the completed percentage, or -1 when the total is unknown.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	return int(p.Downloaded * 100 / p.Total)
}

// FetchError wraps a failed download with its URL and failing operation.
type FetchError struct {
	URL string
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher downloads artifacts over HTTP with byte-accurate resume.
//
// A destination that already exists is treated as complete and is never
// re-fetched or re-verified. Fetcher assumes single-writer access to a
// given destination; concurrent calls against the same destination are
// not synchronized and must be serialized by the caller.
type Fetcher struct {
	Client     *http.Client
	UserAgent  string
	BlockSize  int
	OnProgress func(Progress)
}

// NewFetcher creates a fetcher with the default transport settings.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client: &http.Client{Timeout: 0},
	}
}

// Fetch downloads url to dest, resuming a partial download if one exists.
// On success the partial file is atomically renamed to dest, so no caller
// ever observes a half-written file at the destination path. On transport
// failure the partial file is preserved so a later call can resume.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		log.Printf("[Fetch] %s already exists, skipping", filepath.Base(dest))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return &FetchError{URL: url, Op: "prepare", Err: err}
	}

	return f.fetch(ctx, url, dest, true)
}

// fetch performs one download attempt. allowRestart permits a single
// restart-from-zero when the server rejects the resume offset with 416;
// a second rejection surfaces as an error rather than recursing forever.
func (f *Fetcher) fetch(ctx context.Context, url, dest string, allowRestart bool) error {
	part := dest + PartSuffix

	var offset int64
	if info, err := os.Stat(part); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FetchError{URL: url, Op: "request", Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent())
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		log.Printf("[Fetch] Resuming %s at %d bytes", filepath.Base(dest), offset)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return &FetchError{URL: url, Op: "request", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// The partial file is stale relative to the server's current
		// object. Discard it and start over, once.
		if !allowRestart {
			return &FetchError{URL: url, Op: "resume",
				Err: fmt.Errorf("server rejected resume offset %d after restart", offset)}
		}
		log.Printf("[Fetch] Server rejected resume offset %d, restarting %s from scratch",
			offset, filepath.Base(dest))
		resp.Body.Close()
		if err := os.Remove(part); err != nil && !os.IsNotExist(err) {
			return &FetchError{URL: url, Op: "discard partial", Err: err}
		}
		return f.fetch(ctx, url, dest, false)

	case resp.StatusCode == http.StatusPartialContent:
		// Resume accepted; keep appending at offset.

	case resp.StatusCode == http.StatusOK:
		// Full response. If we asked for a range the server ignored it,
		// so the partial content must be thrown away.
		if offset > 0 {
			if err := os.Remove(part); err != nil && !os.IsNotExist(err) {
				return &FetchError{URL: url, Op: "discard partial", Err: err}
			}
			offset = 0
		}

	default:
		return &FetchError{URL: url, Op: "request",
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	total := totalSize(resp, offset)

	out, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return &FetchError{URL: url, Op: "open partial", Err: err}
	}

	downloaded := offset
	if err := f.copyBlocks(out, resp.Body, &downloaded, total); err != nil {
		out.Close()
		// Keep the partial file; its size is the next resume offset.
		return &FetchError{URL: url, Op: "transfer", Err: err}
	}

	if err := out.Close(); err != nil {
		return &FetchError{URL: url, Op: "close partial", Err: err}
	}

	// Publish atomically. Rename never exposes a half-written destination
	// as long as part and dest share a filesystem, which they do by
	// construction.
	if err := os.Rename(part, dest); err != nil {
		return &FetchError{URL: url, Op: "publish", Err: err}
	}

	log.Printf("[Fetch] Saved %s (%d bytes)", dest, downloaded)
	return nil
}

func (f *Fetcher) copyBlocks(out io.Writer, body io.Reader, downloaded *int64, total int64) error {
	buf := make([]byte, f.blockSize())
	lastReport := time.Now()

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			*downloaded += int64(n)

			progress := Progress{Downloaded: *downloaded, Total: total}
			if f.OnProgress != nil {
				f.OnProgress(progress)
			}
			if time.Since(lastReport) >= time.Second {
				lastReport = time.Now()
				if pct := progress.Percent(); pct >= 0 {
					log.Printf("[Fetch] %d%% (%d/%d bytes)", pct, *downloaded, total)
				} else {
					log.Printf("[Fetch] %d bytes", *downloaded)
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// totalSize determines the full object size from Content-Range when
// resuming, falling back to offset plus Content-Length. Zero means the
// total is unknown and progress is reported in raw bytes.
func totalSize(resp *http.Response, offset int64) int64 {
	if cr := resp.Header.Get("Content-Range"); strings.Contains(cr, "/") {
		totalPart := cr[strings.LastIndex(cr, "/")+1:]
		if total, err := strconv.ParseInt(strings.TrimSpace(totalPart), 10, 64); err == nil {
			return total
		}
		return 0
	}
	if resp.ContentLength > 0 {
		return offset + resp.ContentLength
	}
	return 0
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) userAgent() string {
	if f.UserAgent != "" {
		return f.UserAgent
	}
	return defaultUserAgent
}

func (f *Fetcher) blockSize() int {
	if f.BlockSize > 0 {
		return f.BlockSize
	}
	return defaultBlockSize
}
