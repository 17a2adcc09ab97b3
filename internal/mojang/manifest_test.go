package mojang

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newManifestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/mc/game/version_manifest_v2.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"latest": {"release": "1.21.1", "snapshot": "24w33a"},
			"versions": [
				{"id": "24w33a", "type": "snapshot", "url": "%s/v1/24w33a.json"},
				{"id": "1.21.1", "type": "release", "url": "%s/v1/1.21.1.json"},
				{"id": "1.21", "type": "release", "url": "%s/v1/1.21.json"}
			]
		}`, srv.URL, srv.URL, srv.URL)
	})
	mux.HandleFunc("/v1/1.21.1.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"downloads": {"server": {"url": "%s/server-1.21.1.jar", "size": 42}}}`, srv.URL)
	})
	mux.HandleFunc("/v1/1.21.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"downloads": {"client": {"url": "https://example.invalid/client.jar"}}}`)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient()
	c.ManifestURL = srv.URL + "/mc/game/version_manifest_v2.json"
	return c
}

func TestManifest(t *testing.T) {
	srv := newManifestServer(t)
	c := newTestClient(srv)

	manifest, err := c.Manifest(context.Background())
	if err != nil {
		t.Fatalf("Manifest failed: %v", err)
	}

	if manifest.Latest.Release != "1.21.1" {
		t.Errorf("latest release = %q, want 1.21.1", manifest.Latest.Release)
	}
	if len(manifest.Versions) != 3 {
		t.Errorf("got %d versions, want 3", len(manifest.Versions))
	}
	if _, ok := manifest.Find("1.21"); !ok {
		t.Error("Find(1.21) should succeed")
	}
	if _, ok := manifest.Find("0.0.0"); ok {
		t.Error("Find(0.0.0) should fail")
	}
}

func TestServerJarURL(t *testing.T) {
	srv := newManifestServer(t)
	c := newTestClient(srv)

	url, err := c.ServerJarURL(context.Background(), "1.21.1")
	if err != nil {
		t.Fatalf("ServerJarURL failed: %v", err)
	}
	if want := srv.URL + "/server-1.21.1.jar"; url != want {
		t.Errorf("ServerJarURL = %q, want %q", url, want)
	}
}

func TestServerJarURLMissingServerDownload(t *testing.T) {
	srv := newManifestServer(t)
	c := newTestClient(srv)

	if _, err := c.ServerJarURL(context.Background(), "1.21"); err == nil {
		t.Error("expected error for version without a server download")
	}
}

func TestServerJarURLUnknownVersion(t *testing.T) {
	srv := newManifestServer(t)
	c := newTestClient(srv)

	if _, err := c.ServerJarURL(context.Background(), "9.9.9"); err == nil {
		t.Error("expected error for unknown version")
	}
}
