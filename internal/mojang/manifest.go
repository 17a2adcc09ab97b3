package mojang

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ManifestURL is Mojang's published index of all game versions.
const ManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

const defaultUserAgent = "McAuto/1.1"

// Version is one entry of the version manifest.
type Version struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"` // "release", "snapshot", ...
	URL         string    `json:"url"`
	ReleaseTime time.Time `json:"releaseTime"`
}

// Manifest is the decoded version manifest, newest versions first.
type Manifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []Version `json:"versions"`
}

// Find returns the manifest entry for a version ID.
func (m *Manifest) Find(versionID string) (*Version, bool) {
	for i := range m.Versions {
		if m.Versions[i].ID == versionID {
			return &m.Versions[i], true
		}
	}
	return nil, false
}

type versionDetail struct {
	Downloads map[string]struct {
		URL  string `json:"url"`
		SHA1 string `json:"sha1"`
		Size int64  `json:"size"`
	} `json:"downloads"`
}

// Client fetches version metadata from Mojang's manifest service.
type Client struct {
	HTTPClient  *http.Client
	UserAgent   string
	ManifestURL string
}

// NewClient creates a manifest client with sane timeouts.
func NewClient() *Client {
	return &Client{
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		ManifestURL: ManifestURL,
	}
}

// Manifest downloads and decodes the version manifest.
func (c *Client) Manifest(ctx context.Context) (*Manifest, error) {
	var manifest Manifest
	if err := c.getJSON(ctx, c.manifestURL(), &manifest); err != nil {
		return nil, fmt.Errorf("failed to fetch version manifest: %w", err)
	}
	return &manifest, nil
}

// ServerJarURL resolves a version ID to its server.jar download URL.
func (c *Client) ServerJarURL(ctx context.Context, versionID string) (string, error) {
	manifest, err := c.Manifest(ctx)
	if err != nil {
		return "", err
	}

	version, ok := manifest.Find(versionID)
	if !ok {
		return "", fmt.Errorf("version not found in manifest: %s", versionID)
	}

	var detail versionDetail
	if err := c.getJSON(ctx, version.URL, &detail); err != nil {
		return "", fmt.Errorf("failed to fetch version detail for %s: %w", versionID, err)
	}

	server, ok := detail.Downloads["server"]
	if !ok || server.URL == "" {
		return "", fmt.Errorf("no server.jar available for version %s", versionID)
	}

	return server.URL, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return defaultUserAgent
}

func (c *Client) manifestURL() string {
	if c.ManifestURL != "" {
		return c.ManifestURL
	}
	return ManifestURL
}
