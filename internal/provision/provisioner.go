// Package provision turns a version choice into a runnable server
// directory: jar download, launch scripts, EULA, and the persisted
// descriptor.
package provision

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/nico19422009/mcauto/internal/fetch"
	"github.com/nico19422009/mcauto/internal/instance"
	"github.com/nico19422009/mcauto/internal/mojang"
	"github.com/nico19422009/mcauto/internal/ram"
)

// Request describes one instance to provision.
type Request struct {
	Name    string
	Version string // "latest" resolves to the newest release
	Memory  string
	Loader  instance.Loader
}

// Provisioner creates instances under ServersDir, caching downloaded jars
// in JarsDir so several instances of the same version share one download.
type Provisioner struct {
	fetcher *fetch.Fetcher
	mojang  *mojang.Client

	JarsDir       string
	ServersDir    string
	JavaPath      string
	DefaultMemory string
}

func NewProvisioner(fetcher *fetch.Fetcher, client *mojang.Client, jarsDir, serversDir string) *Provisioner {
	return &Provisioner{
		fetcher:       fetcher,
		mojang:        client,
		JarsDir:       jarsDir,
		ServersDir:    serversDir,
		JavaPath:      "java",
		DefaultMemory: "2G",
	}
}

// CreateInstance provisions a new instance. The steps are ordered so a
// failure leaves nothing half-runnable: the descriptor is written last,
// only after every file an operator would rely on exists.
func (p *Provisioner) CreateInstance(ctx context.Context, req Request) (*instance.Instance, error) {
	name := instance.SafeName(req.Name)
	dir := filepath.Join(p.ServersDir, name)

	if _, err := os.Stat(filepath.Join(dir, instance.StartScriptName)); err == nil {
		return nil, fmt.Errorf("instance %s already exists", name)
	}

	version, err := p.resolveVersion(ctx, req.Version)
	if err != nil {
		return nil, err
	}

	memory := ram.Normalize(req.Memory, p.DefaultMemory)
	ram.WarnIfOversized(memory)

	jarName := fmt.Sprintf("server-%s.jar", version)
	cached := filepath.Join(p.JarsDir, jarName)
	if err := p.downloadJar(ctx, version, cached); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create instance directory: %w", err)
	}

	if err := copyFile(cached, filepath.Join(dir, jarName)); err != nil {
		return nil, fmt.Errorf("failed to place server jar: %w", err)
	}
	if err := instance.WriteEULA(dir); err != nil {
		return nil, fmt.Errorf("failed to write eula.txt: %w", err)
	}
	if err := instance.WriteDefaultProperties(dir); err != nil {
		return nil, fmt.Errorf("failed to write server.properties: %w", err)
	}
	if err := instance.WriteLaunchScripts(dir, jarName, p.JavaPath, memory); err != nil {
		return nil, err
	}

	desc := instance.Descriptor{
		Jar:     jarName,
		Loader:  req.Loader,
		Memory:  memory,
		Version: version,
	}
	if err := instance.WriteDescriptor(dir, desc); err != nil {
		return nil, err
	}

	log.Printf("[Provision] Created instance %s (version %s, %s heap)", name, version, memory)
	return &instance.Instance{Dir: dir, Descriptor: desc}, nil
}

// resolveVersion maps "latest" (or empty) to the newest release and
// validates that any explicit version exists upstream.
func (p *Provisioner) resolveVersion(ctx context.Context, version string) (string, error) {
	manifest, err := p.mojang.Manifest(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load version manifest: %w", err)
	}

	if version == "" || version == "latest" {
		return manifest.Latest.Release, nil
	}
	if _, ok := manifest.Find(version); !ok {
		return "", fmt.Errorf("unknown version: %s", version)
	}
	return version, nil
}

// downloadJar fetches the server jar into the shared cache. A jar already
// present is reused without touching the network.
func (p *Provisioner) downloadJar(ctx context.Context, version, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		log.Printf("[Provision] Reusing cached jar %s", filepath.Base(dest))
		return nil
	}

	url, err := p.mojang.ServerJarURL(ctx, version)
	if err != nil {
		return fmt.Errorf("failed to resolve server jar for %s: %w", version, err)
	}

	log.Printf("[Provision] Downloading server jar for %s", version)
	if err := p.fetcher.Fetch(ctx, url, dest); err != nil {
		return fmt.Errorf("failed to download server jar: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
