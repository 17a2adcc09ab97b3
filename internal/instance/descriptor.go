package instance

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DescriptorFileName is the persisted descriptor inside each instance
// directory.
const DescriptorFileName = "mcauto.yml"

// WriteDescriptor serializes the descriptor into the instance directory.
// Provisioning calls this once per provisioning event.
func WriteDescriptor(dir string, d Descriptor) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	path := filepath.Join(dir, DescriptorFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	return nil
}

// ReadDescriptor loads the instance's persisted descriptor. On absence or
// corruption it falls back to best-effort reconstruction from the launch
// script and never returns an error: callers always get a usable, possibly
// partial descriptor.
func ReadDescriptor(dir string) Descriptor {
	path := filepath.Join(dir, DescriptorFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return ReconstructDescriptor(dir)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		log.Printf("[Instance] Corrupt descriptor in %s, reconstructing: %v", dir, err)
		return ReconstructDescriptor(dir)
	}
	if d.Jar == "" {
		log.Printf("[Instance] Incomplete descriptor in %s, reconstructing", dir)
		return ReconstructDescriptor(dir)
	}
	return d
}

var (
	maxHeapPattern = regexp.MustCompile(`-Xmx(\S+)`)
	jarPattern     = regexp.MustCompile(`-jar\s+"?([^"\n ]+)"?`)
	versionPattern = regexp.MustCompile(`server-([A-Za-z0-9._-]+)\.jar`)
)

// ReconstructDescriptor recovers a low-confidence descriptor by scanning
// the generated launch script for the jar and maximum-heap tokens. Fields
// it cannot recover hold the Unknown sentinel; the loader is assumed
// vanilla. The result must never be confused with the authoritative
// persisted record.
func ReconstructDescriptor(dir string) Descriptor {
	d := Descriptor{
		Jar:     Unknown,
		Loader:  LoaderVanilla,
		Memory:  Unknown,
		Version: Unknown,
	}

	script, err := os.ReadFile(filepath.Join(dir, StartScriptName))
	if err != nil {
		return d
	}

	if m := maxHeapPattern.FindSubmatch(script); m != nil {
		d.Memory = string(m[1])
	}
	if m := jarPattern.FindSubmatch(script); m != nil {
		d.Jar = filepath.Base(string(m[1]))
		if v := versionPattern.FindStringSubmatch(d.Jar); v != nil {
			d.Version = v[1]
		}
	}

	return d
}
