package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Detect scans baseDir for provisioned instances: directories containing a
// generated launch script. Each gets its descriptor loaded, falling back
// to reconstruction for pre-descriptor installations.
func Detect(baseDir string) ([]*Instance, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to access servers directory: %w", err)
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read servers directory: %w", err)
	}

	var instances []*Instance
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(baseDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, StartScriptName)); err != nil {
			continue
		}
		instances = append(instances, &Instance{
			Dir:        dir,
			Descriptor: ReadDescriptor(dir),
		})
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Name() < instances[j].Name()
	})

	return instances, nil
}

// Lookup resolves a single instance by name under baseDir. The instance
// must have been provisioned there; arbitrary paths are rejected.
func Lookup(baseDir, name string) (*Instance, error) {
	safe := SafeName(name)
	dir := filepath.Join(baseDir, safe)

	if _, err := os.Stat(filepath.Join(dir, StartScriptName)); err != nil {
		return nil, fmt.Errorf("instance not found: %s", safe)
	}

	return &Instance{Dir: dir, Descriptor: ReadDescriptor(dir)}, nil
}
