// Package instance models one provisioned server installation: its
// directory, its persisted descriptor, and the generated launch scripts
// the descriptor can be reconstructed from.
package instance

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Unknown is the sentinel for descriptor fields that could not be
// recovered.
const Unknown = "unknown"

// LogFileName is the per-instance console log written by the session
// multiplexer. Backups exclude it by default.
const LogFileName = "screen.log"

// Descriptor records the runtime choices made when an instance was
// provisioned. It is written exactly once, by provisioning; supervision
// and backups treat it as read-only.
type Descriptor struct {
	Jar     string `yaml:"jar"`
	Loader  Loader `yaml:"loader"`
	Memory  string `yaml:"memory"`
	Version string `yaml:"version"`
}

// Instance is one provisioned server, identified by its directory.
type Instance struct {
	Dir        string
	Descriptor Descriptor
}

// Name is the instance's display name, its directory base name.
func (i *Instance) Name() string {
	return filepath.Base(i.Dir)
}

// JarPath is the absolute path of the runtime artifact.
func (i *Instance) JarPath() string {
	return filepath.Join(i.Dir, i.Descriptor.Jar)
}

// LogPath is the absolute path of the multiplexer's console log.
func (i *Instance) LogPath() string {
	return filepath.Join(i.Dir, LogFileName)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SafeName reduces free-form input to a filesystem-safe directory name.
func SafeName(s string) string {
	cleaned := strings.Trim(unsafeNameChars.ReplaceAllString(s, "_"), "_")
	if cleaned == "" {
		return "server"
	}
	return cleaned
}
