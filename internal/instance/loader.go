package instance

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader identifies the server runtime flavor an instance was provisioned
// with. The set is closed: adding a variant means extending every switch
// over it, which the compiler and tests keep honest.
type Loader int

const (
	LoaderVanilla Loader = iota
	LoaderFabric
	LoaderForge
	LoaderPaper
)

func (l Loader) String() string {
	switch l {
	case LoaderVanilla:
		return "vanilla"
	case LoaderFabric:
		return "fabric"
	case LoaderForge:
		return "forge"
	case LoaderPaper:
		return "paper"
	}
	return fmt.Sprintf("Loader(%d)", int(l))
}

// ParseLoader converts a stored loader label back into its variant.
func ParseLoader(s string) (Loader, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vanilla", "":
		return LoaderVanilla, nil
	case "fabric":
		return LoaderFabric, nil
	case "forge":
		return LoaderForge, nil
	case "paper":
		return LoaderPaper, nil
	}
	return LoaderVanilla, fmt.Errorf("unknown loader kind: %q", s)
}

// ServerArgs returns the arguments appended after the jar on the launch
// command line for this loader.
func (l Loader) ServerArgs() []string {
	switch l {
	case LoaderVanilla, LoaderFabric, LoaderPaper:
		return []string{"nogui"}
	case LoaderForge:
		// Forge's bundled launcher accepts nogui as well.
		return []string{"nogui"}
	}
	return []string{"nogui"}
}

// MarshalYAML stores the loader as its label.
func (l Loader) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

// UnmarshalYAML restores a loader from its label.
func (l *Loader) UnmarshalYAML(node *yaml.Node) error {
	var label string
	if err := node.Decode(&label); err != nil {
		return err
	}
	parsed, err := ParseLoader(label)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
