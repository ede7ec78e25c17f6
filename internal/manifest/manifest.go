// Package manifest reads package.json manifests and classifies their
// dependencies into the external sets used by each output format.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest holds the package.json fields the build consumes.
// Every other field of the document is ignored.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Main    string `json:"main,omitempty"`
	Module  string `json:"module,omitempty"`
	Types   string `json:"types,omitempty"`
	Typings string `json:"typings,omitempty"`

	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`
}

// Load reads and parses the manifest at path
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-provided manifest path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest not found at %s", path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest document. Missing fields are left empty;
// only a syntactically broken document is an error.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// TypesPath returns the declaration entry declared by the manifest,
// preferring "types" over the legacy "typings" field.
func (m *Manifest) TypesPath() string {
	if m.Types != "" {
		return m.Types
	}
	return m.Typings
}

// EntryPath returns the module entry, falling back to main.
func (m *Manifest) EntryPath() string {
	if m.Module != "" {
		return m.Module
	}
	return m.Main
}

// category returns the mapping for c, nil when the manifest omits it.
func (m *Manifest) category(c Category) map[string]string {
	switch c {
	case Dependencies:
		return m.Dependencies
	case DevDependencies:
		return m.DevDependencies
	case OptionalDependencies:
		return m.OptionalDependencies
	case PeerDependencies:
		return m.PeerDependencies
	default:
		return nil
	}
}
