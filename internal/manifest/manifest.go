// Package manifest builds and persists asset-manifest.json, the mapping from
// stable logical asset keys to the emitted (possibly hashed) output paths.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Manifest maps logical keys to output-relative paths. It is built once per
// build and treated as read-only afterwards.
type Manifest map[string]string

// Lookup returns the emitted path for key. Unknown keys report false rather
// than an error: callers treat a miss as "asset not found".
func (m Manifest) Lookup(key string) (string, bool) {
	p, ok := m[key]
	return p, ok
}

// Keys returns the manifest keys in sorted order.
func (m Manifest) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToJSON serializes the manifest as a flat, indented JSON object.
func (m Manifest) ToJSON() ([]byte, error) {
	if m == nil {
		m = Manifest{}
	}
	data, err := json.MarshalIndent(map[string]string(m), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if m == nil {
		m = Manifest{}
	}
	return m, nil
}

// Write persists the manifest to path, replacing any previous file whole.
func (m Manifest) Write(path string) error {
	data, err := m.ToJSON()
	if err != nil {
		return errors.InternalError("encode manifest").WithCause(err).Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileSystemError("create manifest directory").WithCause(err).
			WithContext("path", path).Build()
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.FileSystemError("write manifest").WithCause(err).
			WithContext("path", path).Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.FileSystemError("replace manifest").WithCause(err).
			WithContext("path", path).Build()
	}
	return nil
}

// Load reads a manifest file written by Write.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError("manifest not found").WithCause(err).
				WithContext("path", path).Build()
		}
		return nil, errors.FileSystemError("read manifest").WithCause(err).
			WithContext("path", path).Build()
	}
	m, err := FromJSON(data)
	if err != nil {
		return nil, errors.ValidationError("invalid manifest").WithCause(err).
			WithContext("path", path).Build()
	}
	return m, nil
}
