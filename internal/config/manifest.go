// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default entry used when neither a flag nor a manifest names one.
const (
	DefaultModule = "main"
	DefaultScene  = "start"
)

// Entry names the scene a session starts in.
type Entry struct {
	File   string `yaml:"file"`
	Module string `yaml:"module"`
	Scene  string `yaml:"scene"`
}

// Manifest is a parsed narrate.yaml. Paths in it are made absolute
// relative to the manifest's directory.
type Manifest struct {
	Path       string   `yaml:"-"`
	Entry      Entry    `yaml:"entry"`
	Inventory  []string `yaml:"inventory"`
	Transcript string   `yaml:"transcript"`
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("manifest: ")
	b.WriteString(e.Path)
	b.WriteString(" is invalid:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var m Manifest
	if err := decoder.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}
	m.Path = absPath

	if m.Entry.Module == "" {
		m.Entry.Module = DefaultModule
	}
	if m.Entry.Scene == "" {
		m.Entry.Scene = DefaultScene
	}
	dir := filepath.Dir(absPath)
	m.Entry.File = resolve(dir, m.Entry.File)
	m.Transcript = resolve(dir, m.Transcript)

	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(dir, path)
}

func (m *Manifest) validate() error {
	errs := ValidationError{Path: m.Path}
	if m.Entry.File == "" {
		errs.Issues = append(errs.Issues, "entry.file must be provided")
	}
	for i, item := range m.Inventory {
		if strings.TrimSpace(item) == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("inventory[%d] must be a non-empty string", i))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// ParseEntryRef splits "module::scene". A bare name is taken as a scene in
// the default module.
func ParseEntryRef(ref string) (module, scene string, err error) {
	if ref == "" {
		return DefaultModule, DefaultScene, nil
	}
	module, scene, found := strings.Cut(ref, "::")
	if !found {
		return DefaultModule, ref, nil
	}
	if module == "" || scene == "" || strings.Contains(scene, "::") {
		return "", "", fmt.Errorf("entry %q: expected module::scene", ref)
	}
	return module, scene, nil
}
