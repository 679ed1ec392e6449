// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package loader parses narrate files on demand and resolves scene addresses.
//
// Parsed files live in an append-only cache keyed by canonical path, so a
// file is parsed at most once per Loader no matter how many scenes refer to
// it. Targets are resolved to Address tuples rather than pointers between
// files, which keeps mutually referencing files free of ownership cycles.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"nickandperla.net/narrate/internal/ast"
	apperrors "nickandperla.net/narrate/internal/errors"
	"nickandperla.net/narrate/internal/parser"
)

// Address identifies a scene by canonical file, module and scene name.
type Address struct {
	File   string
	Module string
	Scene  string
}

func (a Address) String() string {
	return fmt.Sprintf("@file(%q)::%s::%s", a.File, a.Module, a.Scene)
}

// Resolved is a scene together with its address and enclosing module.
type Resolved struct {
	Address Address
	Module  *ast.Module
	Scene   *ast.Scene
}

// ReadFunc reads a whole file by path.
type ReadFunc func(path string) ([]byte, error)

type entry struct {
	file  *ast.File
	diags parser.Diagnostics
	err   error
}

// Loader caches parsed files for one session. It is not safe for
// concurrent use; each session owns its own Loader.
type Loader struct {
	cache    map[string]*entry
	readFile ReadFunc
	logger   *zap.Logger
	parses   int
}

// Option configures a Loader.
type Option func(*Loader)

// WithReadFunc replaces os.ReadFile.
func WithReadFunc(fn ReadFunc) Option {
	return func(l *Loader) { l.readFile = fn }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates an empty Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		cache:    make(map[string]*entry),
		readFile: os.ReadFile,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Canonical returns the cache key for a path: absolute, cleaned, and with
// symlinks evaluated when the file exists.
func Canonical(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("loader: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("loader: resolve path %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return filepath.Clean(abs), nil
}

// Parses returns how many files have been parsed.
func (l *Loader) Parses() int {
	return l.parses
}

// Cached returns the canonical paths of every file loaded so far, sorted.
func (l *Loader) Cached() []string {
	paths := make([]string, 0, len(l.cache))
	for p := range l.cache {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Load returns the parsed file at path, parsing it on first use. Files with
// error diagnostics fail to load; the failure is cached like a success.
func (l *Loader) Load(path string) (*ast.File, error) {
	e, err := l.load(path)
	if err != nil {
		return nil, err
	}
	return e.file, e.err
}

// Diagnostics loads the file and returns every parser finding, including
// warnings. It only fails when the file cannot be read.
func (l *Loader) Diagnostics(path string) (parser.Diagnostics, error) {
	e, err := l.load(path)
	if err != nil {
		return nil, err
	}
	return e.diags, nil
}

func (l *Loader) load(path string) (*entry, error) {
	key, err := Canonical(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIO, "loader: canonicalize "+path, err)
	}
	if e, ok := l.cache[key]; ok {
		l.logger.Debug("loader cache hit", zap.String("file", key))
		return e, nil
	}

	data, err := l.readFile(key)
	if err != nil {
		code := apperrors.CodeIO
		msg := "loader: read " + key
		if errors.Is(err, fs.ErrNotExist) {
			code = apperrors.CodeUnresolvedFile
			msg = "loader: file " + key + " not found"
		}
		l.logger.Debug("loader read failed", zap.String("file", key), zap.Error(err))
		return nil, apperrors.Wrap(code, msg, err)
	}

	l.parses++
	f, diags := parser.Parse(bytes.NewReader(data), key)
	e := &entry{file: f, diags: diags, err: diags.Err()}
	l.cache[key] = e

	for _, w := range diags.Warnings() {
		l.logger.Warn("parse warning", zap.String("diagnostic", w.String()))
	}
	l.logger.Debug("loader parsed file",
		zap.String("file", key),
		zap.Int("modules", len(f.Modules)),
		zap.Int("errors", len(diags.Errors())),
	)
	return e, nil
}

// Resolve loads file if needed and returns the named scene.
func (l *Loader) Resolve(file, module, scene string) (*Resolved, error) {
	f, err := l.Load(file)
	if err != nil {
		return nil, err
	}
	return lookup(f, module, scene)
}

// Lookup resolves an address against files that are already loaded. It
// never performs I/O.
func (l *Loader) Lookup(addr Address) (*Resolved, error) {
	e, ok := l.cache[addr.File]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeInvalidState, "loader: file %s has not been loaded", addr.File).WithAddress(addr.String())
	}
	if e.err != nil {
		return nil, e.err
	}
	return lookup(e.file, addr.Module, addr.Scene)
}

// ResolveTarget resolves an option target relative to the scene it appears
// in. Local targets are looked up in the already loaded file; remote paths
// are taken relative to the directory of from.File and loaded lazily.
func (l *Loader) ResolveTarget(from Address, target ast.Target) (*Resolved, error) {
	switch t := target.(type) {
	case ast.Local:
		module := t.Module
		if module == "" {
			module = from.Module
		}
		return l.Lookup(Address{File: from.File, Module: module, Scene: t.Scene})
	case ast.Remote:
		path := t.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(from.File), path)
		}
		return l.Resolve(path, t.Module, t.Scene)
	default:
		panic(fmt.Sprintf("loader: unhandled target type %T", target))
	}
}

func lookup(f *ast.File, module, scene string) (*Resolved, error) {
	addr := Address{File: f.Path, Module: module, Scene: scene}
	m := f.Module(module)
	if m == nil {
		return nil, apperrors.Newf(apperrors.CodeUnresolvedModule,
			"loader: module %q not found in %s", module, f.Path).WithAddress(addr.String())
	}
	s := m.Scene(scene)
	if s == nil {
		return nil, apperrors.Newf(apperrors.CodeUnresolvedScene,
			"loader: scene %q not found in module %q of %s", scene, module, f.Path).WithAddress(addr.String())
	}
	return &Resolved{Address: addr, Module: m, Scene: s}, nil
}
