// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package narrate provides the public API for the narrate interpreter.
package narrate

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	apperrors "nickandperla.net/narrate/internal/errors"
	"nickandperla.net/narrate/internal/eval"
	"nickandperla.net/narrate/internal/loader"
	"nickandperla.net/narrate/internal/parser"
	"nickandperla.net/narrate/internal/store"
)

// Version is written to the metadata of every transcript the runtime opens.
const Version = "0.1.0"

// Transcript metadata keys.
const (
	MetaVersion   = "narrate_version"
	MetaLastEntry = "last_entry"
)

// Choice is a visible option. Index is 1-based.
type Choice = eval.Choice

// ChoiceReader requests a choice from the player.
type ChoiceReader = eval.ChoiceReader

// Renderer receives flavortext, option lists and invalid-choice messages.
type Renderer = eval.Renderer

// Transcript stores session transcripts.
type Transcript = store.Store

// Diagnostics are the parser findings for a file.
type Diagnostics = parser.Diagnostics

// Error is the structured error returned by every operation.
type Error = apperrors.Error

// Sentinels for errors.Is.
var (
	ErrLexical          = apperrors.ErrLexical
	ErrStructural       = apperrors.ErrStructural
	ErrUnresolvedFile   = apperrors.ErrUnresolvedFile
	ErrUnresolvedModule = apperrors.ErrUnresolvedModule
	ErrUnresolvedScene  = apperrors.ErrUnresolvedScene
	ErrIO               = apperrors.ErrIO
	ErrDeadEnd          = apperrors.ErrDeadEnd
	ErrInvalidChoice    = apperrors.ErrInvalidChoice
	ErrCancelled        = apperrors.ErrCancelled
	ErrRetriesExhausted = apperrors.ErrRetriesExhausted
)

// Runtime plays narrate stories. Each Play call is an independent session
// with its own inventory and file cache; only the transcript is shared.
type Runtime struct {
	reader     ChoiceReader
	renderer   Renderer
	logger     *zap.Logger
	inventory  []string
	maxRetries int
	transcript Transcript
	err        error // deferred option failure
}

// New creates a runtime with the given options. By default it reads
// choices from stdin and renders text to stdout.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reader == nil {
		r.reader = LineReader(os.Stdin, nil, "")
	}
	if r.renderer == nil {
		r.renderer = NewTextRenderer(os.Stdout)
	}
	r.setMetadata(MetaVersion, Version)
	return r
}

// setMetadata records a key on transcripts that support metadata. Failures
// are logged only.
func (r *Runtime) setMetadata(key, value string) {
	ms, ok := r.transcript.(store.MetadataStore)
	if !ok {
		return
	}
	if err := ms.SetMetadata(key, value); err != nil {
		r.logger.Warn("transcript metadata write failed", zap.String("key", key), zap.Error(err))
	}
}

// Play runs a session from the given entry scene until it ends and
// returns the terminal error. Use IsHostTermination to tell a session the
// host ended from one that failed.
func (r *Runtime) Play(ctx context.Context, file, module, scene string) error {
	if r.err != nil {
		return r.err
	}
	opts := []eval.Option{
		eval.WithChoiceReader(r.reader),
		eval.WithRenderer(r.renderer),
		eval.WithLogger(r.logger),
		eval.WithInventory(r.inventory...),
		eval.WithMaxRetries(r.maxRetries),
	}
	if r.transcript != nil {
		opts = append(opts, eval.WithRecorder(r.transcript))
		r.setMetadata(MetaLastEntry, loader.Address{File: file, Module: module, Scene: scene}.String())
	}
	return eval.New(opts...).Run(ctx, file, module, scene)
}

// Check parses a file without running it and returns every diagnostic,
// warnings included. The error is non-nil only when the file cannot be read.
func (r *Runtime) Check(file string) (Diagnostics, error) {
	return loader.New(loader.WithLogger(r.logger)).Diagnostics(file)
}

// Transcript returns the configured transcript store, or nil.
func (r *Runtime) Transcript() Transcript {
	return r.transcript
}

// Close releases resources.
func (r *Runtime) Close() error {
	if r.transcript != nil {
		return r.transcript.Close()
	}
	return nil
}

// IsHostTermination reports whether err ended a session because the host
// cancelled it or closed its input.
func IsHostTermination(err error) bool {
	return errors.Is(err, apperrors.ErrCancelled)
}

// Code returns the machine-readable code of err, or "UNKNOWN".
func Code(err error) string {
	return string(apperrors.CodeOf(err))
}
