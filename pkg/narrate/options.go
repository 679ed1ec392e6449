// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package narrate

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"nickandperla.net/narrate/internal/store"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithInput sets the choice reader.
func WithInput(reader ChoiceReader) Option {
	return func(r *Runtime) {
		r.reader = reader
	}
}

// WithReader reads one choice per line from an io.Reader.
func WithReader(in io.Reader) Option {
	return func(r *Runtime) {
		r.reader = LineReader(in, nil, "")
	}
}

// WithOutput sets the renderer.
func WithOutput(renderer Renderer) Option {
	return func(r *Runtime) {
		r.renderer = renderer
	}
}

// WithWriter renders plain text to an io.Writer.
func WithWriter(w io.Writer) Option {
	return func(r *Runtime) {
		r.renderer = NewTextRenderer(w)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithInventory seeds every session's inventory.
func WithInventory(items ...string) Option {
	return func(r *Runtime) {
		r.inventory = append(r.inventory, items...)
	}
}

// WithMaxRetries ends a session after n consecutive invalid choices.
func WithMaxRetries(n int) Option {
	return func(r *Runtime) {
		r.maxRetries = n
	}
}

// WithSQLiteTranscript records sessions in a SQLite database at path. An
// open failure is reported by Play.
func WithSQLiteTranscript(path string) Option {
	return func(r *Runtime) {
		s, err := store.NewSQLite(path)
		if err != nil {
			r.err = fmt.Errorf("narrate: open transcript %s: %w", path, err)
			return
		}
		r.transcript = s
	}
}

// WithMemoryTranscript records sessions in memory (for testing).
func WithMemoryTranscript() Option {
	return func(r *Runtime) {
		r.transcript = store.NewMemory()
	}
}

// WithTranscript sets a custom transcript store.
func WithTranscript(t Transcript) Option {
	return func(r *Runtime) {
		r.transcript = t
	}
}
