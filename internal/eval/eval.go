// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval runs a narrate session: a state machine that presents
// scenes, applies inventory directives and follows the player's choices
// across files.
package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nickandperla.net/narrate/internal/ast"
	apperrors "nickandperla.net/narrate/internal/errors"
	"nickandperla.net/narrate/internal/inventory"
	"nickandperla.net/narrate/internal/loader"
	"nickandperla.net/narrate/internal/store"
)

// State is the lifecycle state of a session.
type State int

const (
	AwaitingEntry State = iota
	Presenting
	AwaitingChoice
	Transitioning
	Ended
)

var stateNames = [...]string{
	AwaitingEntry:  "AwaitingEntry",
	Presenting:     "Presenting",
	AwaitingChoice: "AwaitingChoice",
	Transitioning:  "Transitioning",
	Ended:          "Ended",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type visibleOption struct {
	choice Choice
	option *ast.Option
}

// Evaluator drives one session. It owns the session's inventory and loader
// and is not safe for concurrent use; cancel a running Run through its
// context.
type Evaluator struct {
	id         string
	loader     *loader.Loader
	renderer   Renderer
	reader     ChoiceReader
	recorder   Recorder
	logger     *zap.Logger
	maxRetries int

	state   State
	current *loader.Resolved
	inv     *inventory.Inventory
	visible []visibleOption
	retries int
	began   bool
	err     error
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLoader sets the loader. By default each Evaluator gets its own.
func WithLoader(l *loader.Loader) Option {
	return func(e *Evaluator) { e.loader = l }
}

// WithRenderer sets the output boundary.
func WithRenderer(r Renderer) Option {
	return func(e *Evaluator) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithChoiceReader sets the input boundary used by Run.
func WithChoiceReader(r ChoiceReader) Option {
	return func(e *Evaluator) { e.reader = r }
}

// WithRecorder sets the transcript recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Evaluator) { e.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithInventory seeds the inventory before the entry scene.
func WithInventory(items ...string) Option {
	return func(e *Evaluator) { e.inv = inventory.New(items...) }
}

// WithMaxRetries ends the session after n consecutive invalid choices.
// Zero means re-prompt forever.
func WithMaxRetries(n int) Option {
	return func(e *Evaluator) { e.maxRetries = n }
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(e *Evaluator) { e.id = id }
}

// New creates an Evaluator in the AwaitingEntry state.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		renderer: discardRenderer{},
		logger:   zap.NewNop(),
		inv:      inventory.New(),
		state:    AwaitingEntry,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.id == "" {
		e.id = uuid.NewString()
	}
	if e.loader == nil {
		e.loader = loader.New(loader.WithLogger(e.logger))
	}
	e.logger = e.logger.With(zap.String("session", e.id))
	return e
}

// ID returns the session identifier.
func (e *Evaluator) ID() string { return e.id }

// State returns the current state.
func (e *Evaluator) State() State { return e.state }

// Err returns the error that ended the session, or nil.
func (e *Evaluator) Err() error { return e.err }

// Loader returns the session's loader.
func (e *Evaluator) Loader() *loader.Loader { return e.loader }

// Position returns the address of the current scene. It is the zero
// Address before the entry scene has been entered.
func (e *Evaluator) Position() loader.Address {
	if e.current == nil {
		return loader.Address{}
	}
	return e.current.Address
}

// Inventory returns a copy of the current inventory.
func (e *Evaluator) Inventory() *inventory.Inventory {
	return e.inv.Clone()
}

// Visible returns the options currently offered, in display order. It is
// empty unless the session is AwaitingChoice.
func (e *Evaluator) Visible() []Choice {
	out := make([]Choice, len(e.visible))
	for i, v := range e.visible {
		out[i] = v.choice
	}
	return out
}

// Start resolves the entry scene and presents it.
func (e *Evaluator) Start(ctx context.Context, file, module, scene string) error {
	if e.state != AwaitingEntry {
		return apperrors.Newf(apperrors.CodeInvalidState, "eval: cannot start a session in state %s", e.state)
	}
	entry := loader.Address{File: file, Module: module, Scene: scene}.String()
	if e.recorder != nil {
		if err := e.recorder.BeginSession(e.id, entry); err != nil {
			e.logger.Warn("transcript begin failed", zap.Error(err))
		} else {
			e.began = true
		}
	}
	e.logger.Info("session started", zap.String("entry", entry))

	if err := ctx.Err(); err != nil {
		return e.end(cancelled(err))
	}
	r, err := e.loader.Resolve(file, module, scene)
	if err != nil {
		return e.end(err)
	}
	return e.enter(ctx, r)
}

// Choose applies a choice from the player. An input that is not an integer
// in [1, N] returns an INVALID_CHOICE error and leaves the session waiting
// on the same options.
func (e *Evaluator) Choose(ctx context.Context, input string) error {
	if e.state != AwaitingChoice {
		return apperrors.Newf(apperrors.CodeInvalidState, "eval: no choice pending in state %s", e.state)
	}
	if err := ctx.Err(); err != nil {
		return e.end(cancelled(err))
	}

	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > len(e.visible) {
		return e.reject(input)
	}

	picked := e.visible[n-1]
	from := e.current.Address
	e.record(store.EventChoice, fmt.Sprintf("%d: %s", n, picked.choice.Label))
	e.logger.Debug("choice",
		zap.Int("index", n),
		zap.String("label", picked.choice.Label),
		zap.Stringer("target", picked.option.Target),
	)

	e.state = Transitioning
	e.visible = nil
	r, err := e.loader.ResolveTarget(from, picked.option.Target)
	if err != nil {
		return e.end(atOption(err, from.File, picked.option))
	}
	return e.enter(ctx, r)
}

// Cancel ends the session as cancelled. It has no effect once Ended.
func (e *Evaluator) Cancel() {
	if e.state == Ended {
		return
	}
	e.end(apperrors.New(apperrors.CodeCancelled, "eval: session cancelled"))
}

// Run starts the session and reads choices until it ends. It always
// returns the terminal error; a CANCELLED error means the host ended the
// session through ctx or by closing its input.
func (e *Evaluator) Run(ctx context.Context, file, module, scene string) error {
	if e.reader == nil {
		return apperrors.New(apperrors.CodeInvalidState, "eval: no choice reader configured")
	}
	if err := e.Start(ctx, file, module, scene); err != nil {
		return err
	}
	for e.state == AwaitingChoice {
		input, err := e.reader(ctx, len(e.visible))
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return e.end(cancelled(err))
			}
			return e.end(apperrors.Wrap(apperrors.CodeIO, "eval: read choice", err))
		}
		if err := e.Choose(ctx, input); err != nil && e.state == Ended {
			return err
		}
	}
	return e.err
}

// enter applies the scene's directives and presents it. Directives run on
// a copy of the inventory that is committed only once cancellation has been
// checked, so a cancelled transition leaves no partial effects.
func (e *Evaluator) enter(ctx context.Context, r *loader.Resolved) error {
	e.state = Presenting

	next := e.inv.Clone()
	var changes []string
	for _, d := range r.Scene.Directives {
		switch d := d.(type) {
		case ast.Get:
			if next.Add(d.Item) {
				changes = append(changes, d.String())
			}
		case ast.Lose:
			if next.Remove(d.Item) {
				changes = append(changes, d.String())
			}
		default:
			panic(fmt.Sprintf("eval: unhandled directive type %T", d))
		}
	}
	if err := ctx.Err(); err != nil {
		return e.end(cancelled(err))
	}

	e.current = r
	e.inv = next
	e.retries = 0
	e.record(store.EventEnter, "")
	for _, c := range changes {
		e.record(store.EventInventory, c)
	}
	e.logger.Debug("entered scene",
		zap.Stringer("address", r.Address),
		zap.Strings("changes", changes),
		zap.Strings("inventory", next.Items()),
	)

	if r.Scene.Flavortext != nil {
		if err := e.renderer.Flavortext(r.Scene.Flavortext); err != nil {
			return e.end(outputError(err))
		}
	}

	visible := e.filter(r.Scene.Options)
	if len(visible) == 0 {
		pos := apperrors.Position{File: r.Address.File, Line: r.Scene.Pos.Line, Column: r.Scene.Pos.Column}
		msg := fmt.Sprintf("eval: scene %q has no available options", r.Scene.Name)
		return e.end(apperrors.At(apperrors.CodeDeadEnd, pos, msg).WithAddress(r.Address.String()))
	}
	for _, v := range visible {
		if _, local := v.option.Target.(ast.Local); !local {
			continue
		}
		if _, err := e.loader.ResolveTarget(r.Address, v.option.Target); err != nil {
			return e.end(atOption(err, r.Address.File, v.option))
		}
	}

	e.visible = visible
	e.state = AwaitingChoice
	return e.present()
}

func (e *Evaluator) filter(options []*ast.Option) []visibleOption {
	var visible []visibleOption
	for _, o := range options {
		if !e.satisfied(o.Guard) {
			continue
		}
		visible = append(visible, visibleOption{
			choice: Choice{Index: len(visible) + 1, Label: o.Label},
			option: o,
		})
	}
	return visible
}

// satisfied reports whether every predicate of a guard holds. An empty
// guard always holds.
func (e *Evaluator) satisfied(guard []ast.Predicate) bool {
	for _, p := range guard {
		switch p := p.(type) {
		case ast.HasItem:
			if !e.inv.Has(p.Item) {
				return false
			}
		case ast.LacksItem:
			if e.inv.Has(p.Item) {
				return false
			}
		default:
			panic(fmt.Sprintf("eval: unhandled predicate type %T", p))
		}
	}
	return true
}

func (e *Evaluator) present() error {
	if err := e.renderer.Options(e.Visible()); err != nil {
		return e.end(outputError(err))
	}
	return nil
}

func (e *Evaluator) reject(input string) error {
	e.retries++
	invalid := apperrors.Newf(apperrors.CodeInvalidChoice,
		"invalid choice %q: enter a number from 1 to %d", input, len(e.visible),
	).WithAddress(e.current.Address.String())
	e.record(store.EventInvalidChoice, input)
	e.logger.Debug("invalid choice", zap.String("input", input), zap.Int("retries", e.retries))

	if err := e.renderer.Error(invalid.Message); err != nil {
		return e.end(outputError(err))
	}
	if e.maxRetries > 0 && e.retries >= e.maxRetries {
		return e.end(apperrors.Newf(apperrors.CodeRetriesExhausted,
			"eval: %d invalid choices in a row", e.retries,
		).WithAddress(e.current.Address.String()))
	}
	if err := e.present(); err != nil {
		return err
	}
	return invalid
}

func (e *Evaluator) end(err error) error {
	e.state = Ended
	e.err = err
	e.visible = nil

	code := apperrors.CodeOf(err)
	if e.began {
		e.record(store.EventEnd, err.Error())
		if rerr := e.recorder.EndSession(e.id, string(code)); rerr != nil {
			e.logger.Warn("transcript end failed", zap.Error(rerr))
		}
	}
	files := zap.Strings("files", e.loader.Cached())
	if code == apperrors.CodeCancelled {
		e.logger.Info("session cancelled", zap.Stringer("position", e.Position()), files)
	} else {
		e.logger.Warn("session ended", zap.String("code", string(code)), zap.Error(err), files)
	}
	return err
}

func (e *Evaluator) record(kind store.EventKind, detail string) {
	if !e.began {
		return
	}
	addr := ""
	if e.current != nil {
		addr = e.current.Address.String()
	}
	if err := e.recorder.Append(e.id, kind, addr, detail); err != nil {
		e.logger.Warn("transcript append failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func cancelled(cause error) error {
	return apperrors.Wrap(apperrors.CodeCancelled, "eval: session cancelled", cause)
}

func outputError(cause error) error {
	return apperrors.Wrap(apperrors.CodeIO, "eval: write output", cause)
}

// atOption attaches the option's source position to a resolution error
// that has none.
func atOption(err error, file string, o *ast.Option) error {
	var ae *apperrors.Error
	if !errors.As(err, &ae) || !ae.Position.IsZero() {
		return err
	}
	c := *ae
	c.Position = apperrors.Position{File: file, Line: o.Pos.Line, Column: o.Pos.Column}
	return &c
}
