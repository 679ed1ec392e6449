// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"context"
	"io"

	"nickandperla.net/narrate/internal/store"
)

// Choice is a visible option as shown to the player. Index is 1-based.
type Choice struct {
	Index int
	Label string
}

// ChoiceReader requests a choice from the host. count is the number of
// visible options. Returning io.EOF ends the session as cancelled.
type ChoiceReader func(ctx context.Context, count int) (string, error)

// Renderer receives everything a session shows to the player.
type Renderer interface {
	Flavortext(lines []string) error
	Options(choices []Choice) error
	Error(message string) error
}

// Recorder receives the transcript of a session. store.Store satisfies it.
type Recorder interface {
	BeginSession(id, entry string) error
	Append(sessionID string, kind store.EventKind, address, detail string) error
	EndSession(id, outcome string) error
}

// ScriptedInput returns a ChoiceReader that replays inputs in order and
// then reports io.EOF.
func ScriptedInput(inputs ...string) ChoiceReader {
	i := 0
	return func(ctx context.Context, _ int) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if i >= len(inputs) {
			return "", io.EOF
		}
		in := inputs[i]
		i++
		return in, nil
	}
}

type discardRenderer struct{}

func (discardRenderer) Flavortext([]string) error { return nil }
func (discardRenderer) Options([]Choice) error    { return nil }
func (discardRenderer) Error(string) error        { return nil }
