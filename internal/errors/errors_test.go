package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := At(CodeLexical, Position{File: "a.nar", Line: 3, Column: 7}, "unexpected character '$'")
	if got := err.Error(); got != "a.nar:3:7: unexpected character '$'" {
		t.Errorf("unexpected message %q", got)
	}

	wrapped := Wrap(CodeIO, "loader: read /tmp/x.nar", fs.ErrPermission)
	if got := wrapped.Error(); got != "loader: read /tmp/x.nar: permission denied" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := Newf(CodeDeadEnd, "scene %q has no visible options", "cell")
	chained := fmt.Errorf("session: %w", err)

	if !stderrors.Is(chained, ErrDeadEnd) {
		t.Error("expected chained error to match ErrDeadEnd")
	}
	if stderrors.Is(chained, ErrInvalidChoice) {
		t.Error("did not expect match against a different code")
	}
	if CodeOf(chained) != CodeDeadEnd {
		t.Errorf("expected DEAD_END, got %s", CodeOf(chained))
	}
	if CodeOf(fs.ErrNotExist) != CodeUnknown {
		t.Error("expected UNKNOWN for foreign errors")
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	err := Wrap(CodeIO, "read failed", fs.ErrNotExist)
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Error("expected cause to be reachable")
	}
}

func TestCodeClassification(t *testing.T) {
	if !CodeInvalidChoice.Recoverable() {
		t.Error("invalid choice must be recoverable")
	}
	for _, c := range []Code{CodeDeadEnd, CodeStructural, CodeUnresolvedScene, CodeCancelled} {
		if c.Recoverable() {
			t.Errorf("%s must not be recoverable", c)
		}
	}
	if !CodeUnresolvedModule.Unresolved() || CodeIO.Unresolved() {
		t.Error("unexpected Unresolved classification")
	}
}

func TestWithAddressCopies(t *testing.T) {
	base := New(CodeUnresolvedScene, "no such scene")
	withAddr := base.WithAddress("dungeon::cell")
	if base.Address != "" {
		t.Error("WithAddress must not mutate the receiver")
	}
	if withAddr.Address != "dungeon::cell" {
		t.Errorf("unexpected address %q", withAddr.Address)
	}
}
