package narrate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nickandperla.net/narrate/internal/store"
)

const dungeon = "testdata/dungeon.nar"

func TestPlayTextSession(t *testing.T) {
	var out bytes.Buffer
	r := New(WithReader(strings.NewReader("2\n5\n1\n")), WithWriter(&out))
	defer r.Close()

	err := r.Play(context.Background(), dungeon, "dungeon", "wake-up-in-dungeon")
	require.Error(t, err)
	assert.True(t, IsHostTermination(err), "input EOF should end the session as cancelled, got %v", err)
	assert.Equal(t, "CANCELLED", Code(err))

	text := out.String()
	assert.Contains(t, text, "You wake up on the cold stone floor of a dungeon cell.\n")
	assert.Contains(t, text, "[1] Look out the window\n[2] Blindly search your cell\n[3] Cry\n")
	assert.Contains(t, text, "[1] Try to figure out where you are\n")
	assert.Contains(t, text, "! invalid choice \"5\": enter a number from 1 to 1\n")
	assert.Contains(t, text, "[1] Pry up the flagstone\n[2] Go back to sleep\n")
	assert.NotContains(t, text, "Unlock the cell door")
}

func TestPlayWithInventory(t *testing.T) {
	var out bytes.Buffer
	r := New(
		WithInput(func(context.Context, int) (string, error) { return "", io.EOF }),
		WithWriter(&out),
		WithInventory("golden KEY"),
	)
	err := r.Play(context.Background(), dungeon, "dungeon", "wake-up-in-dungeon")
	require.ErrorIs(t, err, ErrCancelled)

	out.Reset()
	r = New(WithReader(strings.NewReader("2\n")), WithWriter(&out), WithInventory("golden KEY"))
	_ = r.Play(context.Background(), dungeon, "dungeon", "wake-up-in-dungeon")
	assert.Contains(t, out.String(), "[1] Unlock the cell door\n[2] Try to figure out where you are\n")
}

func TestPlayTerminalErrors(t *testing.T) {
	r := New(WithReader(strings.NewReader("")), WithWriter(io.Discard))

	err := r.Play(context.Background(), dungeon, "dungeon", "missing")
	assert.ErrorIs(t, err, ErrUnresolvedScene)
	assert.False(t, IsHostTermination(err))

	err = r.Play(context.Background(), "testdata/absent.nar", "dungeon", "x")
	assert.ErrorIs(t, err, ErrUnresolvedFile)
}

func TestPlayRetriesExhausted(t *testing.T) {
	r := New(WithReader(strings.NewReader("x\ny\n")), WithWriter(io.Discard), WithMaxRetries(2))
	err := r.Play(context.Background(), dungeon, "dungeon", "wake-up-in-dungeon")
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestSessionsAreIndependent(t *testing.T) {
	r := New(WithReader(strings.NewReader("2\n")), WithWriter(io.Discard), WithMemoryTranscript())
	defer r.Close()
	ctx := context.Background()

	require.ErrorIs(t, r.Play(ctx, dungeon, "dungeon", "wake-up-in-dungeon"), ErrCancelled)
	// The second session starts with an empty inventory and sees the map
	// scene's options afresh.
	var out bytes.Buffer
	r2 := New(WithReader(strings.NewReader("2\n")), WithWriter(&out), WithTranscript(r.Transcript()))
	require.ErrorIs(t, r2.Play(ctx, dungeon, "dungeon", "wake-up-in-dungeon"), ErrCancelled)
	assert.NotContains(t, out.String(), "Unlock the cell door")

	sessions, err := r.Transcript().Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.NotEqual(t, sessions[0].ID, sessions[1].ID)
}

func TestSQLiteTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	r := New(WithReader(strings.NewReader("2\n1\n")), WithWriter(io.Discard), WithSQLiteTranscript(path))
	require.ErrorIs(t, r.Play(context.Background(), dungeon, "dungeon", "wake-up-in-dungeon"), ErrCancelled)
	require.NoError(t, r.Close())

	s, err := store.NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	version, err := s.GetMetadata(MetaVersion)
	require.NoError(t, err)
	assert.Equal(t, Version, version)
	entry, err := s.GetMetadata(MetaLastEntry)
	require.NoError(t, err)
	assert.Equal(t, `@file("testdata/dungeon.nar")::dungeon::wake-up-in-dungeon`, entry)

	sessions, err := s.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "CANCELLED", sessions[0].Outcome)
	assert.Contains(t, sessions[0].Entry, "::dungeon::wake-up-in-dungeon")

	events, err := s.Events(sessions[0].ID, 0)
	require.NoError(t, err)
	var kinds []store.EventKind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []store.EventKind{
		store.EventEnter,
		store.EventChoice, store.EventEnter, store.EventInventory,
		store.EventChoice, store.EventEnter,
		store.EventEnd,
	}, kinds)
}

func TestMemoryTranscriptMetadata(t *testing.T) {
	r := New(WithReader(strings.NewReader("")), WithWriter(io.Discard), WithMemoryTranscript())
	defer r.Close()
	ms, ok := r.Transcript().(store.MetadataStore)
	require.True(t, ok)

	version, _ := ms.GetMetadata(MetaVersion)
	assert.Equal(t, Version, version)
	last, _ := ms.GetMetadata(MetaLastEntry)
	assert.Empty(t, last)

	require.ErrorIs(t, r.Play(context.Background(), dungeon, "dungeon", "wake-up-in-dungeon"), ErrCancelled)
	last, _ = ms.GetMetadata(MetaLastEntry)
	assert.Equal(t, `@file("testdata/dungeon.nar")::dungeon::wake-up-in-dungeon`, last)
}

func TestSQLiteTranscriptOpenFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "runs.db")
	r := New(WithReader(strings.NewReader("")), WithWriter(io.Discard), WithSQLiteTranscript(path))
	err := r.Play(context.Background(), dungeon, "dungeon", "wake-up-in-dungeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open transcript")
}

func TestCheck(t *testing.T) {
	r := New()
	diags, err := r.Check(dungeon)
	require.NoError(t, err)
	assert.Empty(t, diags)

	bad := filepath.Join(t.TempDir(), "bad.nar")
	require.NoError(t, os.WriteFile(bad, []byte("@module m:\n@scene a:\n select { };\n@scene b:\n flavortext { \"x\" };\n@end-module n\n"), 0o644))
	diags, err = r.Check(bad)
	require.NoError(t, err)
	assert.Len(t, diags.Errors(), 2)
	assert.Len(t, diags.Warnings(), 1)
	assert.ErrorIs(t, diags.Err(), ErrStructural)

	_, err = r.Check(filepath.Join(t.TempDir(), "absent.nar"))
	assert.ErrorIs(t, err, ErrUnresolvedFile)
}

func TestLineReader(t *testing.T) {
	var prompts bytes.Buffer
	read := LineReader(strings.NewReader("1\r\n 2 \nlast"), &prompts, "> ")
	ctx := context.Background()

	for _, want := range []string{"1", " 2 ", "last"} {
		got, err := read(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := read(ctx, 3)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > > ", prompts.String())
}

func TestLineReaderCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	read := LineReader(pr, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := read(ctx, 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTextRendererPropagatesWriteErrors(t *testing.T) {
	boom := errors.New("closed")
	tr := NewTextRenderer(failingWriter{boom})
	assert.ErrorIs(t, tr.Flavortext([]string{"a"}), boom)
	assert.ErrorIs(t, tr.Options([]Choice{{Index: 1, Label: "x"}}), boom)
	assert.ErrorIs(t, tr.Error("bad"), boom)
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }
