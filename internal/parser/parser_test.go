package parser

import (
	"errors"
	"os"
	"strings"
	"testing"

	"nickandperla.net/narrate/internal/ast"
	apperrors "nickandperla.net/narrate/internal/errors"
)

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, diags := ParseString(src, "test.nar")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", diags)
	}
	return f
}

func TestParseCanonicalDungeon(t *testing.T) {
	src, err := os.ReadFile("testdata/dungeon.nar")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	f := mustParse(t, string(src))

	if len(f.Modules) != 1 || f.Modules[0].Name != "dungeon" {
		t.Fatalf("expected single module dungeon, got %d modules", len(f.Modules))
	}
	m := f.Module("dungeon")
	var names []string
	for _, s := range m.Scenes {
		names = append(names, s.Name)
	}
	if got := strings.Join(names, ","); got != "wake-up-in-dungeon,find-hidden-map,get-yelled-at-by-guards" {
		t.Errorf("unexpected scenes %s", got)
	}

	wake := m.Scene("wake-up-in-dungeon")
	if len(wake.Flavortext) != 3 {
		t.Errorf("expected 3 flavortext lines, got %d", len(wake.Flavortext))
	}
	var labels []string
	for _, o := range wake.Options {
		labels = append(labels, o.Label)
	}
	if got := strings.Join(labels, "|"); got != "Look out the window|Blindly search your cell|Cry" {
		t.Errorf("unexpected labels %s", got)
	}

	find := m.Scene("find-hidden-map")
	if len(find.Directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(find.Directives))
	}
	if g, ok := find.Directives[0].(ast.Get); !ok || g.Item != "waterlogged treasure map" {
		t.Errorf("unexpected directive %v", find.Directives[0])
	}
	guarded := find.Options[0]
	if len(guarded.Guard) != 1 {
		t.Fatalf("expected guarded first option")
	}
	if h, ok := guarded.Guard[0].(ast.HasItem); !ok || h.Item != "Golden key" {
		t.Errorf("unexpected guard %v", guarded.Guard[0])
	}
	remote, ok := find.Options[1].Target.(ast.Remote)
	if !ok {
		t.Fatalf("expected remote target, got %T", find.Options[1].Target)
	}
	if remote.File != "./foo.nar" || remote.Module != "dungeon" || remote.Scene != "use-map-to-locate-self" {
		t.Errorf("unexpected remote target %s", remote)
	}
}

func TestParseDirectiveOrderPreserved(t *testing.T) {
	f := mustParse(t, `
@module m:
@scene s:
    get "a";
    lose "b";
    flavortext { "text" };
    get "c";
    select { "x" => s };
@end-module m`)
	s := f.Module("m").Scene("s")
	var got []string
	for _, d := range s.Directives {
		got = append(got, d.String())
	}
	want := `get "a"|lose "b"|get "c"`
	if strings.Join(got, "|") != want {
		t.Errorf("expected %s, got %s", want, strings.Join(got, "|"))
	}
}

func TestParseFlavortextOptional(t *testing.T) {
	f := mustParse(t, `@module m: @scene s: select { "x" => s }; @end-module m`)
	if f.Module("m").Scene("s").Flavortext != nil {
		t.Error("expected nil flavortext")
	}
}

func TestParseGuards(t *testing.T) {
	f := mustParse(t, `
@module m:
@scene s:
    select {
        has "lamp", has no "fear" ? "Enter the cave" => s,
        "Leave" => other::t,
    };
@end-module m`)
	opts := f.Module("m").Scene("s").Options
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if len(opts[0].Guard) != 2 {
		t.Fatalf("expected 2 predicates, got %d", len(opts[0].Guard))
	}
	if _, ok := opts[0].Guard[1].(ast.LacksItem); !ok {
		t.Errorf("expected LacksItem, got %T", opts[0].Guard[1])
	}
	local, ok := opts[1].Target.(ast.Local)
	if !ok || local.Module != "other" || local.Scene != "t" {
		t.Errorf("unexpected target %v", opts[1].Target)
	}
}

func TestParseTrailingPunctuationOptional(t *testing.T) {
	srcs := []string{
		`@module m: @scene s: select { "x" => s }; @end-scene; @end-module m;`,
		`@module m: @scene s: select { "x" => s }; @end-scene @end-module m`,
		`@module m: @scene s: select { "x" => s }; @end-module`,
	}
	for _, src := range srcs {
		f, diags := ParseString(src, "")
		if len(diags) != 0 {
			t.Errorf("%s: unexpected diagnostics:\n%s", src, diags)
		}
		if f.Module("m") == nil {
			t.Errorf("%s: module not parsed", src)
		}
	}
}

func TestParseMismatchedEndModuleIsWarning(t *testing.T) {
	f, diags := ParseString(`@module m: @scene s: select { "x" => s }; @end-module n`, "w.nar")
	if diags.HasErrors() {
		t.Fatalf("mismatch must not be an error:\n%s", diags)
	}
	if len(diags.Warnings()) != 1 {
		t.Fatalf("expected one warning, got %d", len(diags.Warnings()))
	}
	if !strings.Contains(diags[0].Message, "does not match") {
		t.Errorf("unexpected warning %q", diags[0].Message)
	}
	if diags.Err() != nil {
		t.Error("warnings must not produce an error")
	}
	if f.Module("m") == nil {
		t.Error("module should still be parsed")
	}
}

func TestParseStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
		line int
	}{
		{
			"missing select",
			"@module m:\n@scene s:\n    flavortext { \"x\" };\n@end-module m",
			`scene "s" has no select block`, 2,
		},
		{
			"empty select",
			"@module m:\n@scene s:\n    select { };\n@end-module m",
			`select block of scene "s" has no options`, 3,
		},
		{
			"duplicate flavortext",
			"@module m:\n@scene s:\n flavortext { \"a\" };\n flavortext { \"b\" };\n select { \"x\" => s };\n@end-module m",
			"more than one flavortext", 4,
		},
		{
			"duplicate select",
			"@module m:\n@scene s:\n select { \"a\" => s };\n select { \"b\" => s };\n@end-module m",
			`scene "s" has more than one select block (first at 3:2)`, 4,
		},
		{
			"keyword as scene name",
			"@module m:\n@scene select: select { \"x\" => s };\n@end-module m",
			"reserved words cannot be names", 2,
		},
		{
			"missing arrow",
			"@module m:\n@scene s:\n    select { \"x\" s };\n@end-module m",
			`expected "=>" after option label`, 3,
		},
		{
			"scene outside module",
			"@scene s: select { \"x\" => s };",
			"expected @module", 1,
		},
		{
			"missing end-module",
			"@module m:\n@scene s: select { \"x\" => s };",
			`module "m" is missing @end-module`, 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := ParseString(tt.src, "bad.nar")
			errs := diags.Errors()
			if len(errs) == 0 {
				t.Fatal("expected an error diagnostic")
			}
			found := false
			for _, d := range errs {
				if strings.Contains(d.Message, tt.msg) && d.Pos.Line == tt.line {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %q on line %d, got:\n%s", tt.msg, tt.line, diags)
			}
			if !errors.Is(diags.Err(), apperrors.ErrStructural) {
				t.Errorf("expected structural error, got %v", diags.Err())
			}
		})
	}
}

func TestParseDuplicatesReportBothPositions(t *testing.T) {
	src := `@module m:
@scene s: select { "x" => s };
@scene s: select { "y" => s };
@end-module m
@module m:
@end-module m`
	_, diags := ParseString(src, "dup.nar")
	errs := diags.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got:\n%s", diags)
	}
	if errs[0].Pos.Line != 3 || !strings.Contains(errs[0].Message, "first declared at 2:1") {
		t.Errorf("unexpected scene duplicate diagnostic: %s", errs[0])
	}
	if errs[1].Pos.Line != 5 || !strings.Contains(errs[1].Message, "first declared at 1:1") {
		t.Errorf("unexpected module duplicate diagnostic: %s", errs[1])
	}
}

func TestParseRecoversAndCollects(t *testing.T) {
	src := `@module m:
@scene a:
    select { "x" => };
@scene b:
    get 42;
@scene c:
    select { "ok" => a };
@end-module m`
	f, diags := ParseString(src, "multi.nar")
	if len(diags.Errors()) < 2 {
		t.Fatalf("expected at least 2 errors, got:\n%s", diags)
	}
	// Scene c parses even though a and b were malformed.
	if f.Module("m") == nil || f.Module("m").Scene("c") == nil {
		t.Error("expected recovery to parse scene c")
	}
	if err := diags.Err(); err == nil || !strings.Contains(err.Error(), "more error") {
		t.Errorf("expected aggregated error, got %v", err)
	}
}

func TestParseLexicalErrorStops(t *testing.T) {
	src := "@module m:\n@scene s: select { \"x\" => s } $;\n@end-module m"
	_, diags := ParseString(src, "lex.nar")
	errs := diags.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected only the lexical error, got:\n%s", diags)
	}
	if errs[0].Code != apperrors.CodeLexical {
		t.Errorf("expected LEXICAL, got %s", errs[0].Code)
	}
	if errs[0].Pos.Line != 2 || errs[0].Pos.Column != 31 {
		t.Errorf("unexpected position %s", errs[0].Pos)
	}
	if !errors.Is(diags.Err(), apperrors.ErrLexical) {
		t.Errorf("expected lexical error, got %v", diags.Err())
	}
}

func TestSceneStringRoundTrips(t *testing.T) {
	f := mustParse(t, `@module m:
@scene s:
    get "a";
    flavortext { "hello" };
    select { has no "b" ? "go" => @file("x.nar")::n::t };
@end-module m`)
	again := mustParse(t, f.Module("m").String())
	if again.Module("m").Scene("s").String() != f.Module("m").Scene("s").String() {
		t.Errorf("round trip mismatch:\n%s\nvs\n%s", f.Module("m"), again.Module("m"))
	}
}
