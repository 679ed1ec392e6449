// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines narrate token types and source positions.
package token

import "fmt"

// Kind represents a narrate token type.
type Kind int

const (
	EOF Kind = iota
	IDENT
	STRING

	// Delimiters (sigil keywords)
	MODULE     // @module
	END_MODULE // @end-module
	SCENE      // @scene
	END_SCENE  // @end-scene
	FILE       // @file

	// Directives
	FLAVORTEXT // flavortext
	SELECT     // select
	GET        // get
	LOSE       // lose
	HAS        // has
	NO         // no

	// Punctuation
	COLON     // :
	SCOPE     // ::
	SEMICOLON // ;
	LBRACE    // {
	RBRACE    // }
	LPAREN    // (
	RPAREN    // )
	COMMA     // ,
	ARROW     // =>
	QUESTION  // ?
)

// Class groups token kinds into the broad lexical categories.
type Class int

const (
	ClassEndOfInput Class = iota
	ClassIdentifier
	ClassString
	ClassKeyword
	ClassPunctuation
)

var classText = [...]string{
	ClassEndOfInput:  "end",
	ClassIdentifier:  "identifier",
	ClassString:      "string",
	ClassKeyword:     "keyword",
	ClassPunctuation: "punctuation",
}

func (c Class) String() string {
	if c >= 0 && int(c) < len(classText) {
		return classText[c]
	}
	return "unknown"
}

var kindText = [...]string{
	EOF:        "EOF",
	IDENT:      "IDENT",
	STRING:     "STRING",
	MODULE:     "@module",
	END_MODULE: "@end-module",
	SCENE:      "@scene",
	END_SCENE:  "@end-scene",
	FILE:       "@file",
	FLAVORTEXT: "flavortext",
	SELECT:     "select",
	GET:        "get",
	LOSE:       "lose",
	HAS:        "has",
	NO:         "no",
	COLON:      ":",
	SCOPE:      "::",
	SEMICOLON:  ";",
	LBRACE:     "{",
	RBRACE:     "}",
	LPAREN:     "(",
	RPAREN:     ")",
	COMMA:      ",",
	ARROW:      "=>",
	QUESTION:   "?",
}

// String returns the string representation of a token kind.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindText) {
		return kindText[k]
	}
	return "UNKNOWN"
}

// Class returns the lexical category of the kind.
func (k Kind) Class() Class {
	switch {
	case k == EOF:
		return ClassEndOfInput
	case k == IDENT:
		return ClassIdentifier
	case k == STRING:
		return ClassString
	case k >= MODULE && k <= NO:
		return ClassKeyword
	}
	return ClassPunctuation
}

// IsKeyword returns true for sigil and directive keywords.
func (k Kind) IsKeyword() bool {
	return k.Class() == ClassKeyword
}

var sigils = map[string]Kind{
	"@module":     MODULE,
	"@end-module": END_MODULE,
	"@scene":      SCENE,
	"@end-scene":  END_SCENE,
	"@file":       FILE,
}

var directives = map[string]Kind{
	"flavortext": FLAVORTEXT,
	"select":     SELECT,
	"get":        GET,
	"lose":       LOSE,
	"has":        HAS,
	"no":         NO,
}

// LookupSigil returns the keyword kind for an @-prefixed word.
func LookupSigil(word string) (Kind, bool) {
	k, ok := sigils[word]
	return k, ok
}

// LookupIdent returns the directive kind for reserved words and IDENT otherwise.
func LookupIdent(word string) Kind {
	if k, ok := directives[word]; ok {
		return k
	}
	return IDENT
}

// Pos is a 1-based source position. Columns count runes.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a scanned token with its lexeme and starting position.
type Token struct {
	Kind   Kind
	Lexeme string
	Pos    Pos
}

func (t Token) String() string {
	switch t.Kind.Class() {
	case ClassEndOfInput:
		return "end of input"
	case ClassIdentifier:
		return fmt.Sprintf("identifier %q", t.Lexeme)
	case ClassString:
		return fmt.Sprintf("string %q", t.Lexeme)
	case ClassKeyword:
		return fmt.Sprintf("keyword %q", t.Kind.String())
	}
	return fmt.Sprintf("%q", t.Kind.String())
}
