// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides a streaming Unicode-aware lexer for narrate source.
package scanner

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "nickandperla.net/narrate/internal/errors"
	"nickandperla.net/narrate/internal/token"
)

// Scanner tokenizes narrate input rune-by-rune.
type Scanner struct {
	reader *bufio.Reader
	file   string
	buf    strings.Builder
	err    error // Sticky: once lexing fails it stays failed
	width  int   // Encoded size of the last rune read

	line, col         int // Position of the next rune (1-based)
	prevLine, prevCol int // Position before the last ReadRune, for unread
}

// New creates a new Scanner from an io.Reader. The file name is only used
// in diagnostics.
func New(r io.Reader, file string) *Scanner {
	return &Scanner{
		reader: bufio.NewReader(r),
		file:   file,
		line:   1,
		col:    1,
	}
}

// NewFromString creates a new Scanner from a string.
func NewFromString(src, file string) *Scanner {
	return New(strings.NewReader(src), file)
}

// File returns the file name used in diagnostics.
func (s *Scanner) File() string {
	return s.file
}

// Pos returns the position of the next unread rune.
func (s *Scanner) Pos() token.Pos {
	return token.Pos{Line: s.line, Column: s.col}
}

func (s *Scanner) readRune() (rune, error) {
	r, size, err := s.reader.ReadRune()
	if err != nil {
		return 0, err
	}
	s.width = size
	s.prevLine, s.prevCol = s.line, s.col
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r, nil
}

func (s *Scanner) unreadRune() {
	if err := s.reader.UnreadRune(); err == nil {
		s.line, s.col = s.prevLine, s.prevCol
	}
}

func (s *Scanner) fail(pos token.Pos, format string, args ...any) error {
	s.err = apperrors.At(apperrors.CodeLexical, apperrors.Position{
		File:   s.file,
		Line:   pos.Line,
		Column: pos.Column,
	}, fmt.Sprintf(format, args...))
	return s.err
}

func (s *Scanner) ioFail(err error) error {
	s.err = apperrors.Wrap(apperrors.CodeIO, "scanner: read "+s.file, err)
	return s.err
}

// Next returns the next token from the input. After the end of input it
// keeps returning EOF tokens; after an error it keeps returning that error.
func (s *Scanner) Next() (token.Token, error) {
	if s.err != nil {
		return token.Token{Kind: token.EOF, Pos: s.Pos()}, s.err
	}

	if err := s.skipSpaceAndComments(); err != nil {
		return token.Token{Kind: token.EOF, Pos: s.Pos()}, err
	}

	start := s.Pos()
	r, err := s.readRune()
	if err == io.EOF {
		return token.Token{Kind: token.EOF, Pos: start}, nil
	}
	if err != nil {
		return token.Token{Kind: token.EOF, Pos: start}, s.ioFail(err)
	}

	mk := func(k token.Kind, lexeme string) (token.Token, error) {
		return token.Token{Kind: k, Lexeme: lexeme, Pos: start}, nil
	}

	switch {
	case r == '@':
		return s.scanSigil(start)
	case r == '"':
		return s.scanString(start)
	case isIdentStart(r):
		s.unreadRune()
		word, err := s.scanWord(isIdentChar)
		if err != nil {
			return token.Token{Kind: token.EOF, Pos: start}, err
		}
		return mk(token.LookupIdent(word), word)
	}

	switch r {
	case ':':
		next, err := s.readRune()
		if err == nil && next == ':' {
			return mk(token.SCOPE, "::")
		}
		if err == nil {
			s.unreadRune()
		} else if err != io.EOF {
			return token.Token{Kind: token.EOF, Pos: start}, s.ioFail(err)
		}
		return mk(token.COLON, ":")
	case '=':
		next, err := s.readRune()
		if err == nil && next == '>' {
			return mk(token.ARROW, "=>")
		}
		return token.Token{Kind: token.EOF, Pos: start}, s.fail(start, "unexpected character '=' (did you mean '=>'?)")
	case ';':
		return mk(token.SEMICOLON, ";")
	case '{':
		return mk(token.LBRACE, "{")
	case '}':
		return mk(token.RBRACE, "}")
	case '(':
		return mk(token.LPAREN, "(")
	case ')':
		return mk(token.RPAREN, ")")
	case ',':
		return mk(token.COMMA, ",")
	case '?':
		return mk(token.QUESTION, "?")
	}

	return token.Token{Kind: token.EOF, Pos: start}, s.fail(start, "unexpected character %q", r)
}

// All scans the remaining input into a slice ending with the EOF token.
func (s *Scanner) All() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok, err := s.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

// skipSpaceAndComments consumes whitespace and '#' line comments.
func (s *Scanner) skipSpaceAndComments() error {
	for {
		r, err := s.readRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return s.ioFail(err)
		}
		if unicode.IsSpace(r) {
			continue
		}
		if r == '#' {
			for {
				r, err = s.readRune()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return s.ioFail(err)
				}
				if r == '\n' {
					break
				}
			}
			continue
		}
		s.unreadRune()
		return nil
	}
}

func (s *Scanner) scanSigil(start token.Pos) (token.Token, error) {
	word, err := s.scanWord(func(r rune) bool { return unicode.IsLetter(r) || r == '-' })
	if err != nil {
		return token.Token{Kind: token.EOF, Pos: start}, err
	}
	word = "@" + word
	k, ok := token.LookupSigil(word)
	if !ok {
		return token.Token{Kind: token.EOF, Pos: start}, s.fail(start, "unknown keyword %q", word)
	}
	return token.Token{Kind: k, Lexeme: word, Pos: start}, nil
}

// scanString reads a double-quoted literal. The opening quote is already
// consumed. There are no escape sequences; literals may span lines.
func (s *Scanner) scanString(start token.Pos) (token.Token, error) {
	s.buf.Reset()
	for {
		r, err := s.readRune()
		if err == io.EOF {
			return token.Token{Kind: token.EOF, Pos: start}, s.fail(start, "unterminated string literal")
		}
		if err != nil {
			return token.Token{Kind: token.EOF, Pos: start}, s.ioFail(err)
		}
		if r == '"' {
			return token.Token{Kind: token.STRING, Lexeme: s.buf.String(), Pos: start}, nil
		}
		if r == utf8.RuneError && s.width == 1 {
			bad := token.Pos{Line: s.prevLine, Column: s.prevCol}
			return token.Token{Kind: token.EOF, Pos: start}, s.fail(bad, "invalid UTF-8 in string literal")
		}
		s.buf.WriteRune(r)
	}
}

func (s *Scanner) scanWord(accept func(rune) bool) (string, error) {
	s.buf.Reset()
	for {
		r, err := s.readRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", s.ioFail(err)
		}
		if !accept(r) {
			s.unreadRune()
			break
		}
		s.buf.WriteRune(r)
	}
	return s.buf.String(), nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isIdentChar returns true if the rune is valid in an identifier (letter, digit, dash, underscore).
func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}
