// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package parser implements a recursive descent parser for narrate source.
//
// The parser never stops at the first structural error: it records a
// diagnostic, skips to the next scene or module boundary and continues, so
// tooling can report every problem in a file at once. A lexical error ends
// parsing of the file. Callers that execute the result must treat any
// error-severity diagnostic as fatal.
package parser

import (
	"fmt"
	"io"
	"strings"

	"nickandperla.net/narrate/internal/ast"
	apperrors "nickandperla.net/narrate/internal/errors"
	"nickandperla.net/narrate/internal/scanner"
	"nickandperla.net/narrate/internal/token"
)

// Parser holds the state for parsing one file.
type Parser struct {
	scan      *scanner.Scanner
	file      string
	cur       token.Token
	diags     Diagnostics
	lexFailed bool
}

// Parse parses a whole file. The returned tree is always non-nil but is only
// complete when the diagnostics contain no errors.
func Parse(r io.Reader, file string) (*ast.File, Diagnostics) {
	p := &Parser{scan: scanner.New(r, file), file: file}
	p.advance()
	f := p.parseFile()
	return f, p.diags
}

// ParseString parses source held in a string.
func ParseString(src, file string) (*ast.File, Diagnostics) {
	return Parse(strings.NewReader(src), file)
}

func (p *Parser) advance() {
	if p.lexFailed {
		return
	}
	tok, err := p.scan.Next()
	if err != nil {
		p.lexFailed = true
		p.cur = token.Token{Kind: token.EOF, Pos: tok.Pos}
		d := Diagnostic{Severity: SeverityError, Code: apperrors.CodeLexical, Message: err.Error(), File: p.file, Pos: tok.Pos}
		if le, ok := err.(*apperrors.Error); ok {
			d.Code = le.Code
			d.Message = le.Message
			if le.Position.Line > 0 {
				d.Pos = token.Pos{Line: le.Position.Line, Column: le.Position.Column}
			}
		}
		p.diags = append(p.diags, d)
		return
	}
	p.cur = tok
}

func (p *Parser) errorAt(pos token.Pos, format string, args ...any) {
	// Everything after a lexical error is noise.
	if p.lexFailed {
		return
	}
	p.diags = append(p.diags, Diagnostic{
		Severity: SeverityError,
		Code:     apperrors.CodeStructural,
		Message:  fmt.Sprintf(format, args...),
		File:     p.file,
		Pos:      pos,
	})
}

func (p *Parser) warnAt(pos token.Pos, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{
		Severity: SeverityWarning,
		Code:     apperrors.CodeStructural,
		Message:  fmt.Sprintf(format, args...),
		File:     p.file,
		Pos:      pos,
	})
}

func (p *Parser) expect(k token.Kind, context string) (token.Token, bool) {
	tok := p.cur
	if tok.Kind != k {
		if k == token.IDENT && tok.Kind.IsKeyword() {
			p.errorAt(tok.Pos, "expected %s %s, got %s (reserved words cannot be names)", describe(k), context, tok)
			return tok, false
		}
		p.errorAt(tok.Pos, "expected %s %s, got %s", describe(k), context, tok)
		return tok, false
	}
	p.advance()
	return tok, true
}

func describe(k token.Kind) string {
	switch k {
	case token.IDENT:
		return "a name"
	case token.STRING:
		return "a string"
	}
	return fmt.Sprintf("%q", k.String())
}

func (p *Parser) accept(k token.Kind) bool {
	if p.cur.Kind == k {
		p.advance()
		return true
	}
	return false
}

// syncTo skips tokens until one of the given kinds or EOF.
func (p *Parser) syncTo(kinds ...token.Kind) {
	for p.cur.Kind != token.EOF {
		for _, k := range kinds {
			if p.cur.Kind == k {
				return
			}
		}
		p.advance()
	}
}

// syncScene skips the rest of a malformed scene, consuming its @end-scene
// if one is found before the next declaration.
func (p *Parser) syncScene() {
	p.syncTo(token.END_SCENE, token.SCENE, token.END_MODULE, token.MODULE)
	if p.accept(token.END_SCENE) {
		p.accept(token.SEMICOLON)
	}
}

func (p *Parser) parseFile() *ast.File {
	f := &ast.File{Path: p.file}
	seen := make(map[string]token.Pos)
	for p.cur.Kind != token.EOF {
		if p.cur.Kind != token.MODULE {
			p.errorAt(p.cur.Pos, "expected @module, got %s", p.cur)
			p.advance()
			p.syncTo(token.MODULE)
			continue
		}
		m := p.parseModule()
		if m == nil {
			continue
		}
		if first, dup := seen[m.Name]; dup {
			p.errorAt(m.Pos, "duplicate module %q (first declared at %s)", m.Name, first)
			continue
		}
		seen[m.Name] = m.Pos
		f.Modules = append(f.Modules, m)
	}
	return f
}

func (p *Parser) parseModule() *ast.Module {
	start := p.cur.Pos
	p.advance() // @module

	name, ok := p.expect(token.IDENT, "after @module")
	if !ok {
		p.syncTo(token.END_MODULE, token.MODULE)
		if p.accept(token.END_MODULE) {
			p.accept(token.IDENT)
			p.accept(token.SEMICOLON)
		}
		return nil
	}
	p.expect(token.COLON, "after module name")

	m := &ast.Module{Name: name.Lexeme, Pos: start, Source: p.file}
	seen := make(map[string]token.Pos)
	for {
		switch p.cur.Kind {
		case token.SCENE:
			s := p.parseScene()
			if s == nil {
				continue
			}
			if first, dup := seen[s.Name]; dup {
				p.errorAt(s.Pos, "duplicate scene %q in module %q (first declared at %s)", s.Name, m.Name, first)
				continue
			}
			seen[s.Name] = s.Pos
			m.Scenes = append(m.Scenes, s)

		case token.END_MODULE:
			p.advance()
			if p.cur.Kind == token.IDENT {
				closing := p.cur
				p.advance()
				if closing.Lexeme != m.Name {
					p.warnAt(closing.Pos, "@end-module %s does not match @module %s at %s", closing.Lexeme, m.Name, start)
				}
			}
			p.accept(token.SEMICOLON)
			return m

		case token.MODULE, token.EOF:
			p.errorAt(start, "module %q is missing @end-module", m.Name)
			return m

		default:
			p.errorAt(p.cur.Pos, "expected @scene or @end-module in module %q, got %s", m.Name, p.cur)
			p.advance()
			p.syncTo(token.SCENE, token.END_MODULE, token.MODULE)
		}
	}
}

func (p *Parser) parseScene() *ast.Scene {
	start := p.cur.Pos
	p.advance() // @scene

	name, ok := p.expect(token.IDENT, "after @scene")
	if !ok {
		p.syncScene()
		return nil
	}
	p.expect(token.COLON, "after scene name")

	s := &ast.Scene{Name: name.Lexeme, Pos: start}
	var selectPos token.Pos
	haveSelect := false

body:
	for {
		switch p.cur.Kind {
		case token.GET, token.LOSE:
			d, ok := p.parseInventoryDirective()
			if !ok {
				p.syncScene()
				return nil
			}
			s.Directives = append(s.Directives, d)

		case token.FLAVORTEXT:
			pos := p.cur.Pos
			lines, ok := p.parseFlavortext()
			if !ok {
				p.syncScene()
				return nil
			}
			if s.Flavortext != nil {
				p.errorAt(pos, "scene %q has more than one flavortext block", s.Name)
				continue
			}
			s.Flavortext = lines

		case token.SELECT:
			pos := p.cur.Pos
			opts, ok := p.parseSelect()
			if !ok {
				p.syncScene()
				return nil
			}
			if haveSelect {
				p.errorAt(pos, "scene %q has more than one select block (first at %s)", s.Name, selectPos)
				continue
			}
			haveSelect, selectPos = true, pos
			if len(opts) == 0 {
				p.errorAt(pos, "select block of scene %q has no options", s.Name)
			}
			s.Options = opts

		case token.END_SCENE:
			p.advance()
			p.accept(token.SEMICOLON)
			break body

		case token.SCENE, token.END_MODULE, token.MODULE, token.EOF:
			break body

		default:
			p.errorAt(p.cur.Pos, "expected get, lose, flavortext, select or @end-scene in scene %q, got %s", s.Name, p.cur)
			p.syncScene()
			return nil
		}
	}

	if !haveSelect {
		p.errorAt(start, "scene %q has no select block", s.Name)
	}
	return s
}

func (p *Parser) parseInventoryDirective() (ast.Directive, bool) {
	kw := p.cur
	p.advance()
	item, ok := p.expect(token.STRING, "after "+kw.Kind.String())
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.SEMICOLON, "after "+kw.Kind.String()+" directive"); !ok {
		return nil, false
	}
	if kw.Kind == token.GET {
		return ast.Get{Item: item.Lexeme, Pos: kw.Pos}, true
	}
	return ast.Lose{Item: item.Lexeme, Pos: kw.Pos}, true
}

func (p *Parser) parseFlavortext() ([]string, bool) {
	p.advance() // flavortext
	if _, ok := p.expect(token.LBRACE, "after flavortext"); !ok {
		return nil, false
	}
	lines := make([]string, 0, 4)
	for p.cur.Kind == token.STRING {
		lines = append(lines, p.cur.Lexeme)
		p.advance()
		p.accept(token.COMMA)
	}
	if _, ok := p.expect(token.RBRACE, "to close flavortext"); !ok {
		return nil, false
	}
	if _, ok := p.expect(token.SEMICOLON, "after flavortext block"); !ok {
		return nil, false
	}
	return lines, true
}

func (p *Parser) parseSelect() ([]*ast.Option, bool) {
	p.advance() // select
	if _, ok := p.expect(token.LBRACE, "after select"); !ok {
		return nil, false
	}
	var opts []*ast.Option
	for p.cur.Kind != token.RBRACE {
		o, ok := p.parseOption()
		if !ok {
			return nil, false
		}
		opts = append(opts, o)
		if !p.accept(token.COMMA) {
			break
		}
	}
	if _, ok := p.expect(token.RBRACE, "to close select"); !ok {
		return nil, false
	}
	if _, ok := p.expect(token.SEMICOLON, "after select block"); !ok {
		return nil, false
	}
	return opts, true
}

func (p *Parser) parseOption() (*ast.Option, bool) {
	o := &ast.Option{Pos: p.cur.Pos}
	if p.cur.Kind == token.HAS {
		guard, ok := p.parseGuard()
		if !ok {
			return nil, false
		}
		o.Guard = guard
	}
	label, ok := p.expect(token.STRING, "as option label")
	if !ok {
		return nil, false
	}
	o.Label = label.Lexeme
	if _, ok := p.expect(token.ARROW, "after option label"); !ok {
		return nil, false
	}
	target, ok := p.parseTarget()
	if !ok {
		return nil, false
	}
	o.Target = target
	return o, true
}

func (p *Parser) parseGuard() ([]ast.Predicate, bool) {
	var preds []ast.Predicate
	for {
		if _, ok := p.expect(token.HAS, "in option guard"); !ok {
			return nil, false
		}
		negated := p.accept(token.NO)
		item, ok := p.expect(token.STRING, "after has")
		if !ok {
			return nil, false
		}
		if negated {
			preds = append(preds, ast.LacksItem{Item: item.Lexeme})
		} else {
			preds = append(preds, ast.HasItem{Item: item.Lexeme})
		}
		if !p.accept(token.COMMA) {
			break
		}
	}
	if _, ok := p.expect(token.QUESTION, "to end option guard"); !ok {
		return nil, false
	}
	return preds, true
}

func (p *Parser) parseTarget() (ast.Target, bool) {
	switch p.cur.Kind {
	case token.IDENT:
		first := p.cur
		p.advance()
		if !p.accept(token.SCOPE) {
			return ast.Local{Scene: first.Lexeme}, true
		}
		scene, ok := p.expect(token.IDENT, "as scene name after ::")
		if !ok {
			return nil, false
		}
		return ast.Local{Module: first.Lexeme, Scene: scene.Lexeme}, true

	case token.FILE:
		p.advance()
		if _, ok := p.expect(token.LPAREN, "after @file"); !ok {
			return nil, false
		}
		path, ok := p.expect(token.STRING, "as @file path")
		if !ok {
			return nil, false
		}
		if strings.TrimSpace(path.Lexeme) == "" {
			p.errorAt(path.Pos, "@file path is empty")
			return nil, false
		}
		if _, ok := p.expect(token.RPAREN, "after @file path"); !ok {
			return nil, false
		}
		if _, ok := p.expect(token.SCOPE, "after @file(...)"); !ok {
			return nil, false
		}
		module, ok := p.expect(token.IDENT, "as module name in @file reference")
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.SCOPE, "after module name"); !ok {
			return nil, false
		}
		scene, ok := p.expect(token.IDENT, "as scene name in @file reference")
		if !ok {
			return nil, false
		}
		return ast.Remote{File: path.Lexeme, Module: module.Lexeme, Scene: scene.Lexeme}, true
	}
	p.errorAt(p.cur.Pos, "expected a scene name or @file reference, got %s", p.cur)
	return nil, false
}
