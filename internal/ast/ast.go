// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package ast defines the narrate syntax tree.
//
// Directives, predicates and targets are closed sum types: each is an
// interface with an unexported marker method, so only the variants declared
// here satisfy it and every consumer switches over a fixed set.
package ast

import (
	"fmt"
	"strings"

	"nickandperla.net/narrate/internal/token"
)

// File is the parse result of one source file.
type File struct {
	Path    string // Canonical file identity
	Modules []*Module
}

// Module returns the module with the given name, or nil.
func (f *File) Module(name string) *Module {
	for _, m := range f.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Module is a named, file-scoped collection of scenes.
type Module struct {
	Name   string
	Pos    token.Pos
	Source string // Canonical file identity of the declaring file
	Scenes []*Scene
}

// Scene returns the scene with the given name, or nil.
func (m *Module) Scene(name string) *Scene {
	for _, s := range m.Scenes {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "@module %s:\n", m.Name)
	for _, s := range m.Scenes {
		sb.WriteString(s.String())
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "@end-module %s", m.Name)
	return sb.String()
}

// Scene is a node in the narrative graph.
type Scene struct {
	Name       string
	Pos        token.Pos
	Flavortext []string // nil when the scene has no flavortext block
	Directives []Directive
	Options    []*Option
}

func (s *Scene) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "@scene %s:\n", s.Name)
	for _, d := range s.Directives {
		fmt.Fprintf(&sb, "    %s;\n", d)
	}
	if s.Flavortext != nil {
		sb.WriteString("    flavortext {\n")
		for _, line := range s.Flavortext {
			fmt.Fprintf(&sb, "        %q\n", line)
		}
		sb.WriteString("    };\n")
	}
	sb.WriteString("    select {\n")
	for i, o := range s.Options {
		sb.WriteString("        ")
		sb.WriteString(o.String())
		if i < len(s.Options)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("    };\n@end-scene")
	return sb.String()
}

// Option is a labeled choice leading to a target scene. An empty Guard
// means the option is always visible.
type Option struct {
	Label  string
	Guard  []Predicate
	Target Target
	Pos    token.Pos
}

func (o *Option) String() string {
	var sb strings.Builder
	for i, p := range o.Guard {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	if len(o.Guard) > 0 {
		sb.WriteString(" ? ")
	}
	fmt.Fprintf(&sb, "%q => %s", o.Label, o.Target)
	return sb.String()
}

// Directive is an inventory effect executed when a scene becomes current.
type Directive interface {
	directive()
	String() string
}

// Get adds an item to the inventory.
type Get struct {
	Item string
	Pos  token.Pos
}

func (Get) directive()       {}
func (d Get) String() string { return fmt.Sprintf("get %q", d.Item) }

// Lose removes an item from the inventory.
type Lose struct {
	Item string
	Pos  token.Pos
}

func (Lose) directive()       {}
func (d Lose) String() string { return fmt.Sprintf("lose %q", d.Item) }

// Predicate is a condition over the inventory.
type Predicate interface {
	predicate()
	String() string
}

// HasItem holds when the item is in the inventory.
type HasItem struct {
	Item string
}

func (HasItem) predicate()       {}
func (p HasItem) String() string { return fmt.Sprintf("has %q", p.Item) }

// LacksItem holds when the item is not in the inventory.
type LacksItem struct {
	Item string
}

func (LacksItem) predicate()       {}
func (p LacksItem) String() string { return fmt.Sprintf("has no %q", p.Item) }

// Target is the destination of an option.
type Target interface {
	target()
	String() string
}

// Local targets a scene in the same file. Module is empty for the
// enclosing module.
type Local struct {
	Module string
	Scene  string
}

func (Local) target() {}
func (t Local) String() string {
	if t.Module == "" {
		return t.Scene
	}
	return t.Module + "::" + t.Scene
}

// Remote targets a scene in another file. File is the path as written,
// relative to the referencing file's directory.
type Remote struct {
	File   string
	Module string
	Scene  string
}

func (Remote) target() {}
func (t Remote) String() string {
	return fmt.Sprintf("@file(%q)::%s::%s", t.File, t.Module, t.Scene)
}
