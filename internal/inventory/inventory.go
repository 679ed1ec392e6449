// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package inventory implements the case-insensitive item set owned by a session.
package inventory

import (
	"sort"

	"golang.org/x/text/cases"
)

// Inventory is a set of items compared by Unicode case folding. It remembers
// the spelling an item was first added with for display.
//
// An Inventory is owned by a single session and is not safe for concurrent use.
type Inventory struct {
	items map[string]string // folded -> first spelling
}

// New creates an inventory holding the given items.
func New(items ...string) *Inventory {
	inv := &Inventory{items: make(map[string]string, len(items))}
	for _, item := range items {
		inv.Add(item)
	}
	return inv
}

// Normalize returns the canonical form used for membership.
func Normalize(item string) string {
	// cases.Caser is stateful, so a fresh one per call.
	return cases.Fold().String(item)
}

// Add inserts an item. Adding an item already held changes nothing and
// reports false.
func (inv *Inventory) Add(item string) bool {
	key := Normalize(item)
	if _, ok := inv.items[key]; ok {
		return false
	}
	inv.items[key] = item
	return true
}

// Remove deletes an item. Removing an absent item changes nothing and
// reports false.
func (inv *Inventory) Remove(item string) bool {
	key := Normalize(item)
	if _, ok := inv.items[key]; !ok {
		return false
	}
	delete(inv.items, key)
	return true
}

// Has reports whether the item is held, ignoring case.
func (inv *Inventory) Has(item string) bool {
	_, ok := inv.items[Normalize(item)]
	return ok
}

// Len returns the number of distinct items.
func (inv *Inventory) Len() int {
	return len(inv.items)
}

// Items returns the held items in their original spelling, sorted by
// canonical form.
func (inv *Inventory) Items() []string {
	keys := make([]string, 0, len(inv.items))
	for k := range inv.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = inv.items[k]
	}
	return out
}

// Clone returns an independent copy.
func (inv *Inventory) Clone() *Inventory {
	c := &Inventory{items: make(map[string]string, len(inv.items))}
	for k, v := range inv.items {
		c.items[k] = v
	}
	return c
}

// Equal reports whether both inventories hold the same items, ignoring case.
func (inv *Inventory) Equal(other *Inventory) bool {
	if inv.Len() != other.Len() {
		return false
	}
	for k := range inv.items {
		if _, ok := other.items[k]; !ok {
			return false
		}
	}
	return true
}
