// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sets implement a set type as a `map[T]struct{}` but with better ergonomics,
// and an insertion-ordered variant.
package sets

import "slices"

// Set implements a Set for the key type T.
type Set[T comparable] map[T]struct{}

// Make returns an empty Set of the given type. Size is optional, and if given
// will reserve the expected size.
func Make[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// MakeWith creates a Set[T] with the given elements inserted.
func MakeWith[T comparable](elements ...T) Set[T] {
	s := Make[T](len(elements))
	s.Insert(elements...)
	return s
}

// Has returns true if Set s has the given key.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// Insert keys into set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// Equal returns whether s and s2 have the exact same elements.
func (s Set[T]) Equal(s2 Set[T]) bool {
	if len(s) != len(s2) {
		return false
	}
	for k := range s {
		if !s2.Has(k) {
			return false
		}
	}
	return true
}

// Ordered is a set that remembers the order in which elements were first inserted.
//
// The zero value is an empty set ready to use.
type Ordered[T comparable] struct {
	index    Set[T]
	elements []T
}

// MakeOrdered returns an Ordered set with the given elements, in order, skipping repeated ones.
func MakeOrdered[T comparable](elements ...T) *Ordered[T] {
	o := &Ordered[T]{}
	o.Insert(elements...)
	return o
}

// Insert appends the keys not yet in the set, preserving their order.
func (o *Ordered[T]) Insert(keys ...T) {
	if o.index == nil {
		o.index = Make[T](len(keys))
	}
	for _, key := range keys {
		if o.index.Has(key) {
			continue
		}
		o.index.Insert(key)
		o.elements = append(o.elements, key)
	}
}

// Union returns a new Ordered set with the elements of o followed by the new elements of each other set.
// nil sets are ignored.
func (o *Ordered[T]) Union(others ...*Ordered[T]) *Ordered[T] {
	u := &Ordered[T]{}
	if o != nil {
		u.Insert(o.elements...)
	}
	for _, other := range others {
		if other != nil {
			u.Insert(other.elements...)
		}
	}
	return u
}

// Has returns whether key is in the set.
func (o *Ordered[T]) Has(key T) bool {
	return o != nil && o.index.Has(key)
}

// Len returns the number of elements.
func (o *Ordered[T]) Len() int {
	if o == nil {
		return 0
	}
	return len(o.elements)
}

// Elements returns a copy of the elements in insertion order.
func (o *Ordered[T]) Elements() []T {
	if o == nil {
		return nil
	}
	return slices.Clone(o.elements)
}
