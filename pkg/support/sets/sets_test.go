// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	// Sets are created empty.
	s := Make[int](10)
	assert.Len(t, s, 0)

	// Check inserting and recovery.
	s.Insert(3, 7)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	s2 := MakeWith(5, 7)
	assert.Len(t, s2, 2)
	assert.True(t, s2.Has(5))
	assert.False(t, s2.Has(3))

	delete(s, 7)
	assert.True(t, s.Equal(MakeWith(3)))
	assert.False(t, s.Equal(s2))
	assert.False(t, s.Equal(MakeWith(-3)))
}

func TestOrdered(t *testing.T) {
	var zero Ordered[string]
	assert.Equal(t, 0, zero.Len())
	assert.False(t, zero.Has("a"))
	zero.Insert("a")
	assert.True(t, zero.Has("a"))

	o1 := MakeOrdered(3, 1, 3, 2)
	assert.Equal(t, []int{3, 1, 2}, o1.Elements())

	o2 := MakeOrdered(2, 5, 1, 4)
	u := o1.Union(o2, nil)
	assert.Equal(t, []int{3, 1, 2, 5, 4}, u.Elements())
	// Union doesn't modify its operands.
	assert.Equal(t, 3, o1.Len())
	assert.Equal(t, 4, o2.Len())

	var nilSet *Ordered[int]
	assert.Equal(t, 0, nilSet.Len())
	assert.Nil(t, nilSet.Elements())
	assert.Equal(t, []int{2, 5, 1, 4}, nilSet.Union(o2).Elements())

	// Elements returns a copy.
	elements := u.Elements()
	elements[0] = 100
	assert.Equal(t, 3, u.Elements()[0])
}
