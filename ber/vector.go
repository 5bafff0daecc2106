// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import "codello.dev/asn1tree"

// Vector collects the elements of a container value. A Vector is finalized by
// one of its Sequence, Set or Tagged methods, which transfer the collected
// elements to the new value and leave the Vector empty.
//
// The zero value is an empty Vector ready to use.
type Vector struct {
	elements []Value
}

// NewVector returns an empty [Vector] with room for capacity elements.
func NewVector(capacity int) *Vector {
	return &Vector{elements: make([]Value, 0, capacity)}
}

// Add appends values to the vector. Add panics if a value is nil.
func (v *Vector) Add(values ...Value) {
	for _, e := range values {
		if e == nil {
			panic("ber: nil element")
		}
	}
	v.elements = append(v.elements, values...)
}

// Len returns the number of elements in v.
func (v *Vector) Len() int { return len(v.elements) }

// At returns the element at index i.
func (v *Vector) At(i int) Value { return v.elements[i] }

// take transfers the collected elements to the caller.
func (v *Vector) take() []Value {
	list := v.elements
	v.elements = nil
	return list
}

// Sequence finalizes v into a [Sequence].
func (v *Vector) Sequence() *Sequence {
	return &Sequence{elements{list: v.take()}}
}

// Set finalizes v into a [Set].
func (v *Vector) Set() *Set {
	return &Set{elements: elements{list: v.take()}}
}

// Tagged finalizes v into a [TaggedObject] with the given tag whose base
// value is a [Sequence] of the collected elements. If the tag is invalid, an
// error is returned and v is left unchanged.
func (v *Vector) Tagged(explicit bool, tag asn1tree.Tag) (*TaggedObject, error) {
	if err := checkTaggingTag(tag); err != nil {
		return nil, err
	}
	return NewTaggedObject(explicit, tag, v.Sequence())
}
