// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"iter"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"codello.dev/asn1tree"
)

// lazyContents holds the contents octets of a definite-length container until
// its elements are first accessed. The contents have been validated when the
// container was decoded, so materializing the elements cannot fail.
type lazyContents struct {
	mu       sync.Mutex
	forced   atomic.Bool
	raw      []byte
	cfg      *config
	depth    int
	elements []Value
}

// force returns the elements, decoding them on first use.
func (l *lazyContents) force() []Value {
	if l.forced.Load() {
		return l.elements
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.forced.Load() {
		l.cfg.logger.Debug("materializing lazy contents", "length", len(l.raw), "depth", l.depth)
		elements, err := decodeTrusted(l.raw, l.cfg, l.depth)
		if err != nil {
			panic("ber: validated contents failed to decode: " + err.Error())
		}
		l.elements = elements
		l.raw = nil
		l.forced.Store(true)
	}
	return l.elements
}

// contents returns the contents octets if the elements have not been
// materialized yet.
func (l *lazyContents) contents() ([]byte, bool) {
	if l.forced.Load() {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.raw, !l.forced.Load()
}

// elements implements the element storage shared by [Sequence] and [Set].
type elements struct {
	list       []Value
	lazy       *lazyContents
	indefinite bool // decoded from the indefinite-length form
}

func newElements(list []Value) elements {
	for _, v := range list {
		if v == nil {
			panic("ber: nil element")
		}
	}
	return elements{list: list}
}

func (e *elements) values() []Value {
	if e.lazy != nil {
		return e.lazy.force()
	}
	return e.list
}

// Len returns the number of elements.
func (e *elements) Len() int { return len(e.values()) }

// At returns the element at index i. It panics if i is out of range.
func (e *elements) At(i int) Value { return e.values()[i] }

// All returns an iterator over the elements and their indices.
func (e *elements) All() iter.Seq2[int, Value] { return slices.All(e.values()) }

// Elements returns a copy of the list of elements.
func (e *elements) Elements() []Value { return slices.Clone(e.values()) }

// rawContents returns the original contents octets of a lazily decoded
// container that has not been materialized.
func (e *elements) rawContents() ([]byte, bool) {
	if e.lazy == nil {
		return nil, false
	}
	return e.lazy.contents()
}

func (e *elements) encodings(rules Rules) []Encoding {
	values := e.values()
	children := make([]Encoding, len(values))
	for i, v := range values {
		children[i] = v.Encoding(rules)
	}
	return children
}

func (e *elements) format(b *strings.Builder) {
	b.WriteByte('[')
	for i, v := range e.values() {
		if i > 0 {
			b.WriteString(", ")
		}
		if s, ok := v.(interface{ String() string }); ok {
			b.WriteString(s.String())
		} else {
			b.WriteString(v.Kind().String())
		}
	}
	b.WriteByte(']')
}

// Sequence is the ASN.1 SEQUENCE and SEQUENCE OF type.
type Sequence struct {
	elements
}

// NewSequence returns a [Sequence] of the given elements. The elements slice
// is copied. NewSequence panics if an element is nil.
func NewSequence(elements ...Value) *Sequence {
	return &Sequence{newElements(slices.Clone(elements))}
}

func (*Sequence) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagSequence) }
func (*Sequence) Kind() Kind        { return KindSequence }

func (s *Sequence) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }

// EncodingImplicit encodes the elements in order. Using [BER], a lazily
// decoded Sequence that has not been materialized is encoded from its
// original contents octets.
func (s *Sequence) EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding {
	if rules == BER {
		if raw, ok := s.rawContents(); ok {
			return newRawConstructedEncoding(tag, raw)
		}
	}
	return newConstructedEncoding(tag, rules == BER && s.indefinite, s.encodings(rules))
}

func (s *Sequence) String() string {
	var b strings.Builder
	s.format(&b)
	return b.String()
}

// Set is the ASN.1 SET and SET OF type. The order of elements is kept as
// constructed or decoded. When encoded using [DER], the elements are sorted
// by their encodings.
type Set struct {
	elements
	sorted bool // elements are in DER order
}

// NewSet returns a [Set] of the given elements. The elements slice is
// copied. NewSet panics if an element is nil.
func NewSet(elements ...Value) *Set {
	return &Set{elements: newElements(slices.Clone(elements))}
}

// DERForm returns a Set with the same elements as s ordered as in the DER
// encoding of s.
func (s *Set) DERForm() *Set {
	if s.sorted {
		return s
	}
	values := s.values()
	type entry struct {
		v   Value
		enc []byte
	}
	entries := make([]entry, len(values))
	for i, v := range values {
		entries[i] = entry{v, appendEncoding(nil, v.Encoding(DER))}
	}
	slices.SortStableFunc(entries, func(a, b entry) int { return compareDER(a.enc, b.enc) })
	list := make([]Value, len(entries))
	for i, e := range entries {
		list[i] = e.v
	}
	return &Set{elements: elements{list: list}, sorted: true}
}

func (*Set) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagSet) }
func (*Set) Kind() Kind        { return KindSet }

func (s *Set) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }

// EncodingImplicit encodes the elements of s. Using [DER] the elements are
// sorted by their encodings. Using [BER], a lazily decoded Set that has not
// been materialized is encoded from its original contents octets.
func (s *Set) EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding {
	switch {
	case rules == BER:
		if raw, ok := s.rawContents(); ok {
			return newRawConstructedEncoding(tag, raw)
		}
	case rules == DER && !s.sorted:
		return newConstructedEncoding(tag, false, sortedDER(s.values()))
	}
	return newConstructedEncoding(tag, rules == BER && s.indefinite, s.encodings(rules))
}

func (s *Set) String() string {
	var b strings.Builder
	s.format(&b)
	return b.String()
}
