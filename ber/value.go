// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bytes"
	"cmp"
	"hash/maphash"
	"io"
	"slices"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/tlv"
)

// Value is an ASN.1 value. All types in this package that represent ASN.1
// values implement this interface.
type Value interface {
	// Tag returns the tag of the value when encoded without implicit tagging.
	Tag() asn1tree.Tag

	// Kind identifies the concrete type of the value.
	Kind() Kind

	// Encoding prepares the encoding of the value using the given rules.
	Encoding(rules Rules) Encoding

	// EncodingImplicit prepares the encoding of the value using the given
	// rules, replacing the tag of the outermost encoding with tag.
	EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding
}

// Choice is implemented by values of ASN.1 CHOICE types. A tagged CHOICE value
// always uses explicit tagging, regardless of the declared tagging mode. This
// package does not define any CHOICE types itself.
type Choice interface {
	Value
	Choice()
}

// Encoding is a prepared encoding of a [Value]. The length of the complete
// encoding is known before it is written.
type Encoding interface {
	// Header returns the identifier and length octets of the encoding.
	Header() tlv.Header

	// Len returns the number of bytes written by WriteTo. If the length
	// exceeds the maximum int value, Len returns -1.
	Len() int

	io.WriterTo
}

// contentsEncoding is an Encoding for which the complete contents octets are
// known.
type contentsEncoding struct {
	header   tlv.Header
	contents []byte
}

// NewPrimitiveEncoding returns an [Encoding] for a primitive data value with
// the given tag and contents octets. The contents are not copied.
func NewPrimitiveEncoding(tag asn1tree.Tag, contents []byte) Encoding {
	return &contentsEncoding{tlv.Header{Tag: tag, Length: len(contents)}, contents}
}

// newRawConstructedEncoding returns an Encoding for a constructed data value
// whose contents octets are already encoded.
func newRawConstructedEncoding(tag asn1tree.Tag, contents []byte) Encoding {
	return &contentsEncoding{tlv.Header{Tag: tag, Constructed: true, Length: len(contents)}, contents}
}

func (e *contentsEncoding) Header() tlv.Header { return e.header }
func (e *contentsEncoding) Len() int           { return e.header.EncodedLen(len(e.contents)) }

func (e *contentsEncoding) WriteTo(w io.Writer) (int64, error) {
	n, err := e.header.WriteTo(w)
	if err != nil {
		return n, err
	}
	m, err := w.Write(e.contents)
	return n + int64(m), err
}

// constructedEncoding is an Encoding made up of nested encodings.
type constructedEncoding struct {
	header     tlv.Header
	children   []Encoding
	contentLen int // -1 on overflow
}

// NewConstructedEncoding returns an [Encoding] for a constructed data value
// with the given tag. The contents consist of the children in the order
// given. The definite-length form is used.
func NewConstructedEncoding(tag asn1tree.Tag, children ...Encoding) Encoding {
	return newConstructedEncoding(tag, false, children)
}

func newConstructedEncoding(tag asn1tree.Tag, indefinite bool, children []Encoding) *constructedEncoding {
	e := &constructedEncoding{
		header:   tlv.Header{Tag: tag, Constructed: true},
		children: children,
	}
	for _, c := range children {
		e.contentLen = tlv.CombinedLength(e.contentLen, c.Len())
	}
	e.header.Length = e.contentLen
	if indefinite {
		e.header.Length = tlv.LengthIndefinite
	}
	return e
}

func (e *constructedEncoding) Header() tlv.Header { return e.header }

func (e *constructedEncoding) Len() int {
	if e.contentLen < 0 {
		return -1
	}
	return e.header.EncodedLen(e.contentLen)
}

func (e *constructedEncoding) WriteTo(w io.Writer) (int64, error) {
	n, err := e.header.WriteTo(w)
	if err != nil {
		return n, err
	}
	for _, c := range e.children {
		m, err := c.WriteTo(w)
		n += m
		if err != nil {
			return n, err
		}
	}
	if e.header.Length == tlv.LengthIndefinite {
		m, err := w.Write([]byte{0x00, 0x00})
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// encodedBytes is a complete encoding in serialized form.
type encodedBytes []byte

func (e encodedBytes) Header() tlv.Header {
	h, _ := tlv.ReadHeader(bytes.NewReader(e), tlv.Unbounded, false)
	return h
}

func (e encodedBytes) Len() int { return len(e) }

func (e encodedBytes) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e)
	return int64(n), err
}

// appendEncoding appends the complete encoding e to dst.
func appendEncoding(dst []byte, e Encoding) []byte {
	buf := bytes.NewBuffer(dst)
	if l := e.Len(); l > 0 {
		buf.Grow(l)
	}
	_, _ = e.WriteTo(buf) // bytes.Buffer never fails
	return buf.Bytes()
}

// compareDER orders the DER encodings a and b for use in a SET OF. The
// identifier octets are compared with the constructed bit masked out.
// Remaining octets are compared lexicographically, a proper prefix ordering
// first.
func compareDER(a, b []byte) int {
	if len(a) == 0 || len(b) == 0 {
		return cmp.Compare(len(a), len(b))
	}
	if c := cmp.Compare(a[0]&^0x20, b[0]&^0x20); c != 0 {
		return c
	}
	return bytes.Compare(a[1:], b[1:])
}

// sortedDER returns the DER encodings of values, sorted using compareDER.
func sortedDER(values []Value) []Encoding {
	encs := make([][]byte, len(values))
	for i, v := range values {
		encs[i] = appendEncoding(nil, v.Encoding(DER))
	}
	slices.SortStableFunc(encs, compareDER)
	ret := make([]Encoding, len(encs))
	for i, e := range encs {
		ret[i] = encodedBytes(e)
	}
	return ret
}

// Equal reports whether a and b have identical DER encodings. Two nil values
// are equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Tag() != b.Tag() {
		return false
	}
	ea, eb := a.Encoding(DER), b.Encoding(DER)
	if ea.Len() != eb.Len() {
		return false
	}
	return bytes.Equal(appendEncoding(nil, ea), appendEncoding(nil, eb))
}

var hashSeed = maphash.MakeSeed()

// Hash returns a hash of the DER encoding of v. Values that are [Equal] have
// the same hash. Hashes are only comparable within a single process.
func Hash(v Value) uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	if v != nil {
		_, _ = v.Encoding(DER).WriteTo(&h)
	}
	return h.Sum64()
}
