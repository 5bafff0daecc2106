// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"encoding/hex"
	"slices"
	"strings"

	"codello.dev/asn1tree"
)

// OctetString is the ASN.1 OCTET STRING type.
//
// An OctetString decoded from the constructed form remembers its segments. It
// is encoded using the same segments when using [BER].
type OctetString struct {
	data       []byte
	segments   []OctetString
	indefinite bool
}

// NewOctetString returns an [OctetString] holding a copy of b.
func NewOctetString(b []byte) OctetString {
	return OctetString{data: slices.Clone(b)}
}

func octetStringFromContents(c []byte, _ *config) (Value, error) {
	return OctetString{data: c}, nil
}

func octetStringFromSegments(elements []Value, indefinite bool) (Value, error) {
	segments := make([]OctetString, len(elements))
	n := 0
	for i, e := range elements {
		s, ok := e.(OctetString)
		if !ok {
			return nil, contentError(asn1tree.TagOctetString, "unknown object encountered in constructed OCTET STRING: %s", e.Kind())
		}
		segments[i] = s
		n += len(s.data)
	}
	data := make([]byte, 0, n)
	for _, s := range segments {
		data = append(data, s.data...)
	}
	return OctetString{data: data, segments: segments, indefinite: indefinite}, nil
}

// Bytes returns a copy of the octets of s.
func (s OctetString) Bytes() []byte { return slices.Clone(s.data) }

// Len returns the number of octets in s.
func (s OctetString) Len() int { return len(s.data) }

func (s OctetString) contents() []byte { return s.data }

func (OctetString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagOctetString) }
func (OctetString) Kind() Kind        { return KindOctetString }

func (s OctetString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }

func (s OctetString) EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding {
	if rules == BER && s.segments != nil {
		children := make([]Encoding, len(s.segments))
		for i, seg := range s.segments {
			children[i] = seg.Encoding(BER)
		}
		return newConstructedEncoding(tag, s.indefinite, children)
	}
	return NewPrimitiveEncoding(tag, s.data)
}

func (s OctetString) String() string {
	return "#" + strings.ToUpper(hexString(s.data))
}

func hexString(b []byte) string { return hex.EncodeToString(b) }
