// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tlv implements the tag-length-value (TLV) layer of the Basic
// Encoding Rules (BER) and related encoding rules as specified in
// [Rec. ITU-T X.690]. See also “[A Layman's Guide to a Subset of ASN.1, BER,
// and DER]”.
//
// The package reads and writes identifier and length octets (together called a
// [Header]) and provides bounded views of the contents octets that follow a
// header:
//
//   - A [DefiniteReader] yields exactly the number of bytes announced by a
//     definite length and reports a truncated value if the input ends early.
//   - An [IndefiniteReader] yields bytes until the two-byte end-of-contents
//     marker 00 00 is found. Detection of the marker can be switched off while
//     a header is being resolved, see [IndefiniteReader.SetEndMarkerDetection].
//
// Both views enforce a limit: a definite length must be strictly smaller than
// the number of bytes available in the enclosing data value. This prevents
// corrupt length fields from referencing data beyond their container.
//
// This package deals with the syntactic layer of BER while package
// [codello.dev/asn1tree/ber] deals with the semantic layer.
//
// [Rec. ITU-T X.690]: https://www.itu.int/rec/T-REC-X.690
// [A Layman's Guide to a Subset of ASN.1, BER, and DER]: http://luca.ntop.org/Teaching/Appunti/asn1.html
package tlv

import (
	"io"
	"math"
	"strconv"

	"codello.dev/asn1tree"
)

// Reader is the interface of the byte sources that this package reads from.
type Reader interface {
	io.Reader
	io.ByteReader
}

// TagEndOfContents is the tag that signifies the end of a constructed element.
// You can use this constant for clarity, the following are the same:
//
//	tlv.Header{}
//	tlv.Header{Tag: asn1tree.Universal(tlv.TagEndOfContents)}
//	tlv.EndOfContents
const TagEndOfContents = asn1tree.TagReserved

// EndOfContents is the end-of-contents marker signalling the end of a
// constructed element using the indefinite-length form.
var EndOfContents = Header{Tag: asn1tree.Universal(TagEndOfContents)}

// LengthIndefinite when used as a magic number for the length of a [Header]
// indicates that the data value is encoded using the constructed
// indefinite-length format.
const LengthIndefinite = -1

// Unbounded is the limit used for inputs whose size is not known in advance.
const Unbounded = math.MaxInt

// CombinedLength returns the length of a data value encoding (not including its
// header) consisting of data value encodings of the specified lengths. If any
// of the passed lengths are [LengthIndefinite] or the result does not fit into
// the int type, the result is [LengthIndefinite].
func CombinedLength(ls ...int) int {
	sum := 0
	for _, l := range ls {
		if l == LengthIndefinite {
			return LengthIndefinite
		}
		if l > math.MaxInt-sum { // overflow
			return LengthIndefinite
		}
		sum += l
	}
	return sum
}

// MinLength returns the smaller of the two given lengths. [LengthIndefinite]
// is treated as larger than any definite length.
func MinLength(l1, l2 int) int {
	// The bit pattern of LengthIndefinite is the largest uint.
	return max(int(min(uint(l1), uint(l2))), LengthIndefinite)
}

// Header represents a TLV header. The [Header.Length] may be [LengthIndefinite]
// if an indefinite-length encoding is used. It is invalid to use the
// indefinite-length encoding when [Header.Constructed] = false.
type Header struct {
	Tag         asn1tree.Tag
	Constructed bool
	Length      int
}

// String returns a string representation of h.
func (h Header) String() string {
	if h == EndOfContents {
		return "EndOfContents"
	}
	s := h.Tag.String()
	if h.Constructed {
		s += "/c"
	} else {
		s += "/p"
	}
	if h.Length == LengthIndefinite {
		return s + ":indefinite"
	}
	return s + ":" + strconv.Itoa(h.Length)
}

// Size returns the number of bytes of the identifier and length octets of h.
// It does not include the contents or an end-of-contents marker.
func (h Header) Size() int {
	return IdentifierSize(h.Tag) + LengthSize(h.Length)
}

// EncodedLen returns the number of bytes of a complete data value encoding
// with header h. For indefinite-length encodings contentLen must be the
// combined length of the nested encodings. The two bytes of the
// end-of-contents marker are included. If the result overflows, EncodedLen
// returns -1.
func (h Header) EncodedLen(contentLen int) int {
	l := CombinedLength(h.Size(), contentLen)
	if h.Length == LengthIndefinite {
		l = CombinedLength(l, 2)
	}
	return l
}
