// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"codello.dev/asn1tree"
)

// BitString is the ASN.1 BIT STRING type. The unused bits of the final octet
// are kept as decoded. They are set to zero when the value is encoded using
// [DER].
//
// A BitString decoded from the constructed form remembers its segments. It is
// encoded using the same segments when using [BER].
type BitString struct {
	c          []byte // c[0] is the number of unused bits
	segments   []BitString
	indefinite bool
}

// NewBitString returns a [BitString] with the given data octets and number of
// unused bits in the final octet. padBits must be between 0 and 7 and must be
// 0 if data is empty.
func NewBitString(data []byte, padBits int) (BitString, error) {
	if padBits < 0 || padBits > 7 {
		return BitString{}, errors.New("pad bits cannot be greater than 7 or less than 0")
	}
	if len(data) == 0 && padBits != 0 {
		return BitString{}, errors.New("zero length data with non-zero pad bits")
	}
	c := make([]byte, 1, len(data)+1)
	c[0] = byte(padBits)
	return BitString{c: append(c, data...)}, nil
}

// NewBitStringFromBits returns a [BitString] of length bitLen from the
// leading bits of data.
func NewBitStringFromBits(data []byte, bitLen int) (BitString, error) {
	n := (bitLen + 7) / 8
	if bitLen < 0 || n > len(data) {
		return BitString{}, fmt.Errorf("bit length %d out of range", bitLen)
	}
	return NewBitString(data[:n], n*8-bitLen)
}

func bitStringFromContents(c []byte, _ *config) (Value, error) {
	if len(c) < 1 {
		return nil, contentError(asn1tree.TagBitString, "truncated BIT STRING detected")
	}
	if c[0] > 7 {
		return nil, contentError(asn1tree.TagBitString, "pad bits cannot be greater than 7 or less than 0")
	}
	if len(c) == 1 && c[0] != 0 {
		return nil, contentError(asn1tree.TagBitString, "zero length data with non-zero pad bits")
	}
	return BitString{c: c}, nil
}

func bitStringFromSegments(elements []Value, indefinite bool) (Value, error) {
	segments := make([]BitString, len(elements))
	n := 1
	for i, e := range elements {
		s, ok := e.(BitString)
		if !ok {
			return nil, contentError(asn1tree.TagBitString, "unknown object encountered in constructed BIT STRING: %s", e.Kind())
		}
		if s.PadBits() != 0 && i < len(elements)-1 {
			return nil, fmt.Errorf("%w: only the last nested bitstring can have padding", asn1tree.ErrInvalidSegmentPadding)
		}
		segments[i] = s
		n += len(s.c) - 1
	}
	c := make([]byte, 1, n)
	for _, s := range segments {
		c = append(c, s.c[1:]...)
	}
	if len(segments) > 0 {
		c[0] = segments[len(segments)-1].c[0]
	}
	return BitString{c: c, segments: segments, indefinite: indefinite}, nil
}

// PadBits returns the number of unused bits in the final octet.
func (s BitString) PadBits() int {
	if len(s.c) == 0 {
		return 0
	}
	return int(s.c[0])
}

// BitLen returns the number of bits in s.
func (s BitString) BitLen() int {
	if len(s.c) == 0 {
		return 0
	}
	return (len(s.c)-1)*8 - int(s.c[0])
}

// At returns the bit at index i. It returns 0 if i is out of range.
func (s BitString) At(i int) int {
	if i < 0 || i >= s.BitLen() {
		return 0
	}
	x := i / 8
	y := 7 - uint(i%8)
	return int(s.c[x+1]>>y) & 1
}

// Bytes returns the data octets of s. The unused bits of the final octet are
// set to zero.
func (s BitString) Bytes() []byte {
	if len(s.c) <= 1 {
		return []byte{}
	}
	b := slices.Clone(s.c[1:])
	b[len(b)-1] &= 0xff << s.c[0]
	return b
}

// Octets returns the data octets of s. It returns an error if the length of s
// is not a multiple of 8.
func (s BitString) Octets() ([]byte, error) {
	if s.PadBits() != 0 {
		return nil, errors.New("attempt to get non-octet aligned data from BIT STRING")
	}
	return s.Bytes(), nil
}

func (BitString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagBitString) }
func (BitString) Kind() Kind        { return KindBitString }

func (s BitString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }

func (s BitString) EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding {
	if rules == BER && s.segments != nil {
		children := make([]Encoding, len(s.segments))
		for i, seg := range s.segments {
			children[i] = seg.Encoding(BER)
		}
		return newConstructedEncoding(tag, s.indefinite, children)
	}
	c := s.c
	if len(c) == 0 {
		c = []byte{0x00}
	}
	if rules == DER && c[0] != 0 {
		last := c[len(c)-1]
		if masked := last & (0xff << c[0]); masked != last {
			c = slices.Clone(c)
			c[len(c)-1] = masked
		}
	}
	return NewPrimitiveEncoding(tag, c)
}

func (s BitString) String() string {
	var b strings.Builder
	b.WriteByte('#')
	b.WriteString(strings.ToUpper(hexString(s.Bytes())))
	if p := s.PadBits(); p != 0 {
		b.WriteString(" (" + strconv.Itoa(p) + " unused bits)")
	}
	return b.String()
}
