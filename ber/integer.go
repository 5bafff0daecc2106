// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"math/big"
	"slices"

	"codello.dev/asn1tree"
)

// Integer is the ASN.1 INTEGER type. An Integer stores the minimal two's
// complement representation of its value and supports arbitrary precision.
type Integer struct {
	c []byte
}

// NewInteger returns the [Integer] with value x.
func NewInteger(x int64) Integer {
	return Integer{appendInt64(nil, x)}
}

// NewBigInteger returns the [Integer] with value x.
func NewBigInteger(x *big.Int) Integer {
	return Integer{appendBigInt(nil, x)}
}

// appendInt64 appends the minimal two's complement representation of x.
func appendInt64(dst []byte, x int64) []byte {
	n := 1
	for v := x; v > 127 || v < -128; v >>= 8 {
		n++
	}
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(x>>uint(i*8)))
	}
	return dst
}

// appendBigInt appends the minimal two's complement representation of x.
func appendBigInt(dst []byte, x *big.Int) []byte {
	switch x.Sign() {
	case 0:
		return append(dst, 0x00)
	case 1:
		b := x.Bytes()
		if b[0]&0x80 != 0 {
			dst = append(dst, 0x00)
		}
		return append(dst, b...)
	}
	// Two's complement of -x is the bitwise complement of x-1.
	n := new(big.Int).Neg(x)
	n.Sub(n, big.NewInt(1))
	b := n.Bytes()
	for i := range b {
		b[i] ^= 0xff
	}
	if len(b) == 0 || b[0]&0x80 == 0 {
		dst = append(dst, 0xff)
	}
	return append(dst, b...)
}

// checkInteger validates the contents octets of an INTEGER or ENUMERATED.
func checkInteger(tagNumber uint, c []byte) error {
	if len(c) == 0 {
		return contentError(tagNumber, "empty integer")
	}
	if len(c) > 1 && (c[0] == 0x00 && c[1]&0x80 == 0 || c[0] == 0xff && c[1]&0x80 != 0) {
		return contentError(tagNumber, "integer not minimally-encoded")
	}
	return nil
}

func integerFromContents(c []byte, _ *config) (Value, error) {
	if err := checkInteger(asn1tree.TagInteger, c); err != nil {
		return nil, err
	}
	return Integer{c}, nil
}

// IsInt64 reports whether i can be represented as an int64.
func (i Integer) IsInt64() bool { return len(i.c) <= 8 }

// Int64 returns the value of i. If i cannot be represented as an int64 the
// result is undefined.
func (i Integer) Int64() int64 {
	if len(i.c) == 0 {
		return 0
	}
	var v int64
	for _, b := range i.c {
		v = v<<8 | int64(b)
	}
	if n := len(i.c); n < 8 {
		shift := uint(64 - 8*n)
		v = v << shift >> shift
	}
	return v
}

// Big returns the value of i as a newly allocated [big.Int].
func (i Integer) Big() *big.Int {
	ret := new(big.Int)
	if len(i.c) == 0 {
		return ret
	}
	if i.c[0]&0x80 == 0 {
		return ret.SetBytes(i.c)
	}
	b := slices.Clone(i.c)
	for j := range b {
		b[j] ^= 0xff
	}
	ret.SetBytes(b)
	ret.Add(ret, big.NewInt(1))
	return ret.Neg(ret)
}

// Sign returns -1, 0 or +1 depending on the sign of i.
func (i Integer) Sign() int {
	switch {
	case len(i.c) == 0 || len(i.c) == 1 && i.c[0] == 0:
		return 0
	case i.c[0]&0x80 != 0:
		return -1
	}
	return 1
}

// Bytes returns the two's complement representation of i.
func (i Integer) Bytes() []byte { return slices.Clone(i.c) }

func (Integer) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagInteger) }
func (Integer) Kind() Kind        { return KindInteger }

func (i Integer) Encoding(rules Rules) Encoding { return i.EncodingImplicit(rules, i.Tag()) }
func (i Integer) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	if len(i.c) == 0 {
		return NewPrimitiveEncoding(tag, []byte{0x00})
	}
	return NewPrimitiveEncoding(tag, i.c)
}

func (i Integer) String() string { return i.Big().String() }

var errNegativeEnumerated = errors.New("enumerated must be non-negative")

// Enumerated is the ASN.1 ENUMERATED type. Enumerated values are
// non-negative.
type Enumerated struct {
	c []byte
}

// NewEnumerated returns the [Enumerated] with value x. An error is returned
// if x is negative.
func NewEnumerated(x int64) (Enumerated, error) {
	if x < 0 {
		return Enumerated{}, errNegativeEnumerated
	}
	return Enumerated{appendInt64(nil, x)}, nil
}

func enumeratedFromContents(c []byte, _ *config) (Value, error) {
	if err := checkInteger(asn1tree.TagEnumerated, c); err != nil {
		return nil, err
	}
	if c[0]&0x80 != 0 {
		return nil, contentError(asn1tree.TagEnumerated, "%s", errNegativeEnumerated)
	}
	return Enumerated{c}, nil
}

// Int64 returns the value of e. If the value cannot be represented as an
// int64 the result is undefined.
func (e Enumerated) Int64() int64 { return Integer(e).Int64() }

// IsInt64 reports whether e can be represented as an int64.
func (e Enumerated) IsInt64() bool { return Integer(e).IsInt64() }

// Big returns the value of e as a newly allocated [big.Int].
func (e Enumerated) Big() *big.Int { return Integer(e).Big() }

func (Enumerated) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagEnumerated) }
func (Enumerated) Kind() Kind        { return KindEnumerated }

func (e Enumerated) Encoding(rules Rules) Encoding { return e.EncodingImplicit(rules, e.Tag()) }
func (e Enumerated) EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding {
	return Integer(e).EncodingImplicit(rules, tag)
}

func (e Enumerated) String() string { return Integer(e).String() }
