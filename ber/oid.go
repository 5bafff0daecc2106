// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"
	"hash/maphash"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync/atomic"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/internal/vlq"
)

const (
	// maxOIDContentsLength is the maximum number of contents octets of an
	// OBJECT IDENTIFIER or RELATIVE-OID.
	maxOIDContentsLength = 4096

	// maxOIDStringLength is the maximum length of the dotted decimal form.
	maxOIDStringLength = 16385
)

// ObjectIdentifier is the ASN.1 OBJECT IDENTIFIER type. ObjectIdentifier
// values are comparable using the == operator and can be used as map keys.
// The zero value is not a valid object identifier.
type ObjectIdentifier struct {
	c string // contents octets
}

// ParseObjectIdentifier parses an object identifier in dotted decimal form
// such as "1.2.840.113549". The first arc must be 0, 1 or 2. If the first arc
// is 0 or 1, the second arc must be less than 40.
func ParseObjectIdentifier(s string) (ObjectIdentifier, error) {
	if len(s) > maxOIDStringLength {
		return ObjectIdentifier{}, errors.New("exceeded OID string length limit")
	}
	arcs, err := parseArcs(s)
	if err != nil {
		return ObjectIdentifier{}, fmt.Errorf("string %q not a valid OID: %w", s, err)
	}
	if len(arcs) < 2 {
		return ObjectIdentifier{}, fmt.Errorf("string %q not a valid OID: too few arcs", s)
	}
	if arcs[0].Cmp(big.NewInt(2)) > 0 {
		return ObjectIdentifier{}, fmt.Errorf("string %q not a valid OID: first arc must be 0, 1 or 2", s)
	}
	if arcs[0].Cmp(big.NewInt(2)) < 0 && arcs[1].Cmp(big.NewInt(40)) >= 0 {
		return ObjectIdentifier{}, fmt.Errorf("string %q not a valid OID: second arc must be less than 40", s)
	}
	first := new(big.Int).Mul(arcs[0], big.NewInt(40))
	first.Add(first, arcs[1])
	c := appendBase128(nil, first)
	for _, a := range arcs[2:] {
		c = appendBase128(c, a)
	}
	if len(c) > maxOIDContentsLength {
		return ObjectIdentifier{}, errors.New("exceeded OID contents length limit")
	}
	return ObjectIdentifier{string(c)}, nil
}

// MustParseObjectIdentifier is like [ParseObjectIdentifier] but panics if s
// is not a valid object identifier.
func MustParseObjectIdentifier(s string) ObjectIdentifier {
	oid, err := ParseObjectIdentifier(s)
	if err != nil {
		panic(err)
	}
	return oid
}

// parseArcs parses a dot-separated list of decimal numbers without leading
// zeros.
func parseArcs(s string) ([]*big.Int, error) {
	if s == "" {
		return nil, errors.New("empty string")
	}
	var arcs []*big.Int
	for part := range strings.SplitSeq(s, ".") {
		if part == "" {
			return nil, errors.New("empty arc")
		}
		if len(part) > 1 && part[0] == '0' {
			return nil, errors.New("leading zero in arc")
		}
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return nil, fmt.Errorf("invalid character %q", part[i])
			}
		}
		a, _ := new(big.Int).SetString(part, 10)
		arcs = append(arcs, a)
	}
	return arcs, nil
}

// appendBase128 appends the base-128 big-endian encoding of the non-negative
// value x.
func appendBase128(dst []byte, x *big.Int) []byte {
	if x.IsUint64() {
		return vlq.Append(dst, x.Uint64())
	}
	n := (x.BitLen() + 6) / 7
	var tmp big.Int
	for i := n - 1; i >= 0; i-- {
		var b byte
		if words := tmp.Rsh(x, uint(i*7)).Bits(); len(words) > 0 {
			b = byte(words[0]) & 0x7f
		}
		if i != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}

// validOIDContents reports whether c is a non-empty sequence of minimally
// encoded base-128 numbers.
func validOIDContents(c []byte) bool {
	if len(c) < 1 {
		return false
	}
	start := true
	for _, b := range c {
		if start && b == 0x80 {
			return false
		}
		start = b&0x80 == 0
	}
	return start
}

func checkOIDContents(tagNumber uint, c []byte) error {
	if len(c) > maxOIDContentsLength {
		return contentError(tagNumber, "exceeded OID contents length limit")
	}
	if !validOIDContents(c) {
		return contentError(tagNumber, "invalid OID contents")
	}
	return nil
}

func objectIdentifierFromContents(c []byte, cfg *config) (Value, error) {
	if err := checkOIDContents(asn1tree.TagOID, c); err != nil {
		return nil, err
	}
	if cfg.oidCache {
		return internOID(c), nil
	}
	return ObjectIdentifier{string(c)}, nil
}

// oidCache holds recently decoded object identifiers. Each slot holds the
// contents of a single object identifier. Colliding identifiers replace each
// other.
var (
	oidCache     [1024]atomic.Pointer[string]
	oidCacheSeed = maphash.MakeSeed()
)

// internOID returns an ObjectIdentifier for the contents c, sharing the
// contents with a previously decoded equal identifier if possible.
func internOID(c []byte) ObjectIdentifier {
	slot := &oidCache[maphash.Bytes(oidCacheSeed, c)%uint64(len(oidCache))]
	if p := slot.Load(); p != nil && *p == string(c) {
		return ObjectIdentifier{*p}
	}
	s := string(c)
	slot.Store(&s)
	return ObjectIdentifier{s}
}

// Branch returns the object identifier formed by appending the dot-separated
// arcs in branch to o.
func (o ObjectIdentifier) Branch(branch string) (ObjectIdentifier, error) {
	arcs, err := parseArcs(branch)
	if err != nil {
		return ObjectIdentifier{}, fmt.Errorf("string %q not a valid OID branch: %w", branch, err)
	}
	c := []byte(o.c)
	for _, a := range arcs {
		c = appendBase128(c, a)
	}
	if len(c) > maxOIDContentsLength {
		return ObjectIdentifier{}, errors.New("exceeded OID contents length limit")
	}
	return ObjectIdentifier{string(c)}, nil
}

// HasPrefix reports whether o lies strictly below the branch identified by
// prefix.
func (o ObjectIdentifier) HasPrefix(prefix ObjectIdentifier) bool {
	return len(o.c) > len(prefix.c) && strings.HasPrefix(o.c, prefix.c)
}

// Bytes returns the contents octets of o.
func (o ObjectIdentifier) Bytes() []byte { return []byte(o.c) }

func (ObjectIdentifier) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagOID) }
func (ObjectIdentifier) Kind() Kind        { return KindObjectIdentifier }

func (o ObjectIdentifier) Encoding(rules Rules) Encoding { return o.EncodingImplicit(rules, o.Tag()) }
func (o ObjectIdentifier) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, []byte(o.c))
}

// String returns the dotted decimal form of o.
func (o ObjectIdentifier) String() string {
	return formatArcs(o.c, true)
}

// formatArcs formats the base-128 numbers in c in dotted decimal form. If oid
// is true, the first number is split into the first two arcs.
func formatArcs(c string, oid bool) string {
	var sb strings.Builder
	var value uint64
	var bigValue *big.Int
	first := oid
	writeArc := func(v *big.Int, u uint64) {
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		if first {
			first = false
			switch {
			case v == nil && u < 40:
				sb.WriteString("0.")
			case v == nil && u < 80:
				sb.WriteString("1.")
				u -= 40
			case v == nil:
				sb.WriteString("2.")
				u -= 80
			default:
				sb.WriteString("2.")
				v = new(big.Int).Sub(v, big.NewInt(80))
			}
		}
		if v != nil {
			sb.WriteString(v.String())
		} else {
			sb.WriteString(strconv.FormatUint(u, 10))
		}
	}
	for i := 0; i < len(c); i++ {
		b := c[i]
		if bigValue == nil && value <= math.MaxUint64>>7 {
			value = value<<7 | uint64(b&0x7f)
			if b&0x80 == 0 {
				writeArc(nil, value)
				value = 0
			}
			continue
		}
		if bigValue == nil {
			bigValue = new(big.Int).SetUint64(value)
		}
		bigValue.Lsh(bigValue, 7)
		bigValue.Or(bigValue, big.NewInt(int64(b&0x7f)))
		if b&0x80 == 0 {
			writeArc(bigValue, 0)
			bigValue = nil
			value = 0
		}
	}
	return sb.String()
}

// RelativeOID is the ASN.1 RELATIVE-OID type. RelativeOID values are
// comparable using the == operator.
type RelativeOID struct {
	c string
}

// ParseRelativeOID parses a relative object identifier in dotted decimal form
// such as "8571.3.2".
func ParseRelativeOID(s string) (RelativeOID, error) {
	if len(s) > maxOIDStringLength {
		return RelativeOID{}, errors.New("exceeded relative OID string length limit")
	}
	arcs, err := parseArcs(s)
	if err != nil {
		return RelativeOID{}, fmt.Errorf("string %q not a valid relative OID: %w", s, err)
	}
	var c []byte
	for _, a := range arcs {
		c = appendBase128(c, a)
	}
	if len(c) > maxOIDContentsLength {
		return RelativeOID{}, errors.New("exceeded relative OID contents length limit")
	}
	return RelativeOID{string(c)}, nil
}

func relativeOIDFromContents(c []byte, _ *config) (Value, error) {
	if err := checkOIDContents(asn1tree.TagRelativeOID, c); err != nil {
		return nil, err
	}
	return RelativeOID{string(c)}, nil
}

// Bytes returns the contents octets of o.
func (o RelativeOID) Bytes() []byte { return []byte(o.c) }

func (RelativeOID) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagRelativeOID) }
func (RelativeOID) Kind() Kind        { return KindRelativeOID }

func (o RelativeOID) Encoding(rules Rules) Encoding { return o.EncodingImplicit(rules, o.Tag()) }
func (o RelativeOID) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, []byte(o.c))
}

func (o RelativeOID) String() string { return formatArcs(o.c, false) }
