// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"fmt"

	"codello.dev/asn1tree"
)

// contentError returns an error indicating invalid contents octets for the
// universal type tagNumber.
func contentError(tagNumber uint, format string, args ...any) error {
	return &asn1tree.ContentError{Tag: asn1tree.Universal(tagNumber), Msg: fmt.Sprintf(format, args...)}
}

// Boolean is the ASN.1 BOOLEAN type. A decoded Boolean keeps its contents
// octet so that it can be re-encoded unchanged using [BER] or [DL].
type Boolean struct {
	b byte
}

// Canonical BOOLEAN values.
var (
	True  = Boolean{0xff}
	False = Boolean{0x00}
)

// NewBoolean returns the canonical [Boolean] value for v.
func NewBoolean(v bool) Boolean {
	if v {
		return True
	}
	return False
}

// Bool reports whether b is TRUE.
func (b Boolean) Bool() bool { return b.b != 0x00 }

func (Boolean) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagBoolean) }
func (Boolean) Kind() Kind        { return KindBoolean }

func (b Boolean) Encoding(rules Rules) Encoding {
	return b.EncodingImplicit(rules, b.Tag())
}

// EncodingImplicit encodes TRUE as 0xFF when using [DER].
func (b Boolean) EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding {
	c := b.b
	if rules == DER && c != 0x00 {
		c = 0xff
	}
	return NewPrimitiveEncoding(tag, []byte{c})
}

func (b Boolean) String() string {
	if b.Bool() {
		return "TRUE"
	}
	return "FALSE"
}

func booleanFromContents(c []byte, _ *config) (Value, error) {
	if len(c) != 1 {
		return nil, contentError(asn1tree.TagBoolean, "BOOLEAN value should have 1 byte in it")
	}
	return Boolean{c[0]}, nil
}

// Null is the ASN.1 NULL type. The zero value is the only NULL value.
type Null struct{}

func (Null) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagNull) }
func (Null) Kind() Kind        { return KindNull }

func (n Null) Encoding(rules Rules) Encoding { return n.EncodingImplicit(rules, n.Tag()) }
func (Null) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, nil)
}

func (Null) String() string { return "NULL" }

func nullFromContents(c []byte, _ *config) (Value, error) {
	if len(c) != 0 {
		return nil, contentError(asn1tree.TagNull, "malformed NULL encoding encountered")
	}
	return Null{}, nil
}
