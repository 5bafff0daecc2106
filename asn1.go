// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asn1tree defines the identifiers and errors shared by the packages of
// this module. The module decodes and encodes ASN.1 data values using the Basic
// Encoding Rules (BER) and their canonical subset, the Distinguished Encoding
// Rules (DER), as specified in [Rec. ITU-T X.690].
//
// The packages are layered:
//
//   - Package [codello.dev/asn1tree/tlv] reads and writes identifier and length
//     octets and provides bounded views of definite-length and
//     indefinite-length contents.
//   - Package [codello.dev/asn1tree/ber] implements an in-memory tree of ASN.1
//     values, an eager and a lazy decoder, a pull parser, and an encoder that
//     emits BER, DL or DER.
//   - Package [codello.dev/asn1tree/dump] renders decoded trees for humans and
//     for other serialization formats.
//
// This package only holds the pieces that all of them agree on: the [Tag] and
// [Class] types, the universal tag numbers assigned in [Rec. ITU-T X.680], and
// the error values returned when decoding fails.
//
// [Rec. ITU-T X.680]: https://www.itu.int/rec/T-REC-X.680
// [Rec. ITU-T X.690]: https://www.itu.int/rec/T-REC-X.690
package asn1tree

import (
	"strconv"
	"strings"
)

// Tag constitutes an ASN.1 tag, consisting of its class and number. For
// details, see Section 8 of Rec. ITU-T X.680.
type Tag struct {
	Class  Class
	Number uint
}

// Universal returns the tag with the given number in the [ClassUniversal]
// namespace.
func Universal(number uint) Tag {
	return Tag{ClassUniversal, number}
}

// ContextSpecific returns the tag with the given number in the
// [ClassContextSpecific] namespace.
func ContextSpecific(number uint) Tag {
	return Tag{ClassContextSpecific, number}
}

// Application returns the tag with the given number in the [ClassApplication]
// namespace.
func Application(number uint) Tag {
	return Tag{ClassApplication, number}
}

// Private returns the tag with the given number in the [ClassPrivate] namespace.
func Private(number uint) Tag {
	return Tag{ClassPrivate, number}
}

// IsUniversal reports whether t is in the [ClassUniversal] namespace.
func (t Tag) IsUniversal() bool {
	return t.Class == ClassUniversal
}

// Class holds the class part of an ASN.1 tag. The class acts as a namespace for
// the tag number. A Class value is an unsigned 2-bit integer. Class values
// whose value exceeds 2 bits are invalid.
//
//go:generate stringer -type=Class -trimprefix=Class
type Class uint8

// IsValid reports whether c is a valid Class value.
func (c Class) IsValid() bool {
	return c <= 3
}

// Predefined [Class] constants. These are all the possible values that can be
// encoded in the [Class] type. The numeric values match bits 8 and 7 of an
// identifier octet.
const (
	ClassUniversal Class = iota
	ClassApplication
	ClassContextSpecific
	ClassPrivate
)

// String returns a string representation t in a format similar to the one used
// in ASN.1 notation. The tag number is enclosed by square brackets and prefixed
// with the class used. To avoid ambiguity the UNIVERSAL word is used for
// universal tags, although this is not valid ASN.1 syntax.
func (t Tag) String() string {
	if t.Class == ClassContextSpecific {
		return "[" + strconv.FormatUint(uint64(t.Number), 10) + "]"
	}
	return "[" + strings.ToUpper(t.Class.String()) + " " + strconv.FormatUint(uint64(t.Number), 10) + "]"
}

// MaxTagNumber is the largest tag number supported by this module. Tag numbers
// are limited to 31 bits.
const MaxTagNumber = 1<<31 - 1

// TagReserved is a reserved tag number in the [ClassUniversal] namespace to be
// used by encoding rules. BER uses it for the end-of-contents marker. This
// assignment is defined in Rec. ITU-T X.680, Section 8, Table 1.
const TagReserved = 0

// These are the ASN.1 tag numbers defined in the [ClassUniversal] namespace.
// These assignments are defined in Rec. ITU-T X.680, Section 8, Table 1.
const (
	TagBoolean          uint = 1
	TagInteger          uint = 2
	TagBitString        uint = 3
	TagOctetString      uint = 4
	TagNull             uint = 5
	TagOID              uint = 6
	TagObjectDescriptor uint = 7
	TagExternal         uint = 8
	TagReal             uint = 9
	TagEnumerated       uint = 10
	TagEmbeddedPDV      uint = 11
	TagUTF8String       uint = 12
	TagRelativeOID      uint = 13
	TagTime             uint = 14
	TagSequence         uint = 16
	TagSet              uint = 17
	TagNumericString    uint = 18
	TagPrintableString  uint = 19
	TagTeletexString    uint = 20
	TagT61String             = TagTeletexString
	TagVideotexString   uint = 21
	TagIA5String        uint = 22
	TagUTCTime          uint = 23
	TagGeneralizedTime  uint = 24
	TagGraphicString    uint = 25
	TagVisibleString    uint = 26
	TagISO646String          = TagVisibleString
	TagGeneralString    uint = 27
	TagUniversalString  uint = 28
	TagCharacterString  uint = 29
	TagBMPString        uint = 30
	TagDate             uint = 31
	TagTimeOfDay        uint = 32
	TagDateTime         uint = 33
	TagDuration         uint = 34
)
