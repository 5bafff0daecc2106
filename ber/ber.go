// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ber implements an in-memory object model of ASN.1 values together
// with decoders and an encoder for the Basic Encoding Rules (BER) and their
// restricted forms, the Distinguished Encoding Rules (DER) and the
// definite-length subset DL, as specified in [Rec. ITU-T X.690].
//
// # Values
//
// Every decoded or constructed ASN.1 value implements the [Value] interface.
// Leaf values ([Boolean], [Integer], [OctetString], [ObjectIdentifier], the
// character string types, ...) hold their contents octets. Container values
// ([Sequence], [Set], [TaggedObject], [External]) exclusively own their
// elements. Values are immutable once constructed and can be shared between
// goroutines.
//
// Two values are equal if and only if their DER encodings are identical, see
// [Equal]. This makes equality independent of the order of SET elements and of
// the unused bits of a BIT STRING.
//
// # Decoding
//
// [Parse] and [ParseStream] decode exactly one value. A [Decoder] decodes a
// stream of consecutive values. By default, decoding materializes the
// complete tree. With [WithLazy], definite-length SEQUENCE and SET values
// keep their contents octets until they are first accessed. A lazily decoded
// container re-encodes its original contents when encoded using [BER]. The
// input is always validated completely before a value is returned, so a
// lazily decoded container can always be materialized.
//
// A [Parser] reads values one at a time without materializing siblings. This
// is useful for large inputs of which only some parts are needed.
//
// # Encoding
//
// [Encode] encodes a value using the given [Rules]. The encoding of a value is
// prepared via [Value.Encoding] so that the length of every nested encoding is
// known before the first byte is written. A [Generator] writes
// indefinite-length encodings incrementally.
//
// # Construction
//
// Values are constructed using the New... functions of this package. A
// [Vector] collects the elements of a container before it is finalized into a
// [Sequence], [Set] or [TaggedObject].
//
// [Rec. ITU-T X.690]: https://www.itu.int/rec/T-REC-X.690
package ber

// Rules selects the encoding rules used to encode a [Value].
//
//go:generate stringer -type=Rules
type Rules uint8

const (
	// BER encodes values as they were decoded. Indefinite lengths and
	// segmented strings are kept if the decoded value used them. Lazily
	// decoded containers are written from their original contents octets.
	BER Rules = iota

	// DL (definite length) encodes all values using the definite-length form
	// and primitive strings but otherwise keeps the contents of decoded
	// values unchanged.
	DL

	// DER encodes values using the Distinguished Encoding Rules: definite
	// lengths, primitive strings, BOOLEAN TRUE as 0xFF, zero unused bits in
	// BIT STRING values, normalized GeneralizedTime values and sorted SET
	// elements.
	DER
)

// Kind identifies the type of a [Value].
//
//go:generate stringer -type=Kind -trimprefix=Kind
type Kind uint8

// Predefined [Kind] constants.
const (
	KindBoolean Kind = iota + 1
	KindInteger
	KindBitString
	KindOctetString
	KindNull
	KindObjectIdentifier
	KindObjectDescriptor
	KindExternal
	KindEnumerated
	KindUTF8String
	KindRelativeOID
	KindSequence
	KindSet
	KindNumericString
	KindPrintableString
	KindT61String
	KindVideotexString
	KindIA5String
	KindUTCTime
	KindGeneralizedTime
	KindGraphicString
	KindVisibleString
	KindGeneralString
	KindUniversalString
	KindBMPString
	KindTagged
)
