// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codello.dev/asn1tree"
)

//region Testing Helpers

// fromHex decodes a hex string that may contain spaces.
func fromHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return b
}

// must returns v or panics if err is not nil. It is used for constructing
// test values that are known to be valid.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// encode returns the encoding of v using rules.
func encode(t testing.TB, v Value, rules Rules) []byte {
	t.Helper()
	b, err := Encode(v, rules)
	require.NoError(t, err)
	return b
}

// corpus returns values of every kind that can be constructed.
func corpus(t testing.TB) map[string]Value {
	t.Helper()
	large := new(big.Int).Lsh(big.NewInt(1), 100)
	tagged := func(explicit bool, tag asn1tree.Tag, v Value) Value {
		return must(NewTaggedObject(explicit, tag, v))
	}
	oid := MustParseObjectIdentifier("1.2.840.113549.1.1.11")
	desc := must(NewObjectDescriptor("descriptor"))
	return map[string]Value{
		"True":             True,
		"False":            False,
		"Null":             Null{},
		"Zero":             NewInteger(0),
		"Positive":         NewInteger(128),
		"Negative":         NewInteger(-129),
		"Large":            NewBigInteger(large),
		"LargeNegative":    NewBigInteger(new(big.Int).Neg(large)),
		"Enumerated":       must(NewEnumerated(3)),
		"EmptyOctetString": NewOctetString(nil),
		"OctetString":      NewOctetString([]byte{0xde, 0xad, 0xbe, 0xef}),
		"EmptyBitString":   must(NewBitString(nil, 0)),
		"BitString":        must(NewBitString([]byte{0xa0, 0xf0}, 4)),
		"OID":              oid,
		"OIDBigArc":        MustParseObjectIdentifier("2.25.329800735698586629295641978511506172918"),
		"RelativeOID":      must(ParseRelativeOID("8571.3.2")),
		"UTF8String":       must(NewUTF8String("Grüße, 世界")),
		"NumericString":    must(NewNumericString("0123 456")),
		"PrintableString":  must(NewPrintableString("Test User 1")),
		"T61String":        must(NewT61String("café")),
		"VideotexString":   must(NewVideotexString("video")),
		"IA5String":        must(NewIA5String("test@example.com")),
		"GraphicString":    must(NewGraphicString("graphic")),
		"VisibleString":    must(NewVisibleString("visible")),
		"GeneralString":    must(NewGeneralString("general")),
		"UniversalString":  must(NewUniversalString("𝄞 clef")),
		"BMPString":        must(NewBMPString("Größe")),
		"ObjectDescriptor": desc,
		"UTCTime":          must(NewUTCTime(time.Date(2024, 2, 29, 13, 37, 0, 0, time.UTC))),
		"GeneralizedTime":  must(NewGeneralizedTime(time.Date(2051, 1, 2, 3, 4, 5, 250_000_000, time.UTC))),
		"EmptySequence":    NewSequence(),
		"Sequence":         NewSequence(NewInteger(1), NewSequence(True, Null{}), oid),
		"EmptySet":         NewSet(),
		"SingletonSet":     NewSet(NewInteger(1)),
		"Set":              NewSet(NewOctetString([]byte{1}), NewInteger(3), True),
		"ExplicitTag":      tagged(true, asn1tree.ContextSpecific(0), NewInteger(7)),
		"ImplicitTag":      tagged(false, asn1tree.ContextSpecific(1), NewOctetString([]byte("x"))),
		"ImplicitSequence": tagged(false, asn1tree.Application(3), NewSequence(NewInteger(1), NewInteger(2))),
		"HighTag":          tagged(true, asn1tree.Private(1000), Null{}),
		"External":         must(NewExternal(&oid, nil, &desc, 1, NewOctetString([]byte{1, 2}))),
		"ExternalSingle":   must(NewExternal(nil, nil, nil, 0, NewInteger(42))),
	}
}

//endregion

func TestRoundTrip(t *testing.T) {
	for name, v := range corpus(t) {
		t.Run(name, func(t *testing.T) {
			der := encode(t, v, DER)
			got, err := Parse(der)
			require.NoError(t, err)
			assert.True(t, Equal(v, got), "Parse(Encode(%v)) = %v", v, got)
			assert.Equal(t, Hash(v), Hash(got))
			assert.Equal(t, der, encode(t, got, DER), "DER encoding is not a fixed point")
			assert.Equal(t, v.Kind(), got.Kind())
		})
	}
}

func TestRoundTrip_lazy(t *testing.T) {
	for name, v := range corpus(t) {
		t.Run(name, func(t *testing.T) {
			der := encode(t, v, DER)
			got, err := Parse(der, WithLazy(true))
			require.NoError(t, err)
			assert.Equal(t, der, encode(t, got, BER))
			assert.Equal(t, der, encode(t, got, DER))
		})
	}
}

func TestEncode_setOrdering(t *testing.T) {
	a := encode(t, NewSet(NewInteger(5), True), DER)
	b := encode(t, NewSet(True, NewInteger(5)), DER)
	assert.Equal(t, fromHex(t, "31 06 01 01 FF 02 01 05"), a)
	assert.Equal(t, a, b)

	// Under BER the order of construction is kept.
	assert.Equal(t, fromHex(t, "31 06 02 01 05 01 01 FF"), encode(t, NewSet(NewInteger(5), True), BER))
}

func TestEncode_setOrderingConstructedBit(t *testing.T) {
	// [1] primitive sorts before [2] constructed, which sorts before a
	// primitive [2] with greater contents.
	p1 := must(NewTaggedObject(false, asn1tree.ContextSpecific(1), NewOctetString([]byte{0xff})))
	c2 := must(NewTaggedObject(true, asn1tree.ContextSpecific(2), Null{}))
	p2 := must(NewTaggedObject(false, asn1tree.ContextSpecific(2), NewOctetString([]byte{0x05, 0x01})))
	want := fromHex(t, "31 0B 81 01 FF A2 02 05 00 82 02 05 01")
	assert.Equal(t, want, encode(t, NewSet(p2, c2, p1), DER))
	assert.Equal(t, want, encode(t, NewSet(p1, p2, c2), DER))
}

func TestParse_lengthLimit(t *testing.T) {
	_, err := Parse(fromHex(t, "02 7F 01"))
	require.Error(t, err)
	assert.ErrorIs(t, err, asn1tree.ErrMalformedLength)
	assert.ErrorIs(t, err, asn1tree.ErrLengthExceedsLimit)
}

func TestParse_indefiniteLength(t *testing.T) {
	v, err := Parse(fromHex(t, "30 80 02 01 01 02 01 02 00 00"))
	require.NoError(t, err)
	seq, err := As[*Sequence](v)
	require.NoError(t, err)
	assert.Equal(t, 2, seq.Len())
	assert.True(t, Equal(NewSequence(NewInteger(1), NewInteger(2)), seq))
	assert.Equal(t, fromHex(t, "30 06 02 01 01 02 01 02"), encode(t, seq, DER))
	assert.Equal(t, fromHex(t, "30 06 02 01 01 02 01 02"), encode(t, seq, DL))
	assert.Equal(t, fromHex(t, "30 80 02 01 01 02 01 02 00 00"), encode(t, seq, BER))
}

func TestParse_bitStringPadding(t *testing.T) {
	canonical, err := Parse(fromHex(t, "03 02 04 F0"))
	require.NoError(t, err)
	sloppy, err := Parse(fromHex(t, "03 02 04 F3"))
	require.NoError(t, err)

	assert.Equal(t, fromHex(t, "03 02 04 F0"), encode(t, canonical, BER))
	assert.Equal(t, fromHex(t, "03 02 04 F3"), encode(t, sloppy, BER))
	assert.Equal(t, fromHex(t, "03 02 04 F0"), encode(t, sloppy, DER))
	assert.True(t, Equal(canonical, sloppy))
	assert.Equal(t, []byte{0xF0}, sloppy.(BitString).Bytes())
}

func TestObjectIdentifier_encoding(t *testing.T) {
	oid, err := ParseObjectIdentifier("1.2.840.113549.1.1.11")
	require.NoError(t, err)
	der := encode(t, oid, DER)
	assert.Equal(t, fromHex(t, "06 09 2A 86 48 86 F7 0D 01 01 0B"), der)
	assert.Equal(t, byte(0x2A), der[2])
	v, err := Parse(der)
	require.NoError(t, err)
	assert.Equal(t, "1.2.840.113549.1.1.11", v.(ObjectIdentifier).String())
	assert.Equal(t, oid, v)
}

func TestTaggedObject_highTagNumber(t *testing.T) {
	low := must(NewTaggedObject(true, asn1tree.ContextSpecific(30), NewInteger(1)))
	high := must(NewTaggedObject(true, asn1tree.ContextSpecific(31), NewInteger(1)))
	lowDER := encode(t, low, DER)
	highDER := encode(t, high, DER)
	assert.Equal(t, fromHex(t, "BE 03 02 01 01"), lowDER)
	assert.Equal(t, fromHex(t, "BF 1F 03 02 01 01"), highDER)
	assert.Equal(t, lowDER[1:], highDER[2:])

	for _, der := range [][]byte{lowDER, highDER} {
		v, err := Parse(der)
		require.NoError(t, err)
		assert.Equal(t, der, encode(t, v, DER))
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(NewInteger(1), nil))
	assert.True(t, Equal(NewInteger(1), NewInteger(1)))
	assert.False(t, Equal(NewInteger(1), NewInteger(2)))
	// same contents, different tags
	assert.False(t, Equal(NewInteger(1), must(NewEnumerated(1))))
	// BER TRUE values with different contents octets
	v, err := Parse(fromHex(t, "01 01 01"))
	require.NoError(t, err)
	assert.True(t, Equal(True, v))
	assert.Equal(t, Hash(True), Hash(v))
	// sets are compared in DER order
	assert.True(t, Equal(NewSet(NewInteger(2), NewInteger(1)), NewSet(NewInteger(1), NewInteger(2))))
	assert.False(t, Equal(NewSequence(NewInteger(2), NewInteger(1)), NewSequence(NewInteger(1), NewInteger(2))))
}

func TestHash_mapKey(t *testing.T) {
	seen := make(map[uint64][]Value)
	for _, v := range corpus(t) {
		h := Hash(v)
		for _, other := range seen[h] {
			assert.True(t, Equal(v, other), "hash collision between %v and %v", v, other)
		}
		seen[h] = append(seen[h], v)
	}
}

func TestRules_String(t *testing.T) {
	assert.Equal(t, "BER", BER.String())
	assert.Equal(t, "DL", DL.String())
	assert.Equal(t, "DER", DER.String())
	assert.Equal(t, "Sequence", KindSequence.String())
}
