// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	stdasn1 "encoding/asn1"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"codello.dev/asn1tree"
)

// TestEncode_cryptobyte compares DER encodings against the independent
// implementation in cryptobyte.
func TestEncode_cryptobyte(t *testing.T) {
	ts := time.Date(2024, 2, 29, 13, 37, 5, 0, time.UTC)
	large := new(big.Int).Lsh(big.NewInt(1), 70)

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(-129)
		b.AddASN1ObjectIdentifier(stdasn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11})
		b.AddASN1OctetString([]byte{1, 2})
		b.AddASN1BitString([]byte{0xF0})
		b.AddASN1Boolean(true)
		b.AddASN1NULL()
		b.AddASN1GeneralizedTime(ts)
		b.AddASN1UTCTime(ts)
		b.AddASN1(cbasn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
			b.AddASN1BigInt(large)
		})
		b.AddASN1Int64WithTag(7, cbasn1.Tag(1).ContextSpecific())
		b.AddASN1Enum(3)
		b.AddASN1(cbasn1.SEQUENCE, func(*cryptobyte.Builder) {})
	})
	want, err := b.Bytes()
	require.NoError(t, err)

	v := NewSequence(
		NewInteger(-129),
		MustParseObjectIdentifier("1.2.840.113549.1.1.11"),
		NewOctetString([]byte{1, 2}),
		must(NewBitString([]byte{0xF0}, 0)),
		True,
		Null{},
		must(NewGeneralizedTime(ts)),
		must(NewUTCTime(ts)),
		must(NewTaggedObject(true, asn1tree.ContextSpecific(0), NewBigInteger(large))),
		must(NewTaggedObject(false, asn1tree.ContextSpecific(1), NewInteger(7))),
		must(NewEnumerated(3)),
		NewSequence(),
	)
	assert.Equal(t, want, encode(t, v, DER))

	got, err := Parse(want)
	require.NoError(t, err)
	assert.True(t, Equal(v, got))
}

// TestParse_cryptobyte reads the DER encoding of a value using cryptobyte.
func TestParse_cryptobyte(t *testing.T) {
	oid := MustParseObjectIdentifier("2.5.4.3")
	v := NewSequence(oid, must(NewUTF8String("example.com")), NewInteger(1<<40))

	input := cryptobyte.String(encode(t, v, DER))
	var seq cryptobyte.String
	require.True(t, input.ReadASN1(&seq, cbasn1.SEQUENCE))
	require.True(t, input.Empty())

	var gotOID stdasn1.ObjectIdentifier
	require.True(t, seq.ReadASN1ObjectIdentifier(&gotOID))
	assert.Equal(t, oid.String(), gotOID.String())
	var name cryptobyte.String
	require.True(t, seq.ReadASN1(&name, cbasn1.UTF8String))
	assert.Equal(t, "example.com", string(name))
	var n int64
	require.True(t, seq.ReadASN1Integer(&n))
	assert.Equal(t, int64(1<<40), n)
	assert.True(t, seq.Empty())
}

func FuzzParse(f *testing.F) {
	for _, v := range corpus(f) {
		f.Add(encode(f, v, BER))
	}
	f.Add([]byte{0x30, 0x80, 0x24, 0x80, 0x04, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00})
	f.Add([]byte{0x23, 0x80, 0x03, 0x02, 0x04, 0xF3, 0x00, 0x00})
	f.Add([]byte{0x02, 0x7F, 0x01})
	f.Fuzz(func(t *testing.T, data []byte) {
		for _, lazy := range []bool{false, true} {
			v, err := Parse(data, WithLazy(lazy), WithMaxDepth(32))
			if err != nil {
				var syntaxErr *asn1tree.SyntaxError
				if !errors.As(err, &syntaxErr) {
					t.Fatalf("Parse() returned %T, want *asn1tree.SyntaxError: %v", err, err)
				}
				continue
			}
			der, err := Encode(v, DER)
			if err != nil {
				t.Fatalf("Encode(%v, DER) returned an unexpected error: %v", v, err)
			}
			got, err := Parse(der)
			if err != nil {
				t.Fatalf("Parse(% X) returned an unexpected error: %v", der, err)
			}
			if !Equal(v, got) {
				t.Errorf("Parse(Encode(v, DER)) = %v, want %v", got, v)
			}
			if again, _ := Encode(got, DER); string(again) != string(der) {
				t.Errorf("DER encoding of % X is not stable: % X", der, again)
			}
		}
	})
}
