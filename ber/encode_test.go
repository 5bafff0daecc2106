// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codello.dev/asn1tree"
)

func TestEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, DER)
	require.NoError(t, enc.Encode(NewSet(NewInteger(5), True)))
	require.NoError(t, enc.Encode(Null{}))
	assert.Equal(t, int64(10), enc.OutputOffset())
	assert.Equal(t, fromHex(t, "31 06 01 01 FF 02 01 05 05 00"), buf.Bytes())

	dec := NewDecoder(&buf)
	v, err := dec.Decode()
	require.NoError(t, err)
	assert.True(t, Equal(NewSet(True, NewInteger(5)), v))
	v, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, Null{}, v)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestEncoder_writeError(t *testing.T) {
	enc := NewEncoder(failingWriter{}, BER)
	assert.ErrorIs(t, enc.Encode(NewOctetString(make([]byte, 10000))), io.ErrClosedPipe)
	enc = NewEncoder(failingWriter{}, BER)
	assert.ErrorIs(t, enc.Encode(Null{}), io.ErrClosedPipe, "error on flush")
}

// generate writes a SEQUENCE { INTEGER 1, [0] { TRUE }, OCTET STRING } using
// a Generator.
func generate(t *testing.T, w io.Writer, segmentSize int, data []byte, opts ...Option) {
	t.Helper()
	g, err := NewSequenceGenerator(w, opts...)
	require.NoError(t, err)
	require.NoError(t, g.Add(NewInteger(1)))

	n, err := g.Nested(asn1tree.ContextSpecific(0))
	require.NoError(t, err)
	assert.ErrorIs(t, g.Add(True), errNestedOpen)
	require.NoError(t, n.Add(True))
	require.NoError(t, n.Close())
	assert.ErrorIs(t, n.Add(True), errGeneratorClosed)

	ow, err := g.OctetStringWriter(asn1tree.Universal(asn1tree.TagOctetString), segmentSize)
	require.NoError(t, err)
	_, err = ow.Write(data)
	require.NoError(t, err)
	require.NoError(t, ow.Close())
	require.NoError(t, g.Close())
	require.NoError(t, g.Close(), "second Close()")
}

func TestGenerator(t *testing.T) {
	var buf bytes.Buffer
	generate(t, &buf, 2, []byte{1, 2, 3, 4, 5})
	want := fromHex(t, "30 80"+
		"02 01 01"+
		"A0 80 01 01 FF 00 00"+
		"24 80 04 02 01 02 04 02 03 04 04 01 05 00 00"+
		"00 00")
	assert.Equal(t, want, buf.Bytes())

	v, err := Parse(buf.Bytes())
	require.NoError(t, err)
	tagged := must(NewTaggedObject(true, asn1tree.ContextSpecific(0), True))
	assert.True(t, Equal(NewSequence(NewInteger(1), tagged, NewOctetString([]byte{1, 2, 3, 4, 5})), v))
	assert.Equal(t, want, encode(t, v, BER))
	assert.Equal(t, fromHex(t, "30 0F 02 01 01 A0 03 01 01 FF 04 05 01 02 03 04 05"), encode(t, v, DER))
}

func TestGenerator_unbuffered(t *testing.T) {
	// hide the io.ByteWriter of bytes.Buffer
	var buf bytes.Buffer
	generate(t, struct{ io.Writer }{&buf}, 0, bytes.Repeat([]byte{0xAA}, 2500))

	v, err := Parse(buf.Bytes())
	require.NoError(t, err)
	seq := v.(*Sequence)
	octets := seq.At(2).(OctetString)
	assert.Equal(t, bytes.Repeat([]byte{0xAA}, 2500), octets.Bytes())
	require.Len(t, octets.segments, 3)
	assert.Len(t, octets.segments[0].data, DefaultSegmentSize)
	assert.Len(t, octets.segments[2].data, 500)
}

func TestGenerator_closeNested(t *testing.T) {
	var buf bytes.Buffer
	g, err := NewGenerator(&buf, asn1tree.Application(1))
	require.NoError(t, err)
	n, err := g.Nested(asn1tree.Universal(asn1tree.TagSet))
	require.NoError(t, err)
	require.NoError(t, n.Add(Null{}))
	w, err := n.OctetStringWriter(asn1tree.ContextSpecific(2), 16)
	require.NoError(t, err)
	_, err = w.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, g.Close())
	assert.Equal(t, fromHex(t, "61 80 31 80 05 00 A2 80 04 02 68 69 00 00 00 00 00 00"), buf.Bytes())

	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, errGeneratorClosed)
	assert.ErrorIs(t, g.Add(Null{}), errGeneratorClosed)
	assert.Equal(t, asn1tree.Application(1), g.Tag())
}

func TestGenerator_logging(t *testing.T) {
	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug}))
	var buf bytes.Buffer
	generate(t, &buf, 4, []byte("hello"), WithLogger(logger))
	assert.Contains(t, sb.String(), "opening indefinite-length value")
	assert.Contains(t, sb.String(), "opening segmented octet string")
	assert.Contains(t, sb.String(), "closed indefinite-length value")
}
