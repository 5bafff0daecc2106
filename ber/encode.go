// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/tlv"
)

// Encode returns the encoding of v using the given rules. The only error
// returned by Encode is [asn1tree.ErrValueTooLarge].
func Encode(v Value, rules Rules) ([]byte, error) {
	e := v.Encoding(rules)
	l := e.Len()
	if l < 0 {
		return nil, fmt.Errorf("ber: encoding %s: %w", v.Tag(), asn1tree.ErrValueTooLarge)
	}
	buf := bytes.NewBuffer(make([]byte, 0, l))
	_, _ = e.WriteTo(buf) // bytes.Buffer never fails
	return buf.Bytes(), nil
}

// Encoder writes encodings of values to an output stream.
type Encoder struct {
	w      *bufio.Writer
	rules  Rules
	offset int64
}

// NewEncoder creates a new [Encoder] writing to w using the given rules.
// Output is buffered and flushed after each value.
func NewEncoder(w io.Writer, rules Rules) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), rules: rules}
}

// Encode writes the encoding of v.
func (e *Encoder) Encode(v Value) error {
	enc := v.Encoding(e.rules)
	if enc.Len() < 0 {
		return fmt.Errorf("ber: encoding %s: %w", v.Tag(), asn1tree.ErrValueTooLarge)
	}
	n, err := enc.WriteTo(e.w)
	e.offset += n
	if err != nil {
		return err
	}
	return e.w.Flush()
}

// OutputOffset returns the number of bytes written so far.
func (e *Encoder) OutputOffset() int64 { return e.offset }

// DefaultSegmentSize is the default size of the segments written by
// [Generator.OctetStringWriter].
const DefaultSegmentSize = 1000

var (
	errGeneratorClosed = errors.New("ber: generator is closed")
	errNestedOpen      = errors.New("ber: nested value is still open")
)

// Generator writes a constructed data value using the indefinite-length form.
// The contents are streamed: values added to the Generator are written
// immediately, so the total length never needs to be known. Nested
// indefinite-length values are created using [Generator.Nested] and
// [Generator.OctetStringWriter]. Only the most recently opened nested value
// may be written to.
//
// Values added to a Generator are encoded using [BER].
type Generator struct {
	tw     *tlv.Writer
	tag    asn1tree.Tag
	parent *Generator
	child  io.Closer // open nested value
	closed bool
	logger *slog.Logger
}

// NewGenerator writes the header of an indefinite-length constructed data
// value with the given tag to w and returns a [Generator] for its contents.
// The only option evaluated by NewGenerator is [WithLogger].
//
// The data value is not complete until [Generator.Close] is called.
func NewGenerator(w io.Writer, tag asn1tree.Tag, opts ...Option) (*Generator, error) {
	cfg := newConfig(opts)
	g := &Generator{tw: tlv.NewWriter(w), tag: tag, logger: cfg.logger}
	if err := g.open(); err != nil {
		return nil, err
	}
	return g, nil
}

// NewSequenceGenerator is a shorthand for a [Generator] of a SEQUENCE.
func NewSequenceGenerator(w io.Writer, opts ...Option) (*Generator, error) {
	return NewGenerator(w, asn1tree.Universal(asn1tree.TagSequence), opts...)
}

func (g *Generator) open() error {
	g.logger.Debug("opening indefinite-length value", "tag", g.tag, "depth", g.tw.Depth()+1)
	_, err := g.tw.WriteHeader(tlv.Header{Tag: g.tag, Constructed: true, Length: tlv.LengthIndefinite})
	return err
}

// Tag returns the tag of the data value written by g.
func (g *Generator) Tag() asn1tree.Tag { return g.tag }

// ready reports whether values may be written into g right now.
func (g *Generator) ready() error {
	switch {
	case g.closed:
		return errGeneratorClosed
	case g.child != nil:
		return errNestedOpen
	}
	return nil
}

// Add writes the BER encoding of v into the contents of g.
func (g *Generator) Add(v Value) error {
	if err := g.ready(); err != nil {
		return err
	}
	enc := v.Encoding(BER)
	l := enc.Len()
	if l < 0 {
		return fmt.Errorf("ber: encoding %s: %w", v.Tag(), asn1tree.ErrValueTooLarge)
	}
	w, err := g.tw.WriteEncoded(l)
	if err != nil {
		return err
	}
	_, err = enc.WriteTo(w)
	return err
}

// Nested opens a nested indefinite-length constructed data value with the
// given tag. g cannot be used until the returned Generator is closed.
func (g *Generator) Nested(tag asn1tree.Tag) (*Generator, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	child := &Generator{tw: g.tw, tag: tag, parent: g, logger: g.logger}
	if err := child.open(); err != nil {
		return nil, err
	}
	g.child = child
	return child, nil
}

// OctetStringWriter opens a constructed OCTET STRING with the given tag. Data
// written to the returned writer is buffered and emitted as primitive OCTET
// STRING segments of at most segmentSize bytes. If segmentSize is not
// positive, [DefaultSegmentSize] is used. Closing the writer writes the last
// segment and the end-of-contents marker.
//
// g cannot be used until the returned writer is closed.
func (g *Generator) OctetStringWriter(tag asn1tree.Tag, segmentSize int) (io.WriteCloser, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}
	g.logger.Debug("opening segmented octet string", "tag", tag, "segmentSize", segmentSize)
	_, err := g.tw.WriteHeader(tlv.Header{Tag: tag, Constructed: true, Length: tlv.LengthIndefinite})
	if err != nil {
		return nil, err
	}
	sw := &segmentWriter{g: g, buf: make([]byte, 0, segmentSize)}
	g.child = sw
	return sw, nil
}

// Close closes any open nested value and finishes the data value of g by
// writing the end-of-contents marker. Closing a closed Generator has no
// effect.
func (g *Generator) Close() error {
	if g.closed {
		return nil
	}
	if g.child != nil {
		if err := g.child.Close(); err != nil {
			return err
		}
	}
	if _, err := g.tw.WriteHeader(tlv.EndOfContents); err != nil {
		return err
	}
	g.closed = true
	if g.parent != nil {
		g.parent.child = nil
	}
	g.logger.Debug("closed indefinite-length value", "tag", g.tag, "offset", g.tw.OutputOffset())
	return nil
}

// segmentWriter writes the contents of a constructed OCTET STRING in
// segments.
type segmentWriter struct {
	g      *Generator
	buf    []byte
	closed bool
}

func (w *segmentWriter) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, errGeneratorClosed
	}
	for len(p) > 0 {
		m := copy(w.buf[len(w.buf):cap(w.buf)], p)
		w.buf = w.buf[:len(w.buf)+m]
		n += m
		p = p[m:]
		if len(w.buf) == cap(w.buf) {
			if err = w.flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// flush writes the buffered data as a primitive OCTET STRING segment.
func (w *segmentWriter) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	vw, err := w.g.tw.WriteHeader(tlv.Header{Tag: asn1tree.Universal(asn1tree.TagOctetString), Length: len(w.buf)})
	if err != nil {
		return err
	}
	if _, err = vw.Write(w.buf); err != nil {
		return err
	}
	w.buf = w.buf[:0]
	return nil
}

func (w *segmentWriter) Close() error {
	if w.closed {
		return nil
	}
	if err := w.flush(); err != nil {
		return err
	}
	if _, err := w.g.tw.WriteHeader(tlv.EndOfContents); err != nil {
		return err
	}
	w.closed = true
	w.g.child = nil
	return nil
}
