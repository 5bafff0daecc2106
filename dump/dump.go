// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dump renders BER encoded data for humans and for other
// serialization formats.
//
// [Read] walks the identifier and length octets of its input without building
// an object tree and records where every data value starts, how long its
// header and contents are and how deeply it is nested. Primitive values of
// known universal types are decoded with package [codello.dev/asn1tree/ber]
// to obtain a readable rendering. The resulting [Node] trees can be written
// as a listing similar to the output of `openssl asn1parse` (see [WriteText])
// or serialized as JSON, YAML or CBOR (see [Encode]).
package dump

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/ber"
	"codello.dev/asn1tree/tlv"
)

// Node describes a single data value of a BER encoded input.
type Node struct {
	// Offset is the position of the first identifier octet in the input.
	Offset int64 `json:"offset" yaml:"offset" cbor:"1,keyasint"`
	// Depth is the nesting depth of the data value. Top-level values have
	// depth 0.
	Depth int `json:"depth" yaml:"depth" cbor:"2,keyasint"`
	// HeaderLen is the number of identifier and length octets.
	HeaderLen int `json:"headerLength" yaml:"header-length" cbor:"3,keyasint"`
	// Length is the number of contents octets, or -1 if the value uses the
	// indefinite-length form. The end-of-contents marker is not included.
	Length int `json:"length" yaml:"length" cbor:"4,keyasint"`

	Class       string `json:"class" yaml:"class" cbor:"5,keyasint"`
	Number      uint   `json:"number" yaml:"number" cbor:"6,keyasint"`
	Constructed bool   `json:"constructed" yaml:"constructed" cbor:"7,keyasint"`

	// Name is the name of the universal type or the tag in brackets.
	Name string `json:"name" yaml:"name" cbor:"8,keyasint"`
	// Value is a rendering of the contents of a primitive data value.
	Value string `json:"value,omitempty" yaml:"value,omitempty" cbor:"9,keyasint,omitempty"`
	// Error describes why the contents of a primitive data value could not be
	// decoded. Value holds the hex encoded contents in that case.
	Error string `json:"error,omitempty" yaml:"error,omitempty" cbor:"10,keyasint,omitempty"`

	Children []*Node `json:"children,omitempty" yaml:"children,omitempty" cbor:"11,keyasint,omitempty"`
}

// Tag returns the tag of the data value described by n. If n holds an
// unknown class name, the class is [asn1tree.ClassUniversal].
func (n *Node) Tag() asn1tree.Tag {
	for c := asn1tree.ClassUniversal; c <= asn1tree.ClassPrivate; c++ {
		if c.String() == n.Class {
			return asn1tree.Tag{Class: c, Number: n.Number}
		}
	}
	return asn1tree.Universal(n.Number)
}

// Walk calls fn for n and its descendants in depth-first order. If fn returns
// false, the children of that node are skipped.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// An Option configures [Read].
type Option func(*reader)

// WithMaxDepth limits the nesting depth of the dumped values. A limit of 0
// disables the check. The default is [ber.DefaultMaxDepth].
func WithMaxDepth(n int) Option {
	return func(r *reader) { r.maxDepth = max(n, 0) }
}

// WithLogger sets the logger for debug records emitted while reading.
func WithLogger(l *slog.Logger) Option {
	return func(r *reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDecodeOptions sets the options used to decode the contents of
// primitive values.
func WithDecodeOptions(opts ...ber.Option) Option {
	return func(r *reader) { r.decodeOpts = append(r.decodeOpts, opts...) }
}

type reader struct {
	src        *tlv.Source
	maxDepth   int
	logger     *slog.Logger
	decodeOpts []ber.Option
}

// Read reads all data values from r and returns one node per top-level value.
// If the input is malformed, Read returns the nodes of all complete
// top-level values read so far together with an [*asn1tree.SyntaxError].
func Read(r io.Reader, opts ...Option) ([]*Node, error) {
	return read(tlv.NewSource(r), opts)
}

func read(src *tlv.Source, opts []Option) ([]*Node, error) {
	rd := &reader{
		src:      src,
		maxDepth: ber.DefaultMaxDepth,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(rd)
	}
	var nodes []*Node
	for {
		n, err := rd.readNode(rd.src, 0)
		if err == io.EOF {
			return nodes, nil
		}
		if err != nil {
			rd.logger.Debug("dump failed", "error", err)
			return nodes, err
		}
		nodes = append(nodes, n)
	}
}

// Bytes is a convenience wrapper around [Read] for an in-memory input.
func Bytes(b []byte, opts ...Option) ([]*Node, error) {
	return read(tlv.NewBytesSource(b), opts)
}

// Value returns the nodes of the encoding of v under the given rules.
func Value(v ber.Value, rules ber.Rules, opts ...Option) ([]*Node, error) {
	b, err := ber.Encode(v, rules)
	if err != nil {
		return nil, err
	}
	return Bytes(b, opts...)
}

// limit returns the limit for the length of the next data value read from r.
func limit(r tlv.Reader) int {
	switch r := r.(type) {
	case *tlv.DefiniteReader:
		return r.Len()
	case *tlv.IndefiniteReader:
		return r.Limit()
	case *tlv.Source:
		return r.Remaining()
	}
	return tlv.Unbounded
}

// readNode reads the next data value from r. If r has no more data values,
// io.EOF is returned.
func (rd *reader) readNode(r tlv.Reader, depth int) (*Node, error) {
	start := rd.src.Offset()
	off := start - int64(tlv.Lookahead(r))
	l := limit(r)
	_, parsing := r.(*tlv.IndefiniteReader)
	h, err := tlv.ReadHeader(r, l, parsing)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, syntaxError(h.Tag, off, err)
	}
	if rd.maxDepth > 0 && depth >= rd.maxDepth {
		return nil, syntaxError(h.Tag, off, fmt.Errorf("%w: limit is %d", asn1tree.ErrDepthExceeded, rd.maxDepth))
	}
	n := &Node{
		Offset:      off,
		Depth:       depth,
		HeaderLen:   int(rd.src.Offset() - start),
		Length:      h.Length,
		Class:       h.Tag.Class.String(),
		Number:      h.Tag.Number,
		Constructed: h.Constructed,
		Name:        name(h.Tag),
	}
	if err = rd.readContents(n, h, r, l); err != nil {
		return nil, syntaxError(h.Tag, off, err)
	}
	return n, nil
}

func (rd *reader) readContents(n *Node, h tlv.Header, r tlv.Reader, l int) error {
	var cr tlv.Reader
	if h.Length == tlv.LengthIndefinite {
		ir, err := tlv.NewIndefiniteReader(r, l)
		if err != nil {
			return err
		}
		cr = ir
	} else {
		dr := tlv.NewDefiniteReader(r, h.Length, l)
		if !h.Constructed {
			c, err := dr.ReadAll()
			if err != nil {
				return err
			}
			rd.render(n, h, c)
			return nil
		}
		cr = dr
	}
	for {
		c, err := rd.readNode(cr, n.Depth+1)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		n.Children = append(n.Children, c)
	}
}

// render sets the value of the primitive node n with contents c.
func (rd *reader) render(n *Node, h tlv.Header, c []byte) {
	if !h.Tag.IsUniversal() {
		n.Value = hex.EncodeToString(c)
		return
	}
	b := tlv.AppendHeader(make([]byte, 0, h.Size()+len(c)), h)
	v, err := ber.Parse(append(b, c...), rd.decodeOpts...)
	if err != nil {
		rd.logger.Debug("undecodable contents", "offset", n.Offset, "tag", h.Tag, "error", err)
		n.Value = hex.EncodeToString(c)
		var se *asn1tree.SyntaxError
		if errors.As(err, &se) {
			err = se.Err
		}
		n.Error = err.Error()
		return
	}
	if s, ok := v.(fmt.Stringer); ok {
		n.Value = s.String()
	}
}

// name returns the display name of a data value with the given tag.
func name(tag asn1tree.Tag) string {
	if tag.IsUniversal() {
		if k, ok := ber.UniversalKind(tag.Number); ok {
			return k.String()
		}
	}
	return tag.String()
}

func syntaxError(tag asn1tree.Tag, off int64, err error) error {
	var se *asn1tree.SyntaxError
	if errors.As(err, &se) {
		return err
	}
	return &asn1tree.SyntaxError{Tag: tag, Offset: off, Err: err}
}
