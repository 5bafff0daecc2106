// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/tlv"
)

// DefaultMaxDepth is the default limit for the nesting depth of decoded
// values.
const DefaultMaxDepth = 128

// config holds the options of a decoding operation.
type config struct {
	maxDepth int
	lazy     bool
	oidCache bool
	logger   *slog.Logger
}

var defaultConfig = &config{
	maxDepth: DefaultMaxDepth,
	oidCache: true,
	logger:   slog.New(slog.DiscardHandler),
}

// An Option configures decoding.
type Option func(*config)

// WithMaxDepth limits the nesting depth of decoded values. The top-level
// value has depth 1. Values nested deeper are rejected with
// [asn1tree.ErrDepthExceeded]. A limit of 0 disables the check.
func WithMaxDepth(n int) Option {
	return func(c *config) { c.maxDepth = max(n, 0) }
}

// WithLazy enables or disables lazy decoding of definite-length SEQUENCE and
// SET values.
func WithLazy(lazy bool) Option {
	return func(c *config) { c.lazy = lazy }
}

// WithOIDCache enables or disables sharing the contents of equal decoded
// object identifiers.
func WithOIDCache(enabled bool) Option {
	return func(c *config) { c.oidCache = enabled }
}

// WithLogger sets the logger for debug records emitted during decoding.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l == nil {
			l = defaultConfig.logger
		}
		c.logger = l
	}
}

func newConfig(opts []Option) *config {
	c := *defaultConfig
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// DecodeConfig is a serializable form of the decoding options.
type DecodeConfig struct {
	MaxDepth int  `yaml:"max-depth" json:"maxDepth"`
	Lazy     bool `yaml:"lazy" json:"lazy"`
	OIDCache bool `yaml:"oid-cache" json:"oidCache"`
}

// DefaultDecodeConfig returns the configuration used when no options are
// given.
func DefaultDecodeConfig() DecodeConfig {
	return DecodeConfig{
		MaxDepth: defaultConfig.maxDepth,
		Lazy:     defaultConfig.lazy,
		OIDCache: defaultConfig.oidCache,
	}
}

// Options returns the options equivalent to c.
func (c DecodeConfig) Options() []Option {
	return []Option{WithMaxDepth(c.MaxDepth), WithLazy(c.Lazy), WithOIDCache(c.OIDCache)}
}

// decoder implements the decoding of complete values.
type decoder struct {
	cfg  *config
	src  *tlv.Source
	base int64 // offset of src within the complete input

	// discard makes the decoder validate containers without building them.
	discard bool

	// trusted indicates that the input has been validated before.
	trusted bool
}

func (d *decoder) offset() int64 { return d.base + d.src.Offset() }

// position returns the input offset of the next byte yielded by r.
func (d *decoder) position(r tlv.Reader) int64 { return d.offset() - int64(tlv.Lookahead(r)) }

// wrap returns err as an *asn1tree.SyntaxError.
func (d *decoder) wrap(tag asn1tree.Tag, off int64, err error) error {
	var se *asn1tree.SyntaxError
	if errors.As(err, &se) {
		return err
	}
	return &asn1tree.SyntaxError{Tag: tag, Offset: off, Err: err}
}

// readerLimit returns the limit for the length of the next data value read
// from r.
func readerLimit(r tlv.Reader) int {
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

// readValue reads the next data value with the given depth from r. If r has
// no more data values, io.EOF is returned.
func (d *decoder) readValue(r tlv.Reader, depth int) (Value, error) {
	off := d.position(r)
	limit := readerLimit(r)
	_, parsing := r.(*tlv.IndefiniteReader)
	h, err := tlv.ReadHeader(r, limit, parsing)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, d.wrap(h.Tag, off, err)
	}
	if d.cfg.maxDepth > 0 && depth > d.cfg.maxDepth {
		return nil, d.wrap(h.Tag, off, fmt.Errorf("%w: limit is %d", asn1tree.ErrDepthExceeded, d.cfg.maxDepth))
	}
	v, err := d.readContents(h, r, limit, depth)
	if err != nil {
		return nil, d.wrap(h.Tag, off, err)
	}
	return v, nil
}

// readContents reads the contents of the data value identified by h.
func (d *decoder) readContents(h tlv.Header, r tlv.Reader, limit, depth int) (Value, error) {
	if h.Length == tlv.LengthIndefinite {
		ir, err := tlv.NewIndefiniteReader(r, limit)
		if err != nil {
			return nil, err
		}
		return d.readConstructed(h.Tag, ir, depth, true)
	}
	dr := tlv.NewDefiniteReader(r, h.Length, limit)
	if !h.Constructed {
		c, err := dr.ReadAll()
		if err != nil {
			return nil, err
		}
		return d.buildPrimitive(h.Tag, c)
	}
	if d.cfg.lazy && !d.discard && isContainer(h.Tag) && h.Tag.IsUniversal() {
		return d.readLazy(h.Tag, dr, depth)
	}
	return d.readConstructed(h.Tag, dr, depth, false)
}

// isContainer reports whether the elements of a constructed encoding with the
// given tag are only needed to build the value itself.
func isContainer(tag asn1tree.Tag) bool {
	return !tag.IsUniversal() || tag.Number == asn1tree.TagSequence || tag.Number == asn1tree.TagSet
}

func (d *decoder) readConstructed(tag asn1tree.Tag, r tlv.Reader, depth int, indefinite bool) (Value, error) {
	if d.discard && isContainer(tag) {
		_, err := d.readElements(r, depth, false)
		return nil, err
	}
	cd := d
	if d.discard {
		// The elements of other types are needed for validation.
		c := *d
		c.discard = false
		cd = &c
	}
	elements, err := cd.readElements(r, depth, true)
	if err != nil {
		return nil, err
	}
	return d.buildConstructed(tag, elements, indefinite)
}

// readElements reads all data values from r as elements of a value with the
// given depth.
func (d *decoder) readElements(r tlv.Reader, depth int, collect bool) ([]Value, error) {
	var elements []Value
	for {
		v, err := d.readValue(r, depth+1)
		if err == io.EOF {
			return elements, nil
		}
		if err != nil {
			return nil, err
		}
		if collect {
			elements = append(elements, v)
		}
	}
}

// readLazy reads the contents of a definite-length SEQUENCE or SET without
// building its elements.
func (d *decoder) readLazy(tag asn1tree.Tag, dr *tlv.DefiniteReader, depth int) (Value, error) {
	start := d.position(dr)
	raw, err := dr.ReadAll()
	if err != nil {
		return nil, err
	}
	if !d.trusted {
		vd := &decoder{cfg: d.cfg, src: tlv.NewBytesSource(raw), base: start, discard: true}
		if _, err = vd.readElements(tlv.NewDefiniteReader(vd.src, len(raw), len(raw)+1), depth, false); err != nil {
			return nil, err
		}
	}
	lazy := &lazyContents{raw: raw, cfg: d.cfg, depth: depth}
	if tag.Number == asn1tree.TagSet {
		return &Set{elements: elements{lazy: lazy}}, nil
	}
	return &Sequence{elements{lazy: lazy}}, nil
}

// decodeTrusted decodes the elements of a lazily decoded container with the
// given depth.
func decodeTrusted(raw []byte, cfg *config, depth int) ([]Value, error) {
	d := &decoder{cfg: cfg, src: tlv.NewBytesSource(raw), trusted: true}
	return d.readElements(tlv.NewDefiniteReader(d.src, len(raw), len(raw)+1), depth, true)
}

func (d *decoder) buildPrimitive(tag asn1tree.Tag, c []byte) (Value, error) {
	if !tag.IsUniversal() {
		return newParsedTaggedPrimitive(tag, c), nil
	}
	ut := lookupUniversal(tag.Number)
	if ut == nil {
		return nil, fmt.Errorf("%w: unknown tag %d encountered", asn1tree.ErrUnknownTag, tag.Number)
	}
	if ut.fromContents == nil {
		return nil, contentError(tag.Number, "%s must use the constructed encoding", ut.kind)
	}
	return ut.fromContents(c, d.cfg)
}

func (d *decoder) buildConstructed(tag asn1tree.Tag, elements []Value, indefinite bool) (Value, error) {
	if !tag.IsUniversal() {
		return newParsedTagged(tag, elements, indefinite), nil
	}
	ut := lookupUniversal(tag.Number)
	if ut == nil {
		return nil, fmt.Errorf("%w: unknown tag %d encountered", asn1tree.ErrUnknownTag, tag.Number)
	}
	if ut.fromSegments == nil {
		return nil, contentError(tag.Number, "%s must use the primitive encoding", ut.kind)
	}
	return ut.fromSegments(elements, indefinite)
}

// endOfInput converts a clean end of input into an error.
func endOfInput(err error, off int64) error {
	if err == io.EOF {
		return &asn1tree.SyntaxError{Offset: off, Err: fmt.Errorf("%w: no data value found", asn1tree.ErrUnexpectedEndOfStream)}
	}
	return err
}

// Parse decodes the single data value encoded in b. If b contains additional
// data after the value, [asn1tree.ErrTrailingData] is returned.
//
// The returned value does not share memory with b.
func Parse(b []byte, opts ...Option) (Value, error) {
	d := &decoder{cfg: newConfig(opts), src: tlv.NewBytesSource(b)}
	v, err := d.readValue(d.src, 1)
	if err != nil {
		err = endOfInput(err, d.offset())
		d.cfg.logger.Debug("decoding failed", "error", err)
		return nil, err
	}
	if n := d.src.Remaining(); n > 0 {
		return nil, &asn1tree.SyntaxError{Offset: d.offset(), Err: fmt.Errorf("%w: %d bytes", asn1tree.ErrTrailingData, n)}
	}
	return v, nil
}

// ParseStream decodes the single data value read from r. If r contains
// additional data after the value, [asn1tree.ErrTrailingData] is returned.
func ParseStream(r io.Reader, opts ...Option) (Value, error) {
	dec := NewDecoder(r, opts...)
	v, err := dec.Decode()
	if err != nil {
		return nil, endOfInput(err, dec.InputOffset())
	}
	switch _, err = dec.d.src.ReadByte(); err {
	case io.EOF:
		return v, nil
	case nil:
		return nil, &asn1tree.SyntaxError{Offset: dec.InputOffset() - 1, Err: asn1tree.ErrTrailingData}
	}
	return nil, err
}

// Decoder decodes a stream of consecutive data values.
//
// To create a Decoder, use the [NewDecoder] function.
type Decoder struct {
	d   decoder
	err error
}

// NewDecoder creates a new [Decoder] reading from r.
//
// Decoding BER requires single-byte reads. If r implements [io.ByteReader] it
// is assumed that the reader is efficient enough so no buffering is done by
// the Decoder, and the Decoder never reads more bytes than required to decode
// a value. Otherwise the Decoder uses its own buffering and may read ahead.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	return &Decoder{d: decoder{cfg: newConfig(opts), src: tlv.NewSource(r)}}
}

// More reports whether the Decoder can decode more values. It returns false
// after Decode has returned an error, including io.EOF.
func (dec *Decoder) More() bool { return dec.err == nil }

// InputOffset returns the number of bytes consumed from the input.
func (dec *Decoder) InputOffset() int64 { return dec.d.offset() }

// Decode decodes the next data value. At the end of the input, Decode returns
// io.EOF. Syntax errors are reported as [*asn1tree.SyntaxError]. After an
// error, all subsequent calls return the same error.
func (dec *Decoder) Decode() (Value, error) {
	if dec.err != nil {
		return nil, dec.err
	}
	v, err := dec.d.readValue(dec.d.src, 1)
	if err != nil {
		if err != io.EOF {
			dec.d.cfg.logger.Debug("decoding failed", "offset", dec.InputOffset(), "error", err)
		}
		dec.err = err
		return nil, err
	}
	return v, nil
}
