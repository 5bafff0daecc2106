// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"fmt"
	"io"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/tlv"
)

// An Item is a data value read by a [Parser]. Constructed values are returned
// as one of the handle types [*SequenceParser], [*SetParser],
// [*ExternalParser], [*TaggedParser], [*OctetStringParser] and
// [*BitStringParser], which give access to their contents without reading
// them into memory. Other values are read completely.
//
// An Item is valid until the next call to Next of the Parser that returned
// it. Any contents not consumed by then are skipped.
type Item interface {
	// Tag returns the tag of the data value.
	Tag() asn1tree.Tag

	// Load reads the remaining contents of the item and returns the
	// resulting value.
	Load() (Value, error)
}

// skipper is implemented by items that need to be skipped if they are not
// consumed.
type skipper interface {
	skip() error
}

type parserState uint8

const (
	parserUnstarted parserState = iota
	parserYielding
	parserExhausted
)

// Parser reads data values one at a time. A Parser created by [NewParser]
// reads consecutive top-level values. The handles returned for constructed
// values embed a Parser that reads their elements.
type Parser struct {
	d     *decoder
	r     tlv.Reader
	depth int // depth of the values read by the parser
	state parserState
	prev  skipper // item returned by the last call to Next
	err   error
}

// NewParser returns a [Parser] reading consecutive data values from r.
func NewParser(r io.Reader, opts ...Option) *Parser {
	d := &decoder{cfg: newConfig(opts), src: tlv.NewSource(r)}
	return &Parser{d: d, r: d.src, depth: 1}
}

func (p *Parser) child(r tlv.Reader) *Parser {
	return &Parser{d: p.d, r: r, depth: p.depth + 1}
}

// Next returns the next data value. At the end of the contents, Next returns
// io.EOF. After an error, subsequent calls return the same error.
func (p *Parser) Next() (Item, error) {
	if p.state == parserExhausted {
		return nil, io.EOF
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.prev != nil {
		prev := p.prev
		p.prev = nil
		if err := prev.skip(); err != nil {
			p.err = err
			return nil, err
		}
	}
	p.state = parserYielding
	item, err := p.next()
	if err == io.EOF {
		p.state = parserExhausted
		return nil, io.EOF
	}
	if err != nil {
		p.err = err
		return nil, err
	}
	return item, nil
}

func (p *Parser) next() (Item, error) {
	off := p.d.position(p.r)
	limit := readerLimit(p.r)
	_, parsing := p.r.(*tlv.IndefiniteReader)
	h, err := tlv.ReadHeader(p.r, limit, parsing)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, p.d.wrap(h.Tag, off, err)
	}
	if maxDepth := p.d.cfg.maxDepth; maxDepth > 0 && p.depth > maxDepth {
		return nil, p.d.wrap(h.Tag, off, fmt.Errorf("%w: limit is %d", asn1tree.ErrDepthExceeded, maxDepth))
	}
	item, err := p.newItem(h, limit)
	if err != nil {
		return nil, p.d.wrap(h.Tag, off, err)
	}
	if s, ok := item.(skipper); ok {
		p.prev = s
	}
	return item, nil
}

func (p *Parser) newItem(h tlv.Header, limit int) (Item, error) {
	var contents tlv.Reader
	if h.Length == tlv.LengthIndefinite {
		ir, err := tlv.NewIndefiniteReader(p.r, limit)
		if err != nil {
			return nil, err
		}
		contents = ir
	} else {
		contents = tlv.NewDefiniteReader(p.r, h.Length, limit)
	}
	indefinite := h.Length == tlv.LengthIndefinite

	if !h.Constructed {
		dr := contents.(*tlv.DefiniteReader)
		switch {
		case !h.Tag.IsUniversal():
			return &TaggedParser{tag: h.Tag, r: dr}, nil
		case h.Tag.Number == asn1tree.TagOctetString:
			return &OctetStringParser{tag: h.Tag, r: dr}, nil
		case h.Tag.Number == asn1tree.TagBitString:
			return &BitStringParser{tag: h.Tag, r: dr}, nil
		}
		c, err := dr.ReadAll()
		if err != nil {
			return nil, err
		}
		v, err := p.d.buildPrimitive(h.Tag, c)
		if err != nil {
			return nil, err
		}
		return valueItem{v}, nil
	}

	if !h.Tag.IsUniversal() {
		return &TaggedParser{tag: h.Tag, p: p.child(contents), indefinite: indefinite}, nil
	}
	switch h.Tag.Number {
	case asn1tree.TagSequence:
		return &SequenceParser{p.child(contents), indefinite}, nil
	case asn1tree.TagSet:
		return &SetParser{p.child(contents), indefinite}, nil
	case asn1tree.TagExternal:
		return &ExternalParser{p.child(contents), indefinite}, nil
	case asn1tree.TagOctetString:
		return &OctetStringParser{tag: h.Tag, segments: p.child(contents)}, nil
	case asn1tree.TagBitString:
		return &BitStringParser{tag: h.Tag, segments: p.child(contents)}, nil
	}
	// segmented character strings are read completely
	elements, err := p.d.readElements(contents, p.depth, true)
	if err != nil {
		return nil, err
	}
	v, err := p.d.buildConstructed(h.Tag, elements, indefinite)
	if err != nil {
		return nil, err
	}
	return valueItem{v}, nil
}

// rest reads the remaining elements of p.
func (p *Parser) rest() ([]Value, error) {
	if p.state == parserExhausted {
		return nil, nil
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.prev != nil {
		prev := p.prev
		p.prev = nil
		if err := prev.skip(); err != nil {
			p.err = err
			return nil, err
		}
	}
	elements, err := p.d.readElements(p.r, p.depth-1, true)
	if err != nil {
		p.err = err
		return nil, err
	}
	p.state = parserExhausted
	return elements, nil
}

// skip discards the remaining elements of p.
func (p *Parser) skip() error {
	if p.state == parserExhausted {
		return nil
	}
	if p.err != nil {
		return p.err
	}
	if dr, ok := p.r.(*tlv.DefiniteReader); ok {
		p.prev = nil
		p.state = parserExhausted
		if err := dr.Skip(); err != nil {
			p.err = err
			return err
		}
		return nil
	}
	for {
		if _, err := p.Next(); err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}

// valueItem is an Item for a completely decoded value.
type valueItem struct {
	v Value
}

func (i valueItem) Tag() asn1tree.Tag    { return i.v.Tag() }
func (i valueItem) Load() (Value, error) { return i.v, nil }

// SequenceParser gives access to the elements of a SEQUENCE.
type SequenceParser struct {
	*Parser
	indefinite bool
}

func (*SequenceParser) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagSequence) }

// Load reads the remaining elements into a [Sequence].
func (s *SequenceParser) Load() (Value, error) {
	list, err := s.rest()
	if err != nil {
		return nil, err
	}
	return sequenceFromElements(list, s.indefinite)
}

// SetParser gives access to the elements of a SET.
type SetParser struct {
	*Parser
	indefinite bool
}

func (*SetParser) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagSet) }

// Load reads the remaining elements into a [Set].
func (s *SetParser) Load() (Value, error) {
	list, err := s.rest()
	if err != nil {
		return nil, err
	}
	return setFromElements(list, s.indefinite)
}

// ExternalParser gives access to the components of an EXTERNAL.
type ExternalParser struct {
	*Parser
	indefinite bool
}

func (*ExternalParser) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagExternal) }

// Load reads the remaining components into an [External].
func (s *ExternalParser) Load() (Value, error) {
	list, err := s.rest()
	if err != nil {
		return nil, err
	}
	return externalFromElements(list, s.indefinite)
}

// TaggedParser gives access to the contents of a value with a non-universal
// tag.
type TaggedParser struct {
	tag        asn1tree.Tag
	p          *Parser             // constructed contents
	r          *tlv.DefiniteReader // primitive contents
	indefinite bool
}

func (t *TaggedParser) Tag() asn1tree.Tag { return t.tag }

// Constructed reports whether the value uses the constructed encoding.
func (t *TaggedParser) Constructed() bool { return t.p != nil }

// Next returns the next data value in the constructed contents. For
// primitive contents it returns an error.
func (t *TaggedParser) Next() (Item, error) {
	if t.p == nil {
		return nil, fmt.Errorf("%w: primitive contents of %v", asn1tree.ErrTypeMismatch, t.tag)
	}
	return t.p.Next()
}

// Contents returns a reader for the primitive contents. For constructed
// contents it returns nil.
func (t *TaggedParser) Contents() io.Reader {
	if t.r == nil {
		return nil
	}
	return t.r
}

// Load reads the remaining contents into a [TaggedObject].
func (t *TaggedParser) Load() (Value, error) {
	if t.p == nil {
		c, err := t.r.ReadAll()
		if err != nil {
			return nil, err
		}
		return newParsedTaggedPrimitive(t.tag, c), nil
	}
	list, err := t.p.rest()
	if err != nil {
		return nil, err
	}
	return newParsedTagged(t.tag, list, t.indefinite), nil
}

func (t *TaggedParser) skip() error {
	if t.p == nil {
		return t.r.Skip()
	}
	return t.p.skip()
}

// OctetStringParser reads the octets of an OCTET STRING. Segments of a
// constructed encoding are concatenated.
type OctetStringParser struct {
	tag      asn1tree.Tag
	r        *tlv.DefiniteReader // primitive contents
	segments *Parser             // constructed contents
	cur      *OctetStringParser
}

func (s *OctetStringParser) Tag() asn1tree.Tag { return s.tag }

// Read reads the octets of the string.
func (s *OctetStringParser) Read(b []byte) (int, error) {
	if s.r != nil {
		return s.r.Read(b)
	}
	for {
		if s.cur == nil {
			item, err := s.segments.Next()
			if err != nil {
				return 0, err
			}
			seg, ok := item.(*OctetStringParser)
			if !ok {
				return 0, contentError(asn1tree.TagOctetString, "unknown object encountered in constructed OCTET STRING: %v", item.Tag())
			}
			s.cur = seg
		}
		n, err := s.cur.Read(b)
		if err == io.EOF {
			s.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Load reads the remaining octets into an [OctetString].
func (s *OctetStringParser) Load() (Value, error) {
	data, err := io.ReadAll(s)
	if err != nil {
		return nil, err
	}
	return OctetString{data: data}, nil
}

func (s *OctetStringParser) skip() error {
	if s.r != nil {
		return s.r.Skip()
	}
	return s.segments.skip()
}

// BitStringParser reads the data octets of a BIT STRING. Segments of a
// constructed encoding are concatenated. Only the final segment may have
// unused bits.
type BitStringParser struct {
	tag      asn1tree.Tag
	r        *tlv.DefiniteReader // primitive contents
	segments *Parser             // constructed contents
	cur      *BitStringParser
	started  bool
	padBits  int
}

func (s *BitStringParser) Tag() asn1tree.Tag { return s.tag }

// PadBits returns the number of unused bits in the final octet. The result is
// only valid after Read has returned io.EOF.
func (s *BitStringParser) PadBits() int { return s.padBits }

// Read reads the data octets of the string.
func (s *BitStringParser) Read(b []byte) (int, error) {
	if s.r != nil {
		return s.readPrimitive(b)
	}
	for {
		if s.cur == nil {
			item, err := s.segments.Next()
			if err != nil {
				return 0, err
			}
			seg, ok := item.(*BitStringParser)
			if !ok {
				return 0, contentError(asn1tree.TagBitString, "unknown object encountered in constructed BIT STRING: %v", item.Tag())
			}
			if s.padBits != 0 {
				return 0, fmt.Errorf("%w: only the last nested bitstring can have padding", asn1tree.ErrInvalidSegmentPadding)
			}
			s.cur = seg
		}
		n, err := s.cur.Read(b)
		if err == io.EOF {
			s.padBits = s.cur.padBits
			s.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *BitStringParser) readPrimitive(b []byte) (int, error) {
	if !s.started {
		pad, err := s.r.ReadByte()
		if err == io.EOF {
			return 0, contentError(asn1tree.TagBitString, "truncated BIT STRING detected")
		} else if err != nil {
			return 0, err
		}
		if pad > 7 {
			return 0, contentError(asn1tree.TagBitString, "pad bits cannot be greater than 7 or less than 0")
		}
		if pad != 0 && s.r.Len() == 0 {
			return 0, contentError(asn1tree.TagBitString, "zero length data with non-zero pad bits")
		}
		s.started = true
		s.padBits = int(pad)
	}
	return s.r.Read(b)
}

// Load reads the remaining data octets into a [BitString].
func (s *BitStringParser) Load() (Value, error) {
	data, err := io.ReadAll(s)
	if err != nil {
		return nil, err
	}
	v, err := NewBitString(data, s.padBits)
	if err != nil {
		return nil, contentError(asn1tree.TagBitString, "%s", err)
	}
	return v, nil
}

func (s *BitStringParser) skip() error {
	if s.r != nil {
		return s.r.Skip()
	}
	return s.segments.skip()
}
