// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"

	"codello.dev/asn1tree"
)

// External is the ASN.1 EXTERNAL type. It consists of an optional direct
// reference, an optional indirect reference, an optional data value
// descriptor and the external content. The content encoding selects how the
// content is represented:
//
//	0: single-ASN1-type, the content is any ASN.1 value
//	1: octet-aligned, the content is an OCTET STRING
//	2: arbitrary, the content is a BIT STRING
type External struct {
	direct     *ObjectIdentifier
	indirect   *Integer
	descriptor *ObjectDescriptor
	encoding   int
	content    Value
	indefinite bool // decoded from the indefinite-length form
}

// NewExternal returns a new [External]. The optional components may be nil.
// An error is returned if encoding is not 0, 1 or 2 or if the content does
// not match the encoding.
func NewExternal(direct *ObjectIdentifier, indirect *Integer, descriptor *ObjectDescriptor, encoding int, content Value) (*External, error) {
	if content == nil {
		return nil, errors.New("external content must not be nil")
	}
	if err := checkExternalContent(encoding, content); err != nil {
		return nil, err
	}
	e := &External{encoding: encoding, content: content}
	if direct != nil {
		e.direct = new(ObjectIdentifier)
		*e.direct = *direct
	}
	if indirect != nil {
		e.indirect = new(Integer)
		*e.indirect = *indirect
	}
	if descriptor != nil {
		e.descriptor = new(ObjectDescriptor)
		*e.descriptor = *descriptor
	}
	return e, nil
}

func checkExternalContent(encoding int, content Value) error {
	switch encoding {
	case 0:
	case 1:
		if _, ok := content.(OctetString); !ok {
			return fmt.Errorf("octet-aligned external content must be an OCTET STRING, got %s", content.Kind())
		}
	case 2:
		if _, ok := content.(BitString); !ok {
			return fmt.Errorf("arbitrary external content must be a BIT STRING, got %s", content.Kind())
		}
	default:
		return fmt.Errorf("invalid encoding value: %d", encoding)
	}
	return nil
}

// externalFromElements builds an External from the elements of its
// constructed encoding.
func externalFromElements(list []Value, indefinite bool) (Value, error) {
	e := &External{indefinite: indefinite}
	i := 0
	next := func() (Value, error) {
		if i >= len(list) {
			return nil, contentError(asn1tree.TagExternal, "too few objects in input sequence")
		}
		return list[i], nil
	}
	v, err := next()
	if err != nil {
		return nil, err
	}
	if oid, ok := v.(ObjectIdentifier); ok {
		e.direct = &oid
		i++
		if v, err = next(); err != nil {
			return nil, err
		}
	}
	if n, ok := v.(Integer); ok {
		e.indirect = &n
		i++
		if v, err = next(); err != nil {
			return nil, err
		}
	}
	if _, ok := v.(*TaggedObject); !ok {
		d, ok := v.(ObjectDescriptor)
		if !ok {
			return nil, contentError(asn1tree.TagExternal, "unexpected %s in EXTERNAL", v.Kind())
		}
		e.descriptor = &d
		i++
		if v, err = next(); err != nil {
			return nil, err
		}
	}
	if len(list) != i+1 {
		return nil, contentError(asn1tree.TagExternal, "input sequence too large")
	}
	t, ok := v.(*TaggedObject)
	if !ok {
		return nil, contentError(asn1tree.TagExternal, "no tagged object found in sequence")
	}
	if t.tag.Class != asn1tree.ClassContextSpecific {
		return nil, contentError(asn1tree.TagExternal, "unexpected tag %v", t.tag)
	}
	e.encoding = int(t.tag.Number)
	switch e.encoding {
	case 0:
		e.content, err = t.ExplicitBaseObject()
	case 1:
		e.content, err = t.BaseUniversal(false, asn1tree.TagOctetString)
	case 2:
		e.content, err = t.BaseUniversal(false, asn1tree.TagBitString)
	default:
		return nil, contentError(asn1tree.TagExternal, "invalid encoding value: %d", e.encoding)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DirectReference returns the direct reference of e if present.
func (e *External) DirectReference() (ObjectIdentifier, bool) {
	if e.direct == nil {
		return ObjectIdentifier{}, false
	}
	return *e.direct, true
}

// IndirectReference returns the indirect reference of e if present.
func (e *External) IndirectReference() (Integer, bool) {
	if e.indirect == nil {
		return Integer{}, false
	}
	return *e.indirect, true
}

// DataValueDescriptor returns the data value descriptor of e if present.
func (e *External) DataValueDescriptor() (ObjectDescriptor, bool) {
	if e.descriptor == nil {
		return ObjectDescriptor{}, false
	}
	return *e.descriptor, true
}

// ContentEncoding returns the encoding of the external content: 0, 1 or 2.
func (e *External) ContentEncoding() int { return e.encoding }

// Content returns the external content.
func (e *External) Content() Value { return e.content }

func (*External) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagExternal) }
func (*External) Kind() Kind        { return KindExternal }

func (e *External) Encoding(rules Rules) Encoding { return e.EncodingImplicit(rules, e.Tag()) }

func (e *External) EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding {
	children := make([]Encoding, 0, 4)
	if e.direct != nil {
		children = append(children, e.direct.Encoding(rules))
	}
	if e.indirect != nil {
		children = append(children, e.indirect.Encoding(rules))
	}
	if e.descriptor != nil {
		children = append(children, e.descriptor.Encoding(rules))
	}
	t := &TaggedObject{
		explicitness: DeclaredImplicit,
		tag:          asn1tree.ContextSpecific(uint(e.encoding)),
		obj:          e.content,
	}
	if e.encoding == 0 {
		t.explicitness = DeclaredExplicit
	}
	children = append(children, t.Encoding(rules))
	return newConstructedEncoding(tag, rules == BER && e.indefinite, children)
}

func (e *External) String() string {
	var b []byte
	b = append(b, "EXTERNAL{"...)
	if e.direct != nil {
		b = append(b, e.direct.String()...)
		b = append(b, ", "...)
	}
	if e.indirect != nil {
		b = append(b, e.indirect.String()...)
		b = append(b, ", "...)
	}
	if e.descriptor != nil {
		b = append(b, e.descriptor.String()...)
		b = append(b, ", "...)
	}
	b = fmt.Appendf(b, "[%d] %v}", e.encoding, e.content)
	return string(b)
}
