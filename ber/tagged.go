// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"

	"codello.dev/asn1tree"
)

// Explicitness describes how the base value of a [TaggedObject] is
// represented.
type Explicitness uint8

const (
	// DeclaredExplicit marks a TaggedObject constructed with explicit
	// tagging.
	DeclaredExplicit Explicitness = iota + 1

	// DeclaredImplicit marks a TaggedObject constructed with implicit
	// tagging.
	DeclaredImplicit

	// ParsedExplicit marks a decoded TaggedObject whose constructed contents
	// consisted of exactly one data value. The base value may have been
	// explicitly tagged or be an implicitly tagged constructed value of one
	// element.
	ParsedExplicit

	// ParsedImplicit marks a decoded TaggedObject whose contents could only
	// have been implicitly tagged: primitive contents or more than one data
	// value.
	ParsedImplicit
)

func (e Explicitness) String() string {
	switch e {
	case DeclaredExplicit:
		return "DeclaredExplicit"
	case DeclaredImplicit:
		return "DeclaredImplicit"
	case ParsedExplicit:
		return "ParsedExplicit"
	case ParsedImplicit:
		return "ParsedImplicit"
	}
	return fmt.Sprintf("Explicitness(%d)", e)
}

var (
	errExplicitExpected = fmt.Errorf("%w: object implicit - explicit expected", asn1tree.ErrTypeMismatch)
	errImplicitExpected = fmt.Errorf("%w: object explicit - implicit expected", asn1tree.ErrTypeMismatch)
)

// TaggedObject is a value with a context-specific, application or private
// tag. Whether the tag is explicit or implicit is only known for values that
// have been constructed. Decoded values record what the encoding allows to
// infer, see [Explicitness]. Use [TaggedObject.BaseUniversal] to interpret the
// contents of a decoded value.
type TaggedObject struct {
	explicitness Explicitness
	tag          asn1tree.Tag
	obj          Value
	indefinite   bool // decoded from the indefinite-length form
}

// NewTaggedObject returns a [TaggedObject] with the given tag and base value.
// If v is a [Choice] the tag is explicit regardless of explicit. The tag must
// not be in the universal class.
func NewTaggedObject(explicit bool, tag asn1tree.Tag, v Value) (*TaggedObject, error) {
	if err := checkTaggingTag(tag); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.New("nil base object")
	}
	if _, ok := v.(Choice); ok {
		explicit = true
	}
	e := DeclaredImplicit
	if explicit {
		e = DeclaredExplicit
	}
	return &TaggedObject{explicitness: e, tag: tag, obj: v}, nil
}

// checkTaggingTag reports whether tag can be used to tag a value explicitly
// or implicitly.
func checkTaggingTag(tag asn1tree.Tag) error {
	if tag.IsUniversal() || !tag.Class.IsValid() {
		return fmt.Errorf("invalid tag class %v", tag.Class)
	}
	if tag.Number > asn1tree.MaxTagNumber {
		return fmt.Errorf("tag number %d out of range", tag.Number)
	}
	return nil
}

// newParsedTagged returns a TaggedObject for decoded constructed contents.
func newParsedTagged(tag asn1tree.Tag, list []Value, indefinite bool) *TaggedObject {
	if len(list) == 1 {
		return &TaggedObject{explicitness: ParsedExplicit, tag: tag, obj: list[0], indefinite: indefinite}
	}
	seq := &Sequence{elements{list: list, indefinite: indefinite}}
	return &TaggedObject{explicitness: ParsedImplicit, tag: tag, obj: seq, indefinite: indefinite}
}

// newParsedTaggedPrimitive returns a TaggedObject for decoded primitive
// contents.
func newParsedTaggedPrimitive(tag asn1tree.Tag, contents []byte) *TaggedObject {
	return &TaggedObject{explicitness: ParsedImplicit, tag: tag, obj: OctetString{data: contents}}
}

func (t *TaggedObject) Tag() asn1tree.Tag { return t.tag }
func (*TaggedObject) Kind() Kind          { return KindTagged }

// Explicitness reports how the base value of t is represented.
func (t *TaggedObject) Explicitness() Explicitness { return t.explicitness }

// IsExplicit reports whether t is known or assumed to be explicitly tagged.
func (t *TaggedObject) IsExplicit() bool {
	return t.explicitness == DeclaredExplicit || t.explicitness == ParsedExplicit
}

// IsParsed reports whether t was decoded.
func (t *TaggedObject) IsParsed() bool {
	return t.explicitness == ParsedExplicit || t.explicitness == ParsedImplicit
}

// BaseObject returns the value stored in t. For a decoded value with
// ParsedImplicit explicitness this is an [OctetString] holding primitive
// contents or a [Sequence] of the decoded data values.
func (t *TaggedObject) BaseObject() Value { return t.obj }

// ExplicitBaseObject returns the base value of an explicitly tagged t.
func (t *TaggedObject) ExplicitBaseObject() (Value, error) {
	if !t.IsExplicit() {
		return nil, errExplicitExpected
	}
	return t.obj, nil
}

// ExplicitBaseTagged returns the base value of an explicitly tagged t, which
// must be a TaggedObject itself.
func (t *TaggedObject) ExplicitBaseTagged() (*TaggedObject, error) {
	v, err := t.ExplicitBaseObject()
	if err != nil {
		return nil, err
	}
	return As[*TaggedObject](v)
}

// ImplicitBaseTagged interprets the base value of t as an implicitly tagged
// value with the given tag. For decoded values the result shares the
// contents of t.
func (t *TaggedObject) ImplicitBaseTagged(tag asn1tree.Tag) (*TaggedObject, error) {
	switch t.explicitness {
	case DeclaredExplicit:
		return nil, errImplicitExpected
	case DeclaredImplicit:
		inner, err := As[*TaggedObject](t.obj)
		if err != nil {
			return nil, err
		}
		if inner.tag != tag {
			return nil, fmt.Errorf("%w: expected %v but found %v", asn1tree.ErrUnexpectedTag, tag, inner.tag)
		}
		return inner, nil
	}
	ret := *t
	ret.tag = tag
	return &ret, nil
}

// BaseUniversal interprets the base value of t as a value of the universal
// type with the given tag number. If declaredExplicit is true, t must be
// explicitly tagged and the base value must be of the requested type.
// Otherwise the contents of t are interpreted as the implicitly tagged
// contents of the requested type.
func (t *TaggedObject) BaseUniversal(declaredExplicit bool, tagNumber uint) (Value, error) {
	ut := lookupUniversal(tagNumber)
	if ut == nil {
		return nil, fmt.Errorf("%w: unsupported UNIVERSAL tag number %d", asn1tree.ErrUnknownTag, tagNumber)
	}
	if declaredExplicit {
		if !t.IsExplicit() {
			return nil, errExplicitExpected
		}
		return ut.checkedCast(t.obj)
	}
	switch t.explicitness {
	case DeclaredExplicit:
		return nil, errImplicitExpected
	case DeclaredImplicit:
		return ut.checkedCast(t.obj)
	case ParsedExplicit:
		return ut.fromImplicitConstructed([]Value{t.obj}, t.indefinite)
	}
	if seq, ok := t.obj.(*Sequence); ok {
		return ut.fromImplicitConstructed(seq.values(), t.indefinite)
	}
	return ut.fromImplicitPrimitive(t.obj.(OctetString).data)
}

func (t *TaggedObject) Encoding(rules Rules) Encoding { return t.EncodingImplicit(rules, t.tag) }

// EncodingImplicit encodes t with its tag replaced by tag.
func (t *TaggedObject) EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding {
	switch t.explicitness {
	case DeclaredExplicit, ParsedExplicit:
		return newConstructedEncoding(tag, rules == BER && t.indefinite, []Encoding{t.obj.Encoding(rules)})
	}
	return t.obj.EncodingImplicit(rules, tag)
}

func (t *TaggedObject) String() string {
	if s, ok := t.obj.(interface{ String() string }); ok {
		return t.tag.String() + " " + s.String()
	}
	return t.tag.String() + " " + t.obj.Kind().String()
}
