// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"codello.dev/asn1tree"
)

// universalType describes how the contents of a universal type are decoded.
type universalType struct {
	number uint
	kind   Kind

	// fromContents decodes primitive contents octets. It is nil for types
	// that must use the constructed encoding.
	fromContents func(c []byte, cfg *config) (Value, error)

	// fromSegments builds a value from the decoded elements of a constructed
	// encoding. It is nil for types that must use the primitive encoding.
	fromSegments func(elements []Value, indefinite bool) (Value, error)
}

// universalTypes lists the supported universal types by tag number.
var universalTypes [31]*universalType

func init() {
	for _, ut := range []*universalType{
		{asn1tree.TagBoolean, KindBoolean, booleanFromContents, nil},
		{asn1tree.TagInteger, KindInteger, integerFromContents, nil},
		{asn1tree.TagBitString, KindBitString, bitStringFromContents, bitStringFromSegments},
		{asn1tree.TagOctetString, KindOctetString, octetStringFromContents, octetStringFromSegments},
		{asn1tree.TagNull, KindNull, nullFromContents, nil},
		{asn1tree.TagOID, KindObjectIdentifier, objectIdentifierFromContents, nil},
		{asn1tree.TagObjectDescriptor, KindObjectDescriptor, objectDescriptorFromContents, nil},
		{asn1tree.TagExternal, KindExternal, nil, externalFromElements},
		{asn1tree.TagEnumerated, KindEnumerated, enumeratedFromContents, nil},
		{asn1tree.TagUTF8String, KindUTF8String, utf8StringFromContents, nil},
		{asn1tree.TagRelativeOID, KindRelativeOID, relativeOIDFromContents, nil},
		{asn1tree.TagSequence, KindSequence, nil, sequenceFromElements},
		{asn1tree.TagSet, KindSet, nil, setFromElements},
		{asn1tree.TagNumericString, KindNumericString, numericStringFromContents, nil},
		{asn1tree.TagPrintableString, KindPrintableString, printableStringFromContents, nil},
		{asn1tree.TagT61String, KindT61String, t61StringFromContents, nil},
		{asn1tree.TagVideotexString, KindVideotexString, videotexStringFromContents, nil},
		{asn1tree.TagIA5String, KindIA5String, ia5StringFromContents, nil},
		{asn1tree.TagUTCTime, KindUTCTime, utcTimeFromContents, nil},
		{asn1tree.TagGeneralizedTime, KindGeneralizedTime, generalizedTimeFromContents, nil},
		{asn1tree.TagGraphicString, KindGraphicString, graphicStringFromContents, nil},
		{asn1tree.TagVisibleString, KindVisibleString, visibleStringFromContents, nil},
		{asn1tree.TagGeneralString, KindGeneralString, generalStringFromContents, nil},
		{asn1tree.TagUniversalString, KindUniversalString, universalStringFromContents, nil},
		{asn1tree.TagBMPString, KindBMPString, bmpStringFromContents, nil},
	} {
		// Types with a character string encoding can be segmented like an
		// OCTET STRING.
		if ut.fromSegments == nil && isStringKind(ut.kind) {
			ut.fromSegments = stringFromSegments(ut.number, ut.fromContents)
		}
		universalTypes[ut.number] = ut
	}
}

func isStringKind(k Kind) bool {
	switch k {
	case KindBoolean, KindInteger, KindNull, KindObjectIdentifier, KindEnumerated, KindRelativeOID,
		KindBitString, KindOctetString, KindExternal, KindSequence, KindSet, KindTagged:
		return false
	}
	return true
}

// lookupUniversal returns the description of the universal type with the
// given tag number or nil if the type is not supported.
func lookupUniversal(number uint) *universalType {
	if number >= uint(len(universalTypes)) {
		return nil
	}
	return universalTypes[number]
}

// UniversalKind returns the [Kind] of values with the universal tag number.
// The second return value is false if the universal type is not supported by
// this package.
func UniversalKind(number uint) (Kind, bool) {
	if ut := lookupUniversal(number); ut != nil {
		return ut.kind, true
	}
	return 0, false
}

// checkedCast returns v if it has the universal tag of ut.
func (ut *universalType) checkedCast(v Value) (Value, error) {
	if v.Tag() != asn1tree.Universal(ut.number) {
		return nil, &TypeMismatchError{Want: ut.kind, Got: v.Kind()}
	}
	return v, nil
}

// fromImplicitPrimitive decodes implicitly tagged primitive contents.
func (ut *universalType) fromImplicitPrimitive(c []byte) (Value, error) {
	if ut.fromContents == nil {
		return nil, contentError(ut.number, "%s must use the constructed encoding", ut.kind)
	}
	return ut.fromContents(c, defaultConfig)
}

// fromImplicitConstructed builds a value from the elements of implicitly
// tagged constructed contents.
func (ut *universalType) fromImplicitConstructed(elements []Value, indefinite bool) (Value, error) {
	if ut.fromSegments == nil {
		return nil, contentError(ut.number, "%s must use the primitive encoding", ut.kind)
	}
	return ut.fromSegments(elements, indefinite)
}

func sequenceFromElements(list []Value, indefinite bool) (Value, error) {
	return &Sequence{elements{list: list, indefinite: indefinite}}, nil
}

func setFromElements(list []Value, indefinite bool) (Value, error) {
	return &Set{elements: elements{list: list, indefinite: indefinite}}, nil
}
