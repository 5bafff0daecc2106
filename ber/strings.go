// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"codello.dev/asn1tree"
)

// A String is a value of one of the ASN.1 character string types.
type String interface {
	Value
	fmt.Stringer

	// Bytes returns a copy of the contents octets of the string.
	Bytes() []byte
}

// contentsValue is implemented by values that can appear as segments of a
// constructed string encoding.
type contentsValue interface {
	Value
	contents() []byte
}

// flattenSegments concatenates the contents of the segments of a constructed
// string with the given universal tag number. Segments must be OCTET STRING
// values or values of the string type itself.
func flattenSegments(tagNumber uint, elements []Value) ([]byte, error) {
	n := 0
	for _, e := range elements {
		s, ok := e.(contentsValue)
		if !ok || (e.Kind() != KindOctetString && e.Tag() != asn1tree.Universal(tagNumber)) {
			return nil, contentError(tagNumber, "unknown object encountered in constructed string: %s", e.Kind())
		}
		n += len(s.contents())
	}
	c := make([]byte, 0, n)
	for _, e := range elements {
		c = append(c, e.(contentsValue).contents()...)
	}
	return c, nil
}

// stringFromSegments returns a function that decodes a constructed string
// using fromContents for the flattened contents.
func stringFromSegments(tagNumber uint, fromContents func([]byte, *config) (Value, error)) func([]Value, bool) (Value, error) {
	return func(elements []Value, _ bool) (Value, error) {
		c, err := flattenSegments(tagNumber, elements)
		if err != nil {
			return nil, err
		}
		return fromContents(c, defaultConfig)
	}
}

// isNumeric reports whether b can appear in an ASN.1 NumericString.
func isNumeric(b byte) bool {
	return '0' <= b && b <= '9' || b == ' '
}

// isPrintable reports whether the given b is in the ASN.1 PrintableString set.
// If asterisk is true then '*' is also allowed, reflecting existing practice.
// If ampersand is true then '&' is allowed as well.
func isPrintable(b byte, asterisk, ampersand bool) bool {
	return 'a' <= b && b <= 'z' ||
		'A' <= b && b <= 'Z' ||
		'0' <= b && b <= '9' ||
		'\'' <= b && b <= ')' ||
		'+' <= b && b <= '/' ||
		b == ' ' ||
		b == ':' ||
		b == '=' ||
		b == '?' ||
		// This is technically not allowed in a PrintableString.
		// However, x509 certificates with wildcard strings don't
		// always use the correct string type so we permit it.
		(asterisk && b == '*') ||
		// This is not technically allowed either. However, not
		// only is it relatively common, but there are also a
		// handful of CA certificates that contain it.
		(ampersand && b == '&')
}

func isIA5(b byte) bool     { return b < utf8.RuneSelf }
func isVisible(b byte) bool { return ' ' <= b && b < 0x7f }

// checkBytes returns an error if any byte in c does not satisfy valid.
func checkBytes[T string | []byte](c T, valid func(byte) bool) error {
	for i := 0; i < len(c); i++ {
		if !valid(c[i]) {
			return fmt.Errorf("illegal character 0x%02X at index %d", c[i], i)
		}
	}
	return nil
}

func checkUTF8(c []byte) error {
	if !utf8.Valid(c) {
		return errors.New("invalid UTF-8")
	}
	return nil
}

func checkNumeric(c []byte) error { return checkBytes(c, isNumeric) }
func checkIA5(c []byte) error     { return checkBytes(c, isIA5) }
func checkVisible(c []byte) error { return checkBytes(c, isVisible) }

func checkPrintable(c []byte) error {
	return checkBytes(c, func(b byte) bool { return isPrintable(b, true, true) })
}

func checkUniversal(c []byte) error {
	if len(c)%4 != 0 {
		return errors.New("malformed UniversalString encoding encountered")
	}
	return nil
}

func checkBMP(c []byte) error {
	if len(c)%2 != 0 {
		return errors.New("malformed BMPString encoding encountered")
	}
	return nil
}

func checkAny([]byte) error { return nil }

// asciiBytes validates s using valid and returns its octets.
func asciiBytes(valid func(byte) bool) func(string) ([]byte, error) {
	return func(s string) ([]byte, error) {
		if err := checkBytes(s, valid); err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
}

var (
	numericBytes   = asciiBytes(isNumeric)
	printableBytes = asciiBytes(func(b byte) bool { return isPrintable(b, false, false) })
	ia5Bytes       = asciiBytes(isIA5)
	visibleBytes   = asciiBytes(isVisible)
)

func utf8Bytes(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, errors.New("invalid UTF-8")
	}
	return []byte(s), nil
}

// The 8-bit string types without a well-defined repertoire are converted
// using ISO 8859-1, which maps every octet to a character.
func latin1Bytes(s string) ([]byte, error) {
	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
}

// latin1String decodes c. Every octet is a valid ISO 8859-1 character, so
// decoding cannot fail.
func latin1String(c []byte) string {
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(c)
	return string(s)
}

var (
	utf32BE = utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)
	utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
)

func universalBytes(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, errors.New("invalid UTF-8")
	}
	return utf32BE.NewEncoder().Bytes([]byte(s))
}

// universalString decodes c, which has passed checkUniversal. Invalid code
// points are replaced by U+FFFD, so decoding cannot fail.
func universalString(c []byte) string {
	s, _ := utf32BE.NewDecoder().Bytes(c)
	return string(s)
}

func bmpBytes(s string) ([]byte, error) {
	for i, r := range s {
		if r == utf8.RuneError || r > 0xFFFF || 0xD800 <= r && r <= 0xDFFF {
			return nil, fmt.Errorf("character %U at index %d outside the Basic Multilingual Plane", r, i)
		}
	}
	return utf16BE.NewEncoder().Bytes([]byte(s))
}

// bmpString decodes c, which has an even length. Unpaired surrogates are
// replaced by U+FFFD, so decoding cannot fail.
func bmpString(c []byte) string {
	s, _ := utf16BE.NewDecoder().Bytes(c)
	return string(s)
}

// UTF8String is the ASN.1 UTF8String type.
type UTF8String struct {
	c []byte
}

// NewUTF8String returns a [UTF8String] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewUTF8String(s string) (UTF8String, error) {
	c, err := utf8Bytes(s)
	if err != nil {
		return UTF8String{}, err
	}
	return UTF8String{c}, nil
}

func utf8StringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkUTF8(c); err != nil {
		return nil, contentError(asn1tree.TagUTF8String, "%s", err)
	}
	return UTF8String{c}, nil
}

func (s UTF8String) Bytes() []byte    { return slices.Clone(s.c) }
func (s UTF8String) contents() []byte { return s.c }

func (UTF8String) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagUTF8String) }
func (UTF8String) Kind() Kind        { return KindUTF8String }

func (s UTF8String) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s UTF8String) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s UTF8String) String() string { return string(s.c) }

// NumericString is the ASN.1 NumericString type. A NumericString can only
// consist of the digits 0-9 and space.
type NumericString struct {
	c []byte
}

// NewNumericString returns a [NumericString] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewNumericString(s string) (NumericString, error) {
	c, err := numericBytes(s)
	if err != nil {
		return NumericString{}, err
	}
	return NumericString{c}, nil
}

func numericStringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkNumeric(c); err != nil {
		return nil, contentError(asn1tree.TagNumericString, "%s", err)
	}
	return NumericString{c}, nil
}

func (s NumericString) Bytes() []byte    { return slices.Clone(s.c) }
func (s NumericString) contents() []byte { return s.c }

func (NumericString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagNumericString) }
func (NumericString) Kind() Kind        { return KindNumericString }

func (s NumericString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s NumericString) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s NumericString) String() string { return string(s.c) }

// PrintableString is the ASN.1 PrintableString type. A PrintableString can
// only contain upper and lower case letters, digits, space and the characters
// '()+,-./:=?. Decoded values may also contain '*' and '&'.
type PrintableString struct {
	c []byte
}

// NewPrintableString returns a [PrintableString] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewPrintableString(s string) (PrintableString, error) {
	c, err := printableBytes(s)
	if err != nil {
		return PrintableString{}, err
	}
	return PrintableString{c}, nil
}

func printableStringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkPrintable(c); err != nil {
		return nil, contentError(asn1tree.TagPrintableString, "%s", err)
	}
	return PrintableString{c}, nil
}

func (s PrintableString) Bytes() []byte    { return slices.Clone(s.c) }
func (s PrintableString) contents() []byte { return s.c }

func (PrintableString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagPrintableString) }
func (PrintableString) Kind() Kind        { return KindPrintableString }

func (s PrintableString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s PrintableString) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s PrintableString) String() string { return string(s.c) }

// T61String is the ASN.1 TeletexString type. Its contents are converted from
// and to Go strings using ISO 8859-1.
type T61String struct {
	c []byte
}

// NewT61String returns a [T61String] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewT61String(s string) (T61String, error) {
	c, err := latin1Bytes(s)
	if err != nil {
		return T61String{}, err
	}
	return T61String{c}, nil
}

func t61StringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkAny(c); err != nil {
		return nil, contentError(asn1tree.TagT61String, "%s", err)
	}
	return T61String{c}, nil
}

func (s T61String) Bytes() []byte    { return slices.Clone(s.c) }
func (s T61String) contents() []byte { return s.c }

func (T61String) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagT61String) }
func (T61String) Kind() Kind        { return KindT61String }

func (s T61String) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s T61String) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s T61String) String() string { return latin1String(s.c) }

// VideotexString is the ASN.1 VideotexString type. Its contents are converted
// from and to Go strings using ISO 8859-1.
type VideotexString struct {
	c []byte
}

// NewVideotexString returns a [VideotexString] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewVideotexString(s string) (VideotexString, error) {
	c, err := latin1Bytes(s)
	if err != nil {
		return VideotexString{}, err
	}
	return VideotexString{c}, nil
}

func videotexStringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkAny(c); err != nil {
		return nil, contentError(asn1tree.TagVideotexString, "%s", err)
	}
	return VideotexString{c}, nil
}

func (s VideotexString) Bytes() []byte    { return slices.Clone(s.c) }
func (s VideotexString) contents() []byte { return s.c }

func (VideotexString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagVideotexString) }
func (VideotexString) Kind() Kind        { return KindVideotexString }

func (s VideotexString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s VideotexString) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s VideotexString) String() string { return latin1String(s.c) }

// IA5String is the ASN.1 IA5String type. An IA5String consists of ASCII
// characters only.
type IA5String struct {
	c []byte
}

// NewIA5String returns a [IA5String] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewIA5String(s string) (IA5String, error) {
	c, err := ia5Bytes(s)
	if err != nil {
		return IA5String{}, err
	}
	return IA5String{c}, nil
}

func ia5StringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkIA5(c); err != nil {
		return nil, contentError(asn1tree.TagIA5String, "%s", err)
	}
	return IA5String{c}, nil
}

func (s IA5String) Bytes() []byte    { return slices.Clone(s.c) }
func (s IA5String) contents() []byte { return s.c }

func (IA5String) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagIA5String) }
func (IA5String) Kind() Kind        { return KindIA5String }

func (s IA5String) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s IA5String) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s IA5String) String() string { return string(s.c) }

// GraphicString is the ASN.1 GraphicString type. Its contents are converted
// from and to Go strings using ISO 8859-1.
type GraphicString struct {
	c []byte
}

// NewGraphicString returns a [GraphicString] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewGraphicString(s string) (GraphicString, error) {
	c, err := latin1Bytes(s)
	if err != nil {
		return GraphicString{}, err
	}
	return GraphicString{c}, nil
}

func graphicStringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkAny(c); err != nil {
		return nil, contentError(asn1tree.TagGraphicString, "%s", err)
	}
	return GraphicString{c}, nil
}

func (s GraphicString) Bytes() []byte    { return slices.Clone(s.c) }
func (s GraphicString) contents() []byte { return s.c }

func (GraphicString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagGraphicString) }
func (GraphicString) Kind() Kind        { return KindGraphicString }

func (s GraphicString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s GraphicString) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s GraphicString) String() string { return latin1String(s.c) }

// VisibleString is the ASN.1 VisibleString type. It is limited to visible
// ASCII characters.
type VisibleString struct {
	c []byte
}

// NewVisibleString returns a [VisibleString] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewVisibleString(s string) (VisibleString, error) {
	c, err := visibleBytes(s)
	if err != nil {
		return VisibleString{}, err
	}
	return VisibleString{c}, nil
}

func visibleStringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkVisible(c); err != nil {
		return nil, contentError(asn1tree.TagVisibleString, "%s", err)
	}
	return VisibleString{c}, nil
}

func (s VisibleString) Bytes() []byte    { return slices.Clone(s.c) }
func (s VisibleString) contents() []byte { return s.c }

func (VisibleString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagVisibleString) }
func (VisibleString) Kind() Kind        { return KindVisibleString }

func (s VisibleString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s VisibleString) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s VisibleString) String() string { return string(s.c) }

// GeneralString is the ASN.1 GeneralString type. Its contents are converted
// from and to Go strings using ISO 8859-1.
type GeneralString struct {
	c []byte
}

// NewGeneralString returns a [GeneralString] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewGeneralString(s string) (GeneralString, error) {
	c, err := latin1Bytes(s)
	if err != nil {
		return GeneralString{}, err
	}
	return GeneralString{c}, nil
}

func generalStringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkAny(c); err != nil {
		return nil, contentError(asn1tree.TagGeneralString, "%s", err)
	}
	return GeneralString{c}, nil
}

func (s GeneralString) Bytes() []byte    { return slices.Clone(s.c) }
func (s GeneralString) contents() []byte { return s.c }

func (GeneralString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagGeneralString) }
func (GeneralString) Kind() Kind        { return KindGeneralString }

func (s GeneralString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s GeneralString) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s GeneralString) String() string { return latin1String(s.c) }

// UniversalString is the ASN.1 UniversalString type. Its contents are
// encoded using big endian UTF-32.
type UniversalString struct {
	c []byte
}

// NewUniversalString returns a [UniversalString] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewUniversalString(s string) (UniversalString, error) {
	c, err := universalBytes(s)
	if err != nil {
		return UniversalString{}, err
	}
	return UniversalString{c}, nil
}

func universalStringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkUniversal(c); err != nil {
		return nil, contentError(asn1tree.TagUniversalString, "%s", err)
	}
	return UniversalString{c}, nil
}

func (s UniversalString) Bytes() []byte    { return slices.Clone(s.c) }
func (s UniversalString) contents() []byte { return s.c }

func (UniversalString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagUniversalString) }
func (UniversalString) Kind() Kind        { return KindUniversalString }

func (s UniversalString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s UniversalString) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s UniversalString) String() string { return universalString(s.c) }

// BMPString is the ASN.1 BMPString type. It can hold any character of the
// Unicode Basic Multilingual Plane. Its contents are encoded using big endian
// UTF-16.
type BMPString struct {
	c []byte
}

// NewBMPString returns a [BMPString] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewBMPString(s string) (BMPString, error) {
	c, err := bmpBytes(s)
	if err != nil {
		return BMPString{}, err
	}
	return BMPString{c}, nil
}

func bmpStringFromContents(c []byte, _ *config) (Value, error) {
	if err := checkBMP(c); err != nil {
		return nil, contentError(asn1tree.TagBMPString, "%s", err)
	}
	return BMPString{c}, nil
}

func (s BMPString) Bytes() []byte    { return slices.Clone(s.c) }
func (s BMPString) contents() []byte { return s.c }

func (BMPString) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagBMPString) }
func (BMPString) Kind() Kind        { return KindBMPString }

func (s BMPString) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s BMPString) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s BMPString) String() string { return bmpString(s.c) }

// ObjectDescriptor is the ASN.1 ObjectDescriptor type. It is encoded like a
// [GraphicString].
type ObjectDescriptor struct {
	c []byte
}

// NewObjectDescriptor returns a [ObjectDescriptor] holding s. An error is returned if s
// contains characters that cannot be represented.
func NewObjectDescriptor(s string) (ObjectDescriptor, error) {
	c, err := latin1Bytes(s)
	if err != nil {
		return ObjectDescriptor{}, err
	}
	return ObjectDescriptor{c}, nil
}

func objectDescriptorFromContents(c []byte, _ *config) (Value, error) {
	if err := checkAny(c); err != nil {
		return nil, contentError(asn1tree.TagObjectDescriptor, "%s", err)
	}
	return ObjectDescriptor{c}, nil
}

func (s ObjectDescriptor) Bytes() []byte    { return slices.Clone(s.c) }
func (s ObjectDescriptor) contents() []byte { return s.c }

func (ObjectDescriptor) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagObjectDescriptor) }
func (ObjectDescriptor) Kind() Kind        { return KindObjectDescriptor }

func (s ObjectDescriptor) Encoding(rules Rules) Encoding { return s.EncodingImplicit(rules, s.Tag()) }
func (s ObjectDescriptor) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, s.c)
}

func (s ObjectDescriptor) String() string { return latin1String(s.c) }
