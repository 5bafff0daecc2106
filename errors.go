// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1tree

import (
	"io"
	"strconv"
)

// kindError is the type of the sentinel errors below. A kindError may refine
// a more general error, which makes errors.Is match both.
type kindError struct {
	msg    string
	parent error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.parent }

// These errors classify why a decode or encode operation failed. Errors
// returned by this module wrap exactly one of them, so they can be inspected
// using [errors.Is].
var (
	// ErrMalformedTag indicates invalid identifier octets: a high tag number
	// that is not minimally encoded, that does not fit into 31 bits, or that
	// uses the high tag number form for a number below 31.
	ErrMalformedTag error = &kindError{msg: "malformed tag"}

	// ErrMalformedLength indicates invalid length octets: the reserved 0xFF
	// octet, a long form length exceeding 31 bits, or a length that cannot fit
	// into the enclosing data value.
	ErrMalformedLength error = &kindError{msg: "malformed length"}

	// ErrLengthExceedsLimit indicates a definite length that is not strictly
	// smaller than the number of bytes available in the enclosing data value.
	ErrLengthExceedsLimit error = &kindError{msg: "length exceeds limit", parent: ErrMalformedLength}

	// ErrUnexpectedEndOfStream indicates that the input ended in the middle of
	// a data value. It matches io.ErrUnexpectedEOF.
	ErrUnexpectedEndOfStream error = &kindError{msg: "unexpected end of stream", parent: io.ErrUnexpectedEOF}

	// ErrTruncatedValue indicates that the contents of a definite-length data
	// value ended before the declared length was reached.
	ErrTruncatedValue error = &kindError{msg: "truncated data value", parent: ErrUnexpectedEndOfStream}

	// ErrMalformedPrimitiveIndefinite indicates a primitive encoding with the
	// indefinite length form, which X.690 does not allow.
	ErrMalformedPrimitiveIndefinite error = &kindError{msg: "indefinite length used with primitive encoding"}

	// ErrUnknownTag indicates a universal tag number without a known type.
	ErrUnknownTag error = &kindError{msg: "unknown universal tag"}

	// ErrUnexpectedTag indicates a tag that is known but not allowed at its
	// position, for example a nested segment of a constructed string that does
	// not carry the tag of the outer string.
	ErrUnexpectedTag error = &kindError{msg: "unexpected tag"}

	// ErrCorruptedStream is matched by all errors that originate from
	// validating the contents octets of a data value.
	ErrCorruptedStream error = &kindError{msg: "corrupted stream"}

	// ErrInvalidContent indicates contents octets that are not valid for the
	// type of the data value. Errors of this kind are of type *ContentError.
	ErrInvalidContent error = &kindError{msg: "invalid contents"}

	// ErrInvalidSegmentPadding indicates a constructed BIT STRING in which a
	// segment other than the last one has unused bits.
	ErrInvalidSegmentPadding error = &kindError{msg: "invalid segment padding", parent: ErrCorruptedStream}

	// ErrTypeMismatch indicates that a value was accessed as a type it does
	// not have.
	ErrTypeMismatch error = &kindError{msg: "type mismatch"}

	// ErrTrailingData indicates bytes following the single data value that
	// was expected.
	ErrTrailingData error = &kindError{msg: "trailing data after top-level value"}

	// ErrDepthExceeded indicates that data values are nested deeper than the
	// configured maximum.
	ErrDepthExceeded error = &kindError{msg: "maximum nesting depth exceeded"}

	// ErrValueTooLarge indicates an encoding whose length cannot be
	// represented.
	ErrValueTooLarge error = &kindError{msg: "value too large"}
)

// SyntaxError reports a malformed encoding. The error value contains the
// location of the error within the input as well as the tag of the data value
// that was being decoded.
type SyntaxError struct {
	// Tag of the data value containing the error. The zero value indicates
	// that the error occurred before the tag was known.
	Tag Tag

	// Offset is the location of the error. The location is usually the start
	// of the identifier octets of the data value containing the error.
	Offset int64

	Err error // underlying error
}

func (e *SyntaxError) Unwrap() error { return e.Err }
func (e *SyntaxError) Error() string {
	b := []byte("asn1tree: syntax error")
	if e.Tag != (Tag{}) {
		b = append(b, " decoding "...)
		b = append(b, e.Tag.String()...)
	}
	b = strconv.AppendInt(append(b, " at offset "...), e.Offset, 10)
	if e.Err != nil {
		b = append(b, ": "...)
		b = append(b, e.Err.Error()...)
	}
	return string(b)
}

// ContentError reports contents octets that are invalid for the type
// identified by Tag. A ContentError matches both [ErrInvalidContent] and
// [ErrCorruptedStream].
type ContentError struct {
	Tag Tag
	Msg string
}

func (e *ContentError) Error() string {
	return "invalid " + e.Tag.String() + " contents: " + e.Msg
}

func (e *ContentError) Unwrap() []error {
	return []error{ErrInvalidContent, ErrCorruptedStream}
}
