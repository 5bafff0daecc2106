// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv

import (
	"errors"
	"fmt"
	"io"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/internal/vlq"
)

// ReadIdentifier reads the identifier octets of a data value encoding from r.
// If the low five bits of the first octet are all set, the tag number follows
// in base-128 form.
//
// If r returns io.EOF on the first read, the returned error will be io.EOF as
// well. Any other error matches [asn1tree.ErrMalformedTag] or
// [asn1tree.ErrUnexpectedEndOfStream], unless it was returned by r itself.
func ReadIdentifier(r io.ByteReader) (tag asn1tree.Tag, constructed bool, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return asn1tree.Tag{}, false, err
	}
	return readIdentifier(b, r)
}

// readIdentifier implements [ReadIdentifier] after the first octet b has been
// read.
func readIdentifier(b byte, r io.ByteReader) (tag asn1tree.Tag, constructed bool, err error) {
	tag = asn1tree.Tag{Class: asn1tree.Class(b >> 6), Number: uint(b & 0x1f)}
	constructed = b&0x20 == 0x20
	if b&0x1f != 0x1f {
		return tag, constructed, nil
	}

	n, err := vlq.ReadMinimal[uint32](r)
	switch {
	case errors.Is(err, vlq.ErrNotMinimal):
		return tag, constructed, fmt.Errorf("%w: high tag number not minimally encoded", asn1tree.ErrMalformedTag)
	case errors.Is(err, vlq.ErrOverflow):
		return tag, constructed, fmt.Errorf("%w: tag number more than 31 bits", asn1tree.ErrMalformedTag)
	case err != nil:
		return tag, constructed, endOfStream(err, "EOF found inside tag value")
	case n > asn1tree.MaxTagNumber:
		return tag, constructed, fmt.Errorf("%w: tag number more than 31 bits", asn1tree.ErrMalformedTag)
	case n < 0x1f:
		return tag, constructed, fmt.Errorf("%w: high tag number %d below 31", asn1tree.ErrMalformedTag, n)
	}
	tag.Number = uint(n)
	return tag, constructed, nil
}

// ReadLength reads the length octets of a data value encoding from r. The
// result is either a non-negative definite length or [LengthIndefinite].
//
// A definite length must be strictly smaller than limit. Setting parsing to
// true relaxes the check to allow a length equal to limit.
func ReadLength(r io.ByteReader, limit int, parsing bool) (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, endOfStream(err, "EOF found when length expected")
	}
	if b == 0x80 {
		return LengthIndefinite, nil
	}
	length := int(b)
	if b&0x80 != 0 {
		if b == 0xff {
			return 0, fmt.Errorf("%w: invalid long form definite-length 0xFF", asn1tree.ErrMalformedLength)
		}
		numBytes := int(b & 0x7f)
		length = 0
		for range numBytes {
			if b, err = r.ReadByte(); err != nil {
				return 0, endOfStream(err, "EOF found reading length")
			}
			if length>>23 != 0 {
				return 0, fmt.Errorf("%w: long form definite-length more than 31 bits", asn1tree.ErrMalformedLength)
			}
			length = length<<8 | int(b)
		}
	}
	if length > limit || (length == limit && !parsing) {
		return 0, fmt.Errorf("%w: out of bounds length found: %d >= %d", asn1tree.ErrLengthExceedsLimit, length, limit)
	}
	return length, nil
}

// ReadHeader reads a complete header from r. It combines [ReadIdentifier] and
// [ReadLength]. The parsing relaxation of [ReadLength] is only applied to
// universal types that a stream parser may leave open at a container
// boundary: BIT STRING, OCTET STRING, SEQUENCE, SET and EXTERNAL.
//
// If r returns io.EOF on the first read, the returned error will be io.EOF as
// well. An indefinite length combined with the primitive encoding is
// reported as [asn1tree.ErrMalformedPrimitiveIndefinite].
//
// If r is an [*IndefiniteReader], end-of-contents detection is disabled after
// the first identifier octet has been read. It is enabled again when the
// contents of the data value have been consumed by a [DefiniteReader] or a
// nested [IndefiniteReader].
func ReadHeader(r io.ByteReader, limit int, parsing bool) (Header, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Header{}, err
	}
	if ir, ok := r.(*IndefiniteReader); ok {
		ir.SetEndMarkerDetection(false)
	}
	tag, constructed, err := readIdentifier(b, r)
	if err != nil {
		return Header{Tag: tag, Constructed: constructed}, err
	}
	return readLengthOf(tag, constructed, r, limit, parsing)
}

// readLengthOf completes a header whose identifier has already been read.
func readLengthOf(tag asn1tree.Tag, constructed bool, r io.ByteReader, limit int, parsing bool) (Header, error) {
	h := Header{Tag: tag, Constructed: constructed}
	var err error
	h.Length, err = ReadLength(r, limit, parsing && streamable(tag))
	if err != nil {
		return h, err
	}
	if h.Length == LengthIndefinite && !constructed {
		return h, asn1tree.ErrMalformedPrimitiveIndefinite
	}
	return h, nil
}

// streamable reports whether tag identifies a universal type whose length
// may be checked with the parsing relaxation of [ReadLength].
func streamable(tag asn1tree.Tag) bool {
	if tag.Class != asn1tree.ClassUniversal {
		return false
	}
	switch tag.Number {
	case asn1tree.TagBitString, asn1tree.TagOctetString, asn1tree.TagSequence, asn1tree.TagSet, asn1tree.TagExternal:
		return true
	}
	return false
}

// IdentifierSize returns the number of identifier octets needed to encode tag.
func IdentifierSize(tag asn1tree.Tag) int {
	if tag.Number < 0x1f {
		return 1
	}
	return 1 + vlq.Size(tag.Number)
}

// LengthSize returns the number of length octets needed to encode length in
// minimal form. [LengthIndefinite] is encoded as a single octet.
func LengthSize(length int) int {
	if length == LengthIndefinite || length < 0x80 {
		return 1
	}
	l := 2
	for ; length > 0xff; length >>= 8 {
		l++
	}
	return l
}

// AppendIdentifier appends the identifier octets of a data value with the
// given tag to dst.
func AppendIdentifier(dst []byte, tag asn1tree.Tag, constructed bool) []byte {
	b := byte(tag.Class&0b11) << 6
	if constructed {
		b |= 0x20
	}
	if tag.Number < 0x1f {
		return append(dst, b|byte(tag.Number))
	}
	return vlq.Append(append(dst, b|0x1f), tag.Number)
}

// AppendLength appends the length octets for length in minimal form to dst.
func AppendLength(dst []byte, length int) []byte {
	if length == LengthIndefinite {
		return append(dst, 0x80)
	}
	if length < 0x80 {
		return append(dst, byte(length))
	}
	numBytes := LengthSize(length) - 1
	dst = append(dst, 0x80|byte(numBytes))
	for ; numBytes > 0; numBytes-- {
		dst = append(dst, byte(length>>uint((numBytes-1)*8)))
	}
	return dst
}

// AppendHeader appends the identifier and length octets of h to dst.
func AppendHeader(dst []byte, h Header) []byte {
	return AppendLength(AppendIdentifier(dst, h.Tag, h.Constructed), h.Length)
}

// WriteTo writes the encoding of h to w. It returns the number of bytes
// written as well as any error that occurs during writing.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	var buf [16]byte
	n, err := w.Write(AppendHeader(buf[:0], h))
	return int64(n), err
}

// endOfStream converts an io.EOF from a read in the middle of a header into an
// error matching [asn1tree.ErrUnexpectedEndOfStream].
func endOfStream(err error, msg string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %s", asn1tree.ErrUnexpectedEndOfStream, msg)
	}
	return err
}
