// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"codello.dev/asn1tree"
)

// maxInitialAlloc is the largest buffer that [DefiniteReader.ReadAll] allocates
// before any contents have been read.
const maxInitialAlloc = 64 << 10

// A DefiniteReader reads the contents octets of a data value using the
// definite-length form. It yields exactly the announced number of bytes and
// returns io.EOF afterward. If the underlying reader ends early, reads fail
// with an error matching [asn1tree.ErrTruncatedValue].
//
// When a DefiniteReader has been read completely and its underlying reader is
// an [IndefiniteReader], end-of-contents detection of the underlying reader is
// switched back on.
type DefiniteReader struct {
	r         Reader
	original  int
	remaining int
	limit     int
}

// NewDefiniteReader returns a DefiniteReader for length bytes from r. The
// limit is the byte budget of the enclosing data value, see
// [DefiniteReader.ReadAll].
func NewDefiniteReader(r Reader, length, limit int) *DefiniteReader {
	if length < 0 {
		panic("tlv: negative length")
	}
	d := &DefiniteReader{r: r, original: length, remaining: length, limit: limit}
	if length == 0 {
		d.done()
	}
	return d
}

// Len returns the number of bytes that have not been read yet.
func (d *DefiniteReader) Len() int { return d.remaining }

// Limit returns the byte budget of the enclosing data value.
func (d *DefiniteReader) Limit() int { return d.limit }

// done is called when the last byte of d has been consumed.
func (d *DefiniteReader) done() {
	if p, ok := d.r.(*IndefiniteReader); ok {
		p.SetEndMarkerDetection(true)
	}
}

// truncated converts an error of the underlying reader into an error
// describing the truncated data value.
func (d *DefiniteReader) truncated(err error) error {
	if err == nil || err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: DEF length %d object truncated by %d", asn1tree.ErrTruncatedValue, d.original, d.remaining)
	}
	return err
}

// ReadByte implements [io.ByteReader].
func (d *DefiniteReader) ReadByte() (byte, error) {
	if d.remaining == 0 {
		return 0, io.EOF
	}
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, d.truncated(err)
	}
	if d.remaining--; d.remaining == 0 {
		d.done()
	}
	return b, nil
}

// Read implements [io.Reader].
func (d *DefiniteReader) Read(p []byte) (int, error) {
	if d.remaining == 0 {
		return 0, io.EOF
	}
	if len(p) > d.remaining {
		p = p[:d.remaining]
	}
	n, err := d.r.Read(p)
	d.remaining -= n
	if d.remaining == 0 {
		d.done()
		return n, nil
	}
	if err != nil {
		return n, d.truncated(err)
	}
	return n, nil
}

// ReadAll reads all remaining bytes of d into a new slice. If the number of
// remaining bytes is not strictly smaller than the limit of d, ReadAll fails
// with an error matching [asn1tree.ErrLengthExceedsLimit] without reading.
func (d *DefiniteReader) ReadAll() ([]byte, error) {
	if d.remaining >= d.limit {
		return nil, fmt.Errorf("%w: out of bounds length found: %d >= %d", asn1tree.ErrLengthExceedsLimit, d.remaining, d.limit)
	}
	if d.remaining == 0 {
		return []byte{}, nil
	}
	// The length may be forged, so the buffer only grows as data arrives.
	buf := make([]byte, 0, min(d.remaining, maxInitialAlloc))
	for d.remaining > 0 {
		if len(buf) == cap(buf) {
			buf = slices.Grow(buf, min(d.remaining, len(buf)))
		}
		n, err := io.ReadAtLeast(d.r, buf[len(buf):min(cap(buf), len(buf)+d.remaining)], 1)
		buf = buf[:len(buf)+n]
		d.remaining -= n
		if err != nil && d.remaining > 0 {
			return nil, d.truncated(err)
		}
	}
	d.done()
	return buf, nil
}

// Skip discards all remaining bytes of d.
func (d *DefiniteReader) Skip() error {
	var buf [512]byte
	for d.remaining > 0 {
		if _, err := d.Read(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// An IndefiniteReader reads the contents octets of a data value using the
// indefinite-length form. It keeps two bytes of lookahead and reports io.EOF
// as soon as the lookahead is the end-of-contents marker 00 00 and end marker
// detection is enabled. Detection is enabled initially.
//
// A reader decoding nested data values must switch detection off after the
// first identifier octet of a nested value has been read, because a 00 byte
// inside the remaining identifier, length or contents octets is not an end
// marker. Detection is switched on again when the nested value has been read
// completely, either by a [DefiniteReader] or a nested IndefiniteReader
// reading from this reader, or explicitly by the caller.
type IndefiniteReader struct {
	r      Reader
	b1, b2 byte // lookahead
	detect bool
	eof    bool
	limit  int
}

// NewIndefiniteReader returns an IndefiniteReader reading from r. The limit
// is the byte budget of the enclosing data value and applies to the nested
// data values.
func NewIndefiniteReader(r Reader, limit int) (*IndefiniteReader, error) {
	ir := &IndefiniteReader{r: r, detect: true, limit: limit}
	var err error
	if ir.b1, err = r.ReadByte(); err != nil {
		return nil, endOfStream(err, "EOF found in indefinite-length contents")
	}
	if ir.b2, err = r.ReadByte(); err != nil {
		return nil, endOfStream(err, "EOF found in indefinite-length contents")
	}
	ir.checkForEnd()
	return ir, nil
}

// Limit returns the byte budget of the enclosing data value.
func (ir *IndefiniteReader) Limit() int { return ir.limit }

// AtEnd reports whether the end-of-contents marker has been consumed.
func (ir *IndefiniteReader) AtEnd() bool { return ir.eof }

// SetEndMarkerDetection enables or disables the detection of the
// end-of-contents marker. Enabling detection immediately inspects the
// lookahead.
func (ir *IndefiniteReader) SetEndMarkerDetection(on bool) {
	ir.detect = on
	if on {
		ir.checkForEnd()
	}
}

// checkForEnd reports whether ir has reached the end-of-contents marker.
func (ir *IndefiniteReader) checkForEnd() bool {
	if !ir.eof && ir.detect && ir.b1 == 0 && ir.b2 == 0 {
		ir.eof = true
		if p, ok := ir.r.(*IndefiniteReader); ok {
			p.SetEndMarkerDetection(true)
		}
	}
	return ir.eof
}

// ReadByte implements [io.ByteReader].
func (ir *IndefiniteReader) ReadByte() (byte, error) {
	if ir.checkForEnd() {
		return 0, io.EOF
	}
	b, err := ir.r.ReadByte()
	if err != nil {
		return 0, endOfStream(err, "EOF found before end-of-contents")
	}
	v := ir.b1
	ir.b1, ir.b2 = ir.b2, b
	return v, nil
}

// Read implements [io.Reader]. While end marker detection is enabled, Read
// returns at most one byte per call.
func (ir *IndefiniteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if ir.detect || len(p) < 3 {
		b, err := ir.ReadByte()
		if err != nil {
			return 0, err
		}
		p[0] = b
		return 1, nil
	}
	if ir.eof {
		return 0, io.EOF
	}
	n, err := ir.r.Read(p[2:])
	if n == 0 && err != nil {
		return 0, endOfStream(err, "EOF found before end-of-contents")
	}
	p[0], p[1] = ir.b1, ir.b2
	if ir.b1, err = ir.r.ReadByte(); err != nil {
		return 0, endOfStream(err, "EOF found before end-of-contents")
	}
	if ir.b2, err = ir.r.ReadByte(); err != nil {
		return 0, endOfStream(err, "EOF found before end-of-contents")
	}
	return n + 2, nil
}

// Lookahead returns the number of bytes that r and the readers it reads from
// have consumed from their source without yielding them yet. An
// [IndefiniteReader] holds two bytes until its end-of-contents marker has been
// found. Subtracting the lookahead from the offset of the underlying [Source]
// gives the position of the next byte yielded by r.
func Lookahead(r Reader) int {
	n := 0
	for {
		switch rr := r.(type) {
		case *DefiniteReader:
			r = rr.r
		case *IndefiniteReader:
			if !rr.eof {
				n += 2
			}
			r = rr.r
		default:
			return n
		}
	}
}
