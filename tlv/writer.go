// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv

import (
	"errors"
	"io"

	"codello.dev/asn1tree"
)

var (
	errValuePending  = errors.New("previous value not fully written")
	errUnexpectedEOC = errors.New("unexpected end-of-contents")
	errInvalidEOC    = errors.New("end-of-contents with non-zero length or constructed bit")
	errExceedsParent = errors.New("data value exceeds parent")
	errValueOverflow = errors.New("write exceeds length of data value")
)

// frame is the writing state of one data value.
type frame struct {
	Header

	// Offset is the number of bytes that have been written within the contents.
	Offset int

	// Length is the maximum number of contents bytes. It is at most the length
	// of the header but may be less if an enclosing data value is more
	// restrictive. Length is LengthIndefinite if no restriction is known.
	Length int
}

// Remaining returns the number of bytes that can still be written into the
// contents of f, or LengthIndefinite if there is no restriction.
func (f *frame) Remaining() int {
	if f.Length == LengthIndefinite {
		return LengthIndefinite
	}
	return f.Length - f.Offset
}

// Writer writes a stream of TLV data values header by header. It validates
// that the sequence of headers and contents forms well-formed data values:
// primitive contents must be written completely before the next header,
// nested values must fit into definite-length parents, and every constructed
// data value must be closed by writing [EndOfContents]. The end-of-contents
// marker is only emitted for indefinite-length data values.
//
// A Writer is the backend of the indefinite-length generator in package
// [codello.dev/asn1tree/ber], which streams encodings without knowing their
// total length in advance.
type Writer struct {
	stack []frame
	curr  frame // top of the stack

	wr interface {
		io.Writer
		io.ByteWriter
	}
	buf bufferedWriter
	val *valueWriter

	offset int64    // number of bytes written
	hdr    [16]byte // scratch space for encoding headers
}

// NewWriter creates a new [Writer] writing to w. If w does not implement
// [io.ByteWriter], the Writer does its own buffering. The buffer is flushed at
// the end of each top-level data value and by [Writer.Flush].
func NewWriter(w io.Writer) *Writer {
	wr := new(Writer)
	wr.Reset(w)
	return wr
}

// Reset discards the state of w and makes it write to dst. The internal buffer
// is reused.
func (w *Writer) Reset(dst io.Writer) {
	if w.stack == nil {
		w.stack = make([]frame, 0, 8)
	}
	w.stack = w.stack[:0]
	w.curr = frame{Header: Header{Constructed: true, Length: LengthIndefinite}, Length: LengthIndefinite}
	if bw, ok := dst.(interface {
		io.Writer
		io.ByteWriter
	}); ok {
		w.buf.Reset(nil)
		w.wr = bw
	} else {
		w.buf.Reset(dst)
		w.wr = &w.buf
	}
	w.val = nil
	w.offset = 0
}

// WriteHeader writes the next header. Writing [EndOfContents] closes the
// innermost open constructed data value.
//
// For primitive headers WriteHeader returns an [io.Writer] for the contents.
// Exactly h.Length bytes must be written to it before the next call to
// WriteHeader.
//
// Structural errors are reported as [*asn1tree.SyntaxError]. Errors of the
// underlying writer are returned as is and leave w in an undefined state.
func (w *Writer) WriteHeader(h Header) (io.Writer, error) {
	if w.val != nil && w.val.n > 0 {
		return nil, w.syntaxError(errValuePending)
	}
	w.val = nil
	if err := w.check(h); err != nil {
		return nil, w.syntaxError(err)
	}

	if h == EndOfContents {
		if w.curr.Header.Length == LengthIndefinite {
			if err := w.write(AppendHeader(w.hdr[:0], h)); err != nil {
				return nil, err
			}
		}
		w.pop()
		if len(w.stack) == 0 {
			return nil, w.Flush()
		}
		return nil, nil
	}

	if err := w.write(AppendHeader(w.hdr[:0], h)); err != nil {
		return nil, err
	}
	w.push(h)
	if h.Constructed {
		return nil, nil
	}
	v := &valueWriter{w: w, n: h.Length}
	if h.Length == 0 {
		return v, w.valueDone()
	}
	w.val = v
	return v, nil
}

// WriteEncoded prepares w for writing a complete data value that has already
// been encoded. The returned writer accepts exactly n bytes. w does not
// validate the bytes but accounts them in the enclosing data values.
func (w *Writer) WriteEncoded(n int) (io.Writer, error) {
	if w.val != nil && w.val.n > 0 {
		return nil, w.syntaxError(errValuePending)
	}
	w.val = nil
	if n < 2 {
		return nil, w.syntaxError(asn1tree.ErrMalformedLength)
	}
	if rem := w.curr.Remaining(); rem != LengthIndefinite && n > rem {
		return nil, w.syntaxError(errExceedsParent)
	}
	w.stack = append(w.stack, w.curr)
	w.curr = frame{Length: n}
	w.val = &valueWriter{w: w, n: n}
	return w.val, nil
}

// check validates that h may be written at the current position.
func (w *Writer) check(h Header) error {
	if h.Tag == EndOfContents.Tag {
		switch {
		case h != EndOfContents:
			return errInvalidEOC
		case len(w.stack) == 0:
			return errUnexpectedEOC
		case w.curr.Header.Length != LengthIndefinite && w.curr.Remaining() != 0:
			return errUnexpectedEOC
		}
		return nil
	}
	switch {
	case !h.Tag.Class.IsValid() || h.Tag.Number > asn1tree.MaxTagNumber:
		return asn1tree.ErrMalformedTag
	case h.Length < LengthIndefinite:
		return asn1tree.ErrMalformedLength
	case !h.Constructed && h.Length == LengthIndefinite:
		return asn1tree.ErrMalformedPrimitiveIndefinite
	}
	size := h.EncodedLen(max(h.Length, 0))
	if h.Length == LengthIndefinite {
		// An indefinite-length data value at least needs its header and marker.
		size = h.Size() + 2
	}
	if rem := w.curr.Remaining(); rem != LengthIndefinite && (size < 0 || size > rem) {
		return errExceedsParent
	}
	return nil
}

func (w *Writer) syntaxError(err error) error {
	return &asn1tree.SyntaxError{Tag: w.curr.Tag, Offset: w.offset, Err: err}
}

// write writes header bytes, counting them towards the current data value.
func (w *Writer) write(p []byte) error {
	n, err := w.wr.Write(p)
	w.offset += int64(n)
	w.curr.Offset += n
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return err
}

// push makes h the current data value.
func (w *Writer) push(h Header) {
	prev := w.curr
	w.stack = append(w.stack, w.curr)
	w.curr = frame{Header: h, Length: MinLength(h.Length, prev.Remaining())}
}

// pop closes the current data value and accounts its contents in its parent.
func (w *Writer) pop() {
	prev := w.curr
	w.curr = w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.curr.Offset += prev.Offset
}

// valueDone is called when the contents of a primitive data value have been
// written completely.
func (w *Writer) valueDone() error {
	w.val = nil
	w.pop()
	if len(w.stack) == 0 {
		return w.Flush()
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.wr != &w.buf {
		return nil
	}
	return w.buf.Flush()
}

// OutputOffset returns the number of bytes written so far, including bytes
// that are still buffered.
func (w *Writer) OutputOffset() int64 { return w.offset }

// Depth returns the number of data values that have been opened and not yet
// closed. It is 0 between top-level data values.
func (w *Writer) Depth() int { return len(w.stack) }

// Open returns the header of the i-th open data value, starting at 0 for the
// outermost one. i must be smaller than [Writer.Depth].
func (w *Writer) Open(i int) Header {
	if i == len(w.stack)-1 {
		return w.curr.Header
	}
	return w.stack[i+1].Header
}

// valueWriter writes the contents of a primitive data value. It accepts at
// most the number of bytes given by the header.
type valueWriter struct {
	w *Writer
	n int // remaining number of bytes
}

// Len returns the number of bytes that still have to be written.
func (v *valueWriter) Len() int { return v.n }

// Write implements [io.Writer].
func (v *valueWriter) Write(p []byte) (n int, err error) {
	write := min(len(p), v.n)
	if write > 0 {
		n, err = v.w.wr.Write(p[:write])
		v.n -= n
		v.w.offset += int64(n)
		v.w.curr.Offset += n
	}
	if err == nil && n < write {
		err = io.ErrShortWrite
	} else if err == nil && write < len(p) {
		err = errValueOverflow
	}
	if n > 0 && v.n == 0 {
		if dErr := v.w.valueDone(); err == nil {
			err = dErr
		}
	}
	return n, err
}

// WriteByte implements [io.ByteWriter].
func (v *valueWriter) WriteByte(c byte) error {
	_, err := v.Write([]byte{c})
	return err
}

// bufferedWriter works similar to [bufio.Writer]. It is used when the
// destination of a [Writer] does not implement [io.ByteWriter].
type bufferedWriter struct {
	wr  io.Writer
	buf []byte
	n   int
}

// Reset discards buffered data and makes b write to w.
func (b *bufferedWriter) Reset(w io.Writer) {
	b.wr = w
	if b.buf == nil && w != nil {
		b.buf = make([]byte, 1024)
	}
	b.n = 0
}

// Flush writes all buffered data.
func (b *bufferedWriter) Flush() error {
	if b.n == 0 {
		return nil
	}
	n, err := b.wr.Write(b.buf[:b.n])
	if n > 0 && n < b.n {
		copy(b.buf[0:b.n-n], b.buf[n:b.n])
	}
	b.n -= n
	if err == nil && b.n > 0 {
		err = io.ErrShortWrite
	}
	return err
}

// Available returns the number of unused bytes in the buffer.
func (b *bufferedWriter) Available() int { return len(b.buf) - b.n }

// Write implements [io.Writer].
func (b *bufferedWriter) Write(p []byte) (nn int, err error) {
	for len(p) > b.Available() && err == nil {
		var n int
		if b.n == 0 {
			// Large write, empty buffer. Write directly from p to avoid copy.
			n, err = b.wr.Write(p)
		} else {
			n = copy(b.buf[b.n:], p)
			b.n += n
			err = b.Flush()
		}
		nn += n
		p = p[n:]
	}
	if err != nil {
		return nn, err
	}
	n := copy(b.buf[b.n:], p)
	b.n += n
	return nn + n, nil
}

// WriteByte implements [io.ByteWriter].
func (b *bufferedWriter) WriteByte(c byte) error {
	if b.Available() <= 0 {
		if err := b.Flush(); err != nil {
			return err
		}
	}
	b.buf[b.n] = c
	b.n++
	return nil
}
