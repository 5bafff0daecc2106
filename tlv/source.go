// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv

import (
	"errors"
	"io"
)

// maxConsecutiveEmptyReads is the maximum number of empty reads before
// [Source] returns an error from its Read method.
const maxConsecutiveEmptyReads = 100

// errNegativeRead indicates that a reader returned a negative number from its
// Read method.
var errNegativeRead = errors.New("tlv: reader returned negative count from Read")

// Source is the outermost byte source of a decoding operation. It works
// similar to the [bufio.Reader] type but additionally counts the bytes that
// have been consumed, so errors can report their position within the input.
//
// A Source created by [NewBytesSource] reads from memory and knows the size of
// its input. See [Source.Limit].
type Source struct {
	rd   io.Reader
	br   io.ByteReader // rd, if reads are not buffered
	buf  []byte
	r, w int // buf read and write positions
	err  error

	off   int64 // number of bytes consumed by callers
	limit int
}

// NewSource returns a Source reading from rd. The size of the input is
// unknown, so the limit of the Source is [Unbounded].
//
// If rd implements [io.ByteReader] it is assumed to be efficient enough so
// that the Source does not add buffering. In that case the Source never reads
// more bytes from rd than required for the data values read from it.
// Otherwise the Source reads ahead in chunks.
func NewSource(rd io.Reader) *Source {
	if br, ok := rd.(io.ByteReader); ok {
		return &Source{rd: rd, br: br, limit: Unbounded}
	}
	return &Source{rd: rd, buf: make([]byte, 1024), limit: Unbounded}
}

// NewBytesSource returns a Source reading b. The limit of the source is
// len(b).
func NewBytesSource(b []byte) *Source {
	// The whole input is the buffer. A nil rd marks the source as exhausted
	// once the buffer has been consumed.
	return &Source{buf: b, w: len(b), limit: len(b)}
}

// Limit returns the limit that applies to the first data value read from s.
// For in-memory sources this is the total input size.
func (s *Source) Limit() int { return s.limit }

// Offset returns the number of bytes that have been read from s.
func (s *Source) Offset() int64 { return s.off }

// Remaining returns the number of bytes left in a source created by
// [NewBytesSource]. For other sources it returns [Unbounded].
func (s *Source) Remaining() int {
	if s.rd != nil {
		return Unbounded
	}
	return s.w - s.r
}

// Buffered returns the number of bytes that are currently in the buffer.
func (s *Source) Buffered() int { return s.w - s.r }

// fill reads a new chunk into the buffer.
func (s *Source) fill() {
	if s.rd == nil {
		s.err = io.EOF
		return
	}
	// Slide existing data to beginning.
	if s.r > 0 {
		copy(s.buf, s.buf[s.r:s.w])
		s.w -= s.r
		s.r = 0
	}

	if s.w >= len(s.buf) {
		panic("tlv: tried to fill full buffer")
	}

	// Read new data: try a limited number of times.
	for i := maxConsecutiveEmptyReads; i > 0; i-- {
		n, err := s.rd.Read(s.buf[s.w:])
		if n < 0 {
			panic(errNegativeRead)
		}
		s.w += n
		if err != nil {
			s.err = err
			return
		}
		if n > 0 {
			return
		}
	}
	s.err = io.ErrNoProgress
}

// readErr returns any error encountered during the last fill operation.
func (s *Source) readErr() error {
	err := s.err
	s.err = nil
	return err
}

// Read implements [io.Reader].
func (s *Source) Read(p []byte) (n int, err error) {
	if s.br != nil {
		n, err = s.rd.Read(p)
		s.off += int64(n)
		return n, err
	}
	if len(p) == 0 {
		if s.Buffered() > 0 {
			return 0, nil
		}
		return 0, s.readErr()
	}
	if s.r == s.w {
		if s.err != nil {
			return 0, s.readErr()
		}
		if s.rd == nil {
			return 0, io.EOF
		}
		if len(p) >= len(s.buf) {
			// Read directly into p to avoid copy.
			n, s.err = s.rd.Read(p)
			if n < 0 {
				panic(errNegativeRead)
			}
			s.off += int64(n)
			return n, s.readErr()
		}
		s.fill()
		if s.r == s.w {
			return 0, s.readErr()
		}
	}

	n = copy(p, s.buf[s.r:s.w])
	s.r += n
	s.off += int64(n)
	return n, nil
}

// ReadByte implements [io.ByteReader].
func (s *Source) ReadByte() (byte, error) {
	if s.br != nil {
		c, err := s.br.ReadByte()
		if err == nil {
			s.off++
		}
		return c, err
	}
	for s.r == s.w {
		if s.err != nil {
			return 0, s.readErr()
		}
		s.fill()
	}
	c := s.buf[s.r]
	s.r++
	s.off++
	return c, nil
}
