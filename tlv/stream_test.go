// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"
	"testing/iotest"

	"codello.dev/asn1tree"
)

func TestDefiniteReader(t *testing.T) {
	tests := map[string]struct {
		data    []byte
		length  int
		limit   int
		want    []byte
		wantErr error
	}{
		"Empty":     {[]byte{0x01}, 0, 10, []byte{}, nil},
		"Exact":     {[]byte{0x01, 0x02, 0x03}, 3, 10, []byte{0x01, 0x02, 0x03}, nil},
		"Prefix":    {[]byte{0x01, 0x02, 0x03}, 2, 10, []byte{0x01, 0x02}, nil},
		"Truncated": {[]byte{0x01, 0x02}, 3, 10, nil, asn1tree.ErrTruncatedValue},
		"AtLimit":   {[]byte{0x01, 0x02, 0x03}, 3, 3, nil, asn1tree.ErrLengthExceedsLimit},
		"Forged":    {[]byte{0x01, 0x02}, 1 << 30, Unbounded, nil, asn1tree.ErrTruncatedValue},
		"Large":     {make([]byte, 200_000), 150_000, Unbounded, make([]byte, 150_000), nil},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			d := NewDefiniteReader(bytes.NewReader(tt.data), tt.length, tt.limit)
			got, err := d.ReadAll()
			if !errors.Is(err, tt.wantErr) || (err == nil) != (tt.wantErr == nil) {
				t.Fatalf("ReadAll() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ReadAll() = % X, want % X", got, tt.want)
			}
			if _, err = d.ReadByte(); err != io.EOF {
				t.Errorf("ReadByte() after ReadAll() error = %v, want io.EOF", err)
			}
		})
	}
}

func TestDefiniteReader_Read(t *testing.T) {
	r := bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	d := NewDefiniteReader(r, 4, Unbounded)
	got, err := io.ReadAll(iotest.OneByteReader(d))
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if !slices.Equal(got, []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Errorf("io.ReadAll() = % X", got)
	}
	if r.Len() != 1 {
		t.Errorf("underlying reader has %d bytes left, want 1", r.Len())
	}

	d = NewDefiniteReader(bytes.NewReader([]byte{0x01}), 4, Unbounded)
	if _, err = io.ReadAll(d); !errors.Is(err, asn1tree.ErrTruncatedValue) {
		t.Errorf("io.ReadAll() error = %v, want ErrTruncatedValue", err)
	}
}

func TestDefiniteReader_Skip(t *testing.T) {
	r := bytes.NewReader(make([]byte, 2000))
	d := NewDefiniteReader(r, 1500, Unbounded)
	if err := d.Skip(); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if d.Len() != 0 || r.Len() != 500 {
		t.Errorf("Skip() left d.Len() = %d, r.Len() = %d", d.Len(), r.Len())
	}
}

func TestIndefiniteReader(t *testing.T) {
	r := bytes.NewReader([]byte{0x01, 0x02, 0x00, 0x00, 0xFF})
	ir, err := NewIndefiniteReader(r, Unbounded)
	if err != nil {
		t.Fatalf("NewIndefiniteReader() error = %v", err)
	}
	got, err := io.ReadAll(ir)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if !slices.Equal(got, []byte{0x01, 0x02}) {
		t.Errorf("io.ReadAll() = % X, want 01 02", got)
	}
	if !ir.AtEnd() {
		t.Errorf("AtEnd() = false, want true")
	}
	if r.Len() != 1 {
		t.Errorf("underlying reader has %d bytes left, want 1", r.Len())
	}
}

func TestIndefiniteReader_missingEnd(t *testing.T) {
	ir, err := NewIndefiniteReader(bytes.NewReader([]byte{0x01, 0x02, 0x03}), Unbounded)
	if err != nil {
		t.Fatalf("NewIndefiniteReader() error = %v", err)
	}
	if _, err = io.ReadAll(ir); !errors.Is(err, asn1tree.ErrUnexpectedEndOfStream) {
		t.Errorf("io.ReadAll() error = %v, want ErrUnexpectedEndOfStream", err)
	}
	if _, err = NewIndefiniteReader(bytes.NewReader([]byte{0x00}), Unbounded); !errors.Is(err, asn1tree.ErrUnexpectedEndOfStream) {
		t.Errorf("NewIndefiniteReader() error = %v, want ErrUnexpectedEndOfStream", err)
	}
}

func TestIndefiniteReader_SetEndMarkerDetection(t *testing.T) {
	// NULL followed by the end-of-contents marker. The length octet of the
	// NULL and the first octet of the marker look like a marker themselves.
	data := []byte{0x05, 0x00, 0x00, 0x00}

	t.Run("Enabled", func(t *testing.T) {
		ir, _ := NewIndefiniteReader(bytes.NewReader(data), Unbounded)
		if b, err := ir.ReadByte(); b != 0x05 || err != nil {
			t.Fatalf("ReadByte() = %X, %v, want 05, nil", b, err)
		}
		if _, err := ir.ReadByte(); err != io.EOF {
			t.Errorf("ReadByte() error = %v, want io.EOF", err)
		}
	})
	t.Run("Toggled", func(t *testing.T) {
		r := bytes.NewReader(data)
		ir, _ := NewIndefiniteReader(r, Unbounded)
		tag, constructed, err := ReadIdentifier(ir)
		if err != nil || tag != asn1tree.Universal(asn1tree.TagNull) || constructed {
			t.Fatalf("ReadIdentifier() = %v, %t, %v", tag, constructed, err)
		}
		ir.SetEndMarkerDetection(false)
		l, err := ReadLength(ir, ir.Limit(), false)
		if err != nil || l != 0 {
			t.Fatalf("ReadLength() = %d, %v, want 0, nil", l, err)
		}
		if ir.AtEnd() {
			t.Fatalf("AtEnd() = true before the nested value was consumed")
		}
		NewDefiniteReader(ir, l, ir.Limit())
		if !ir.AtEnd() {
			t.Errorf("AtEnd() = false after the nested value was consumed")
		}
		if r.Len() != 0 {
			t.Errorf("underlying reader has %d bytes left, want 0", r.Len())
		}
	})
	t.Run("ReadHeader", func(t *testing.T) {
		ir, _ := NewIndefiniteReader(bytes.NewReader(data), Unbounded)
		h, err := ReadHeader(ir, ir.Limit(), true)
		if err != nil || h != (Header{Tag: asn1tree.Universal(asn1tree.TagNull)}) {
			t.Fatalf("ReadHeader() = %v, %v", h, err)
		}
		NewDefiniteReader(ir, h.Length, ir.Limit())
		if _, err := ReadHeader(ir, ir.Limit(), true); err != io.EOF {
			t.Errorf("ReadHeader() error = %v, want io.EOF", err)
		}
	})
}

func TestIndefiniteReader_nested(t *testing.T) {
	src := bytes.NewReader([]byte{0xAA, 0x00, 0x00, 0x00, 0x00, 0xBB})
	outer, err := NewIndefiniteReader(src, Unbounded)
	if err != nil {
		t.Fatalf("NewIndefiniteReader() error = %v", err)
	}
	if b, _ := outer.ReadByte(); b != 0xAA {
		t.Fatalf("ReadByte() = %X, want AA", b)
	}
	outer.SetEndMarkerDetection(false)
	inner, err := NewIndefiniteReader(outer, outer.Limit())
	if err != nil {
		t.Fatalf("NewIndefiniteReader() error = %v", err)
	}
	if !inner.AtEnd() || !outer.AtEnd() {
		t.Errorf("inner.AtEnd() = %t, outer.AtEnd() = %t, want true, true", inner.AtEnd(), outer.AtEnd())
	}
	if b, _ := src.ReadByte(); b != 0xBB {
		t.Errorf("next byte = %X, want BB", b)
	}
}

func TestIndefiniteReader_bulkRead(t *testing.T) {
	data := append([]byte{0x01}, bytes.Repeat([]byte{0x00}, 63)...)
	data = append(data, 0x01, 0x00, 0x00)
	r := bytes.NewReader(data)
	ir, _ := NewIndefiniteReader(r, Unbounded)
	ir.SetEndMarkerDetection(false)
	buf := make([]byte, 65)
	n, err := io.ReadFull(ir, buf)
	if err != nil || n != 65 {
		t.Fatalf("io.ReadFull() = %d, %v", n, err)
	}
	if buf[64] != 0x01 {
		t.Errorf("buf[64] = %X, want 01", buf[64])
	}
	ir.SetEndMarkerDetection(true)
	if !ir.AtEnd() {
		t.Errorf("AtEnd() = false, want true")
	}
}

func TestSource(t *testing.T) {
	data := []byte{0x30, 0x03, 0x02, 0x01, 0x05}
	for name, s := range map[string]*Source{
		"Bytes":      NewBytesSource(data),
		"Reader":     NewSource(iotest.HalfReader(bytes.NewReader(data))),
		"ByteReader": NewSource(bytes.NewReader(data)),
	} {
		t.Run(name, func(t *testing.T) {
			h, err := ReadHeader(s, s.Limit(), false)
			if err != nil {
				t.Fatalf("ReadHeader() error = %v", err)
			}
			if h.Length != 3 || s.Offset() != 2 {
				t.Errorf("ReadHeader() = %v at offset %d", h, s.Offset())
			}
			rest, err := NewDefiniteReader(s, h.Length, s.Limit()).ReadAll()
			if err != nil || !slices.Equal(rest, data[2:]) {
				t.Errorf("ReadAll() = % X, %v", rest, err)
			}
			if s.Offset() != 5 {
				t.Errorf("Offset() = %d, want 5", s.Offset())
			}
			if _, err = s.ReadByte(); err != io.EOF {
				t.Errorf("ReadByte() error = %v, want io.EOF", err)
			}
		})
	}
	if _, err := NewBytesSource(nil).ReadByte(); err != io.EOF {
		t.Errorf("ReadByte() on empty source error = %v, want io.EOF", err)
	}
}

func TestLookahead(t *testing.T) {
	// OCTET STRING 'AB'H inside an indefinite-length value, followed by FF.
	src := NewBytesSource([]byte{0x04, 0x01, 0xAB, 0x00, 0x00, 0xFF})
	pos := func(r Reader) int64 { return src.Offset() - int64(Lookahead(r)) }

	ir, err := NewIndefiniteReader(src, Unbounded)
	if err != nil {
		t.Fatalf("NewIndefiniteReader() error = %v", err)
	}
	if got := Lookahead(ir); got != 2 {
		t.Errorf("Lookahead() = %d, want 2", got)
	}
	if got := pos(ir); got != 0 {
		t.Errorf("position before header = %d, want 0", got)
	}
	h, err := ReadHeader(ir, Unbounded, true)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	dr := NewDefiniteReader(ir, h.Length, Unbounded)
	if got := pos(dr); got != 2 {
		t.Errorf("position of contents = %d, want 2", got)
	}
	if _, err = dr.ReadAll(); err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !ir.AtEnd() {
		t.Fatal("AtEnd() = false, want true")
	}
	if got := Lookahead(ir); got != 0 {
		t.Errorf("Lookahead() at end = %d, want 0", got)
	}
	if got := pos(ir); got != 5 {
		t.Errorf("position after end-of-contents = %d, want 5", got)
	}
}
