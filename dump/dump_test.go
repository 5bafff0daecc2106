// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dump

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/ber"
)

// input is SEQUENCE { INTEGER 5, OCTET STRING (segmented), [0] { TRUE }, NULL }
// followed by a top-level NULL.
const input = "30 14 02 01 05 24 80 04 01 AB 04 01 CD 00 00 A0 03 01 01 FF 05 00 05 00"

func fromHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return b
}

func prim(off int64, depth int, class string, number uint, name, value string) *Node {
	return &Node{Offset: off, Depth: depth, HeaderLen: 2, Length: 1, Class: class, Number: number, Name: name, Value: value}
}

func expected() []*Node {
	return []*Node{
		{
			Offset: 0, Depth: 0, HeaderLen: 2, Length: 20, Class: "Universal", Number: 16, Constructed: true, Name: "Sequence",
			Children: []*Node{
				prim(2, 1, "Universal", 2, "Integer", "5"),
				{
					Offset: 5, Depth: 1, HeaderLen: 2, Length: -1, Class: "Universal", Number: 4, Constructed: true, Name: "OctetString",
					Children: []*Node{
						prim(7, 2, "Universal", 4, "OctetString", "#AB"),
						prim(10, 2, "Universal", 4, "OctetString", "#CD"),
					},
				},
				{
					Offset: 15, Depth: 1, HeaderLen: 2, Length: 3, Class: "ContextSpecific", Number: 0, Constructed: true, Name: "[0]",
					Children: []*Node{prim(17, 2, "Universal", 1, "Boolean", "TRUE")},
				},
				{Offset: 20, Depth: 1, HeaderLen: 2, Length: 0, Class: "Universal", Number: 5, Name: "Null", Value: "NULL"},
			},
		},
		{Offset: 22, Depth: 0, HeaderLen: 2, Length: 0, Class: "Universal", Number: 5, Name: "Null", Value: "NULL"},
	}
}

func TestBytes(t *testing.T) {
	nodes, err := Bytes(fromHex(t, input))
	require.NoError(t, err)
	if diff := cmp.Diff(expected(), nodes); diff != "" {
		t.Errorf("Bytes() mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_stream(t *testing.T) {
	nodes, err := Read(iotest.OneByteReader(bytes.NewReader(fromHex(t, input))))
	require.NoError(t, err)
	if diff := cmp.Diff(expected(), nodes); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_nestedIndefinite(t *testing.T) {
	// SEQUENCE (indefinite) { SET (indefinite) { INTEGER 1 }, NULL }
	nodes, err := Bytes(fromHex(t, "30 80 31 80 02 01 01 00 00 05 00 00 00"))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	var offsets []int64
	nodes[0].Walk(func(n *Node) bool {
		offsets = append(offsets, n.Offset)
		return true
	})
	assert.Equal(t, []int64{0, 2, 4, 9}, offsets)
	assert.Equal(t, -1, nodes[0].Children[0].Length)
}

func TestRead_longFormHeader(t *testing.T) {
	nodes, err := Bytes(fromHex(t, "1F 81 00 81 01 00"))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 5, nodes[0].HeaderLen)
	assert.Equal(t, asn1tree.Universal(128), nodes[0].Tag())
	assert.Equal(t, "[UNIVERSAL 128]", nodes[0].Name)
	assert.Equal(t, "00", nodes[0].Value)
}

func TestRead_invalidContents(t *testing.T) {
	nodes, err := Bytes(fromHex(t, "30 05 01 02 FF FF 05"))
	require.Error(t, err, "a truncated sequence must not be dumped")
	assert.Empty(t, nodes)

	nodes, err = Bytes(fromHex(t, "30 04 01 02 00 00"))
	require.NoError(t, err)
	b := nodes[0].Children[0]
	assert.Equal(t, "0000", b.Value)
	assert.Contains(t, b.Error, "[UNIVERSAL 1]")
}

func TestRead_errors(t *testing.T) {
	tests := map[string]struct {
		data    string
		opts    []Option
		wantErr error
		nodes   int
	}{
		"Depth":          {"30 03 02 01 05", []Option{WithMaxDepth(1)}, asn1tree.ErrDepthExceeded, 0},
		"DepthUnlimited": {"30 03 02 01 05", []Option{WithMaxDepth(0)}, nil, 1},
		"Trailing":       {"05 00 05", nil, asn1tree.ErrUnexpectedEndOfStream, 1},
		"PrimIndefinite": {"04 80 00 00", nil, asn1tree.ErrMalformedPrimitiveIndefinite, 0},
		"LengthTooLarge": {"04 05 00", nil, asn1tree.ErrMalformedLength, 0},
		"Empty":          {"", nil, nil, 0},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			nodes, err := Bytes(fromHex(t, tc.data), tc.opts...)
			assert.Len(t, nodes, tc.nodes)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			var se *asn1tree.SyntaxError
			require.True(t, errors.As(err, &se), "Bytes() error = %v, want *asn1tree.SyntaxError", err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValue(t *testing.T) {
	v := ber.NewSet(ber.NewInteger(5), ber.NewBoolean(true))
	nodes, err := Value(v, ber.DER)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Len(t, nodes[0].Children, 2)
	// DER sorts the elements of a SET.
	assert.Equal(t, "Boolean", nodes[0].Children[0].Name)
	assert.Equal(t, "Integer", nodes[0].Children[1].Name)
}

func TestWriteText(t *testing.T) {
	nodes, err := Bytes(fromHex(t, input))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, nodes))
	want := strings.Join([]string{
		"    0:d=0  hl=2 l=  20 cons: Sequence",
		"    2:d=1  hl=2 l=   1 prim:  Integer            :5",
		"    5:d=1  hl=2 l= inf cons:  OctetString",
		"    7:d=2  hl=2 l=   1 prim:   OctetString       :#AB",
		"   10:d=2  hl=2 l=   1 prim:   OctetString       :#CD",
		"   15:d=1  hl=2 l=   3 cons:  [0]",
		"   17:d=2  hl=2 l=   1 prim:   Boolean           :TRUE",
		"   20:d=1  hl=2 l=   0 prim:  Null               :NULL",
		"   22:d=0  hl=2 l=   0 prim: Null                :NULL",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteText_error(t *testing.T) {
	nodes := []*Node{{Length: 2, HeaderLen: 2, Name: "Boolean", Value: "0000", Error: "bad"}}
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, nodes))
	assert.Equal(t, "    0:d=0  hl=2 l=   2 prim: Boolean             :BAD 0000 (bad)\n", buf.String())
}

func TestEncode(t *testing.T) {
	want := expected()

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, want, FormatJSON))
		assert.Contains(t, buf.String(), `"headerLength": 2`)
		var got []*Node
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("JSON mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, want, FormatYAML))
		assert.Contains(t, buf.String(), "header-length: 2")
		var got []*Node
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("YAML mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("CBOR", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, want, FormatCBOR))
		got, err := DecodeCBOR(buf.Bytes())
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("CBOR mismatch (-want +got):\n%s", diff)
		}

		var again bytes.Buffer
		require.NoError(t, Encode(&again, got, FormatCBOR))
		assert.Equal(t, buf.Bytes(), again.Bytes(), "canonical CBOR must be stable")
	})
	t.Run("Unknown", func(t *testing.T) {
		assert.Error(t, Encode(&bytes.Buffer{}, want, Format("xml")))
	})
}
