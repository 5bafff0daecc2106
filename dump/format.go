// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dump

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies an output format of [Encode].
type Format string

// Supported output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// Formats lists all supported output formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatCBOR}

// cborMode is the CBOR encoding mode for node trees. Canonical encoding makes
// the output of equal trees byte-for-byte identical.
var cborMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Encode writes nodes to w in the given format.
func Encode(w io.Writer, nodes []*Node, f Format) error {
	switch f {
	case FormatText, "":
		return WriteText(w, nodes)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(nodes)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(nodes); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		return cborMode.NewEncoder(w).Encode(nodes)
	}
	return fmt.Errorf("dump: unknown format %q", string(f))
}

// DecodeCBOR reads node trees written by [Encode] in [FormatCBOR].
func DecodeCBOR(b []byte) ([]*Node, error) {
	var nodes []*Node
	if err := cbor.Unmarshal(b, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// nameWidth is the column width of indented names that are followed by a
// value in the text listing.
const nameWidth = 20

// WriteText writes a listing of nodes and their descendants to w. Each data
// value is printed on its own line:
//
//	 0:d=0  hl=2 l=  13 cons: Sequence
//	 2:d=1  hl=2 l=   9 prim:  ObjectIdentifier   :1.2.840.113549.1.1.11
//	13:d=1  hl=2 l=   0 prim:  Null               :NULL
//
// The fields are the offset, the depth, the header length and the contents
// length of the data value. Indefinite lengths are printed as "inf".
func WriteText(w io.Writer, nodes []*Node) error {
	bw := bufio.NewWriter(w)
	for _, n := range nodes {
		n.Walk(func(n *Node) bool {
			writeLine(bw, n)
			return true
		})
	}
	return bw.Flush()
}

func writeLine(w *bufio.Writer, n *Node) {
	l := "inf"
	if n.Length >= 0 {
		l = strconv.Itoa(n.Length)
	}
	form := "prim"
	if n.Constructed {
		form = "cons"
	}
	fmt.Fprintf(w, "%5d:d=%-2d hl=%d l=%4s %s: ", n.Offset, n.Depth, n.HeaderLen, l, form)
	name := strings.Repeat(" ", n.Depth) + n.Name
	switch {
	case n.Error != "":
		fmt.Fprintf(w, "%-*s:BAD %s (%s)\n", nameWidth, name, n.Value, n.Error)
	case !n.Constructed:
		fmt.Fprintf(w, "%-*s:%s\n", nameWidth, name, n.Value)
	default:
		w.WriteString(name + "\n")
	}
}
