// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"strings"

	"codello.dev/asn1tree/ber"
)

type convertCmd struct {
	File   string `arg:"" optional:"" default:"-" help:"Input file. Reads standard input if omitted."`
	Rules  string `short:"r" enum:"ber,dl,der" default:"der" help:"Encoding rules of the output (${enum})."`
	Output string `short:"o" default:"-" help:"Output file. Writes to standard output if omitted."`
	Hex    bool   `short:"x" help:"Write each encoded value as a line of hex."`
}

// parseRules returns the encoding rules named by s.
func parseRules(s string) (ber.Rules, error) {
	for _, r := range []ber.Rules{ber.BER, ber.DL, ber.DER} {
		if strings.EqualFold(r.String(), s) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown encoding rules %q", s)
}

func (c *convertCmd) Run(e *env) error {
	rules, err := parseRules(c.Rules)
	if err != nil {
		return err
	}
	blocks, err := e.readInput(c.File)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	for _, b := range blocks {
		values, err := convert(b.data, rules, e.decodeOptions())
		if err != nil {
			return fmt.Errorf("%s: %w", b.name(), err)
		}
		e.logger.Info("converted", "source", b.name(), "values", len(values), "rules", rules)
		switch {
		case c.Hex:
			for _, v := range values {
				out.WriteString(strings.ToUpper(hex.EncodeToString(v)))
				out.WriteByte('\n')
			}
		case b.typ != "":
			if err = pem.Encode(&out, &pem.Block{Type: b.typ, Bytes: bytes.Join(values, nil)}); err != nil {
				return err
			}
		default:
			for _, v := range values {
				out.Write(v)
			}
		}
	}

	if c.Output == stdinName {
		_, err = out.WriteTo(e.stdout)
		return err
	}
	return os.WriteFile(c.Output, out.Bytes(), 0o644)
}

// convert decodes all data values of data and encodes each of them again
// using the given rules.
func convert(data []byte, rules ber.Rules, opts []ber.Option) ([][]byte, error) {
	var values [][]byte
	dec := ber.NewDecoder(bytes.NewReader(data), opts...)
	for {
		v, err := dec.Decode()
		if err == io.EOF {
			return values, nil
		}
		if err != nil {
			return nil, err
		}
		b, err := ber.Encode(v, rules)
		if err != nil {
			return nil, err
		}
		values = append(values, b)
	}
}
