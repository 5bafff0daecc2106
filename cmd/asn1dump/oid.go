// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/ber"
	"codello.dev/asn1tree/tlv"
)

type oidCmd struct {
	Values   []string `arg:"" help:"Object identifiers in dotted notation, or contents octets as hex prefixed with 0x."`
	Relative bool     `short:"R" help:"Treat values as relative object identifiers."`
}

func (c *oidCmd) Run(e *env) error {
	for _, s := range c.Values {
		v, err := c.parse(s, e.decodeOptions())
		if err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
		b, err := ber.Encode(v, ber.DER)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%s\t%s\n", v, strings.ToUpper(hex.EncodeToString(b)))
	}
	return nil
}

// parse returns the value denoted by s.
func (c *oidCmd) parse(s string, opts []ber.Option) (ber.Value, error) {
	h, ok := strings.CutPrefix(strings.ToLower(s), "0x")
	if !ok {
		if c.Relative {
			return ber.ParseRelativeOID(s)
		}
		return ber.ParseObjectIdentifier(s)
	}
	contents, err := hex.DecodeString(h)
	if err != nil {
		return nil, err
	}
	tag := asn1tree.Universal(asn1tree.TagOID)
	if c.Relative {
		tag = asn1tree.Universal(asn1tree.TagRelativeOID)
	}
	b := tlv.AppendHeader(nil, tlv.Header{Tag: tag, Length: len(contents)})
	return ber.Parse(append(b, contents...), opts...)
}
