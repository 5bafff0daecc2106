// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
)

// stdinName is the file name that refers to standard input.
const stdinName = "-"

// block is an encoding read from an input. PEM inputs yield one block per PEM
// block, other inputs yield a single block.
type block struct {
	source string
	typ    string // PEM type, empty for raw inputs
	data   []byte
}

// name returns a description of b for headers and error messages.
func (b block) name() string {
	src := b.source
	if src == stdinName {
		src = "<stdin>"
	}
	if b.typ == "" {
		return src
	}
	return src + " (" + b.typ + ")"
}

var pemPrefix = []byte("-----BEGIN ")

// readInput reads the named input and splits it into blocks.
func (e *env) readInput(name string) ([]block, error) {
	var data []byte
	var err error
	if name == stdinName {
		data, err = io.ReadAll(e.stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	e.logger.Debug("read input", "source", name, "bytes", len(data))
	if !bytes.HasPrefix(bytes.TrimSpace(data), pemPrefix) {
		return []block{{source: name, data: data}}, nil
	}
	var blocks []block
	for rest := data; ; {
		var p *pem.Block
		p, rest = pem.Decode(rest)
		if p == nil {
			break
		}
		blocks = append(blocks, block{source: name, typ: p.Type, data: p.Bytes})
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%s: %w", name, errNoPEMBlock)
	}
	e.logger.Debug("decoded PEM", "source", name, "blocks", len(blocks))
	return blocks, nil
}

var errNoPEMBlock = errors.New("no valid PEM block found")

// inputNames returns the inputs named on the command line, defaulting to
// standard input.
func inputNames(files []string) []string {
	if len(files) == 0 {
		return []string{stdinName}
	}
	return files
}
