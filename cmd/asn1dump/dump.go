// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"codello.dev/asn1tree/dump"
)

type dumpCmd struct {
	Files  []string    `arg:"" optional:"" help:"Input files. Reads standard input if none are given."`
	Format dump.Format `short:"f" enum:"text,json,yaml,cbor" default:"text" help:"Output format (${enum})."`
	Jobs   int         `short:"j" default:"4" help:"Number of inputs processed concurrently."`
}

// dumpResult is the output of a single input.
type dumpResult struct {
	out bytes.Buffer
	err error
}

func (c *dumpCmd) Run(e *env) error {
	names := inputNames(c.Files)
	stdin := 0
	for _, name := range names {
		if name == stdinName {
			stdin++
		}
	}
	if stdin > 1 {
		return errors.New("standard input can only be read once")
	}

	results := make([]dumpResult, len(names))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(c.Jobs, 1))
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			blocks, err := e.readInput(name)
			if err != nil {
				return err
			}
			results[i].err = c.dumpBlocks(e, &results[i].out, blocks, len(names) > 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var errs []error
	first := true
	for _, r := range results {
		if r.out.Len() > 0 {
			if !first {
				switch c.Format {
				case dump.FormatText:
					fmt.Fprintln(e.stdout)
				case dump.FormatYAML:
					fmt.Fprintln(e.stdout, "---")
				}
			}
			first = false
			if _, err := r.out.WriteTo(e.stdout); err != nil {
				return err
			}
		}
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return errors.Join(errs...)
}

// dumpBlocks writes the dump of all blocks to buf. Each block of a text dump
// is preceded by a header line if there are several inputs or blocks.
func (c *dumpCmd) dumpBlocks(e *env, buf *bytes.Buffer, blocks []block, many bool) error {
	many = many || len(blocks) > 1
	for i, b := range blocks {
		nodes, err := dump.Bytes(b.data, e.dumpOptions()...)
		if c.Format == dump.FormatText && many {
			if i > 0 {
				buf.WriteByte('\n')
			}
			fmt.Fprintf(buf, "==> %s <==\n", b.name())
		}
		if c.Format == dump.FormatYAML && i > 0 {
			buf.WriteString("---\n")
		}
		if encErr := dump.Encode(buf, nodes, c.Format); encErr != nil {
			return encErr
		}
		if err != nil {
			e.logger.Warn("malformed input", "source", b.name(), "error", err)
			return fmt.Errorf("%s: %w", b.name(), err)
		}
		e.logger.Info("dumped", "source", b.name(), "values", len(nodes))
	}
	return nil
}
