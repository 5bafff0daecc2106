// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command asn1dump inspects and converts BER and DER encoded ASN.1 data.
//
// Usage:
//
//	asn1dump [flags] dump [FILE ...]
//	asn1dump [flags] convert [FILE]
//	asn1dump [flags] oid VALUE ...
//
// Inputs may be raw encodings or PEM files. A file named "-" or a missing
// file argument reads standard input.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"gopkg.in/yaml.v3"

	"codello.dev/asn1tree/ber"
	"codello.dev/asn1tree/dump"
)

// CLI is the command line interface of asn1dump.
type CLI struct {
	Verbose  int    `short:"v" type:"counter" help:"Increase log verbosity (-v info, -vv debug)."`
	NoColor  bool   `env:"NO_COLOR" help:"Disable colored log output."`
	Config   string `short:"c" help:"YAML file with decoding options (max-depth, lazy, oid-cache)."`
	MaxDepth int    `default:"-1" help:"Maximum nesting depth. 0 disables the limit. Overrides the config file."`

	Dump    dumpCmd    `cmd:"" help:"Print the structure of encoded data values."`
	Convert convertCmd `cmd:"" help:"Re-encode data values using other encoding rules."`
	OID     oidCmd     `cmd:"" name:"oid" help:"Convert object identifiers between dotted notation and their encoding."`
}

// env holds the state shared by all commands.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logger *slog.Logger
	config ber.DecodeConfig
}

func (e *env) decodeOptions() []ber.Option {
	return append(e.config.Options(), ber.WithLogger(e.logger))
}

func (e *env) dumpOptions() []dump.Option {
	return []dump.Option{
		dump.WithMaxDepth(e.config.MaxDepth),
		dump.WithLogger(e.logger),
		dump.WithDecodeOptions(e.decodeOptions()...),
	}
}

func main() {
	e := &env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := run(os.Args[1:], e); err != nil {
		fmt.Fprintf(os.Stderr, "asn1dump: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command.
func run(args []string, e *env) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("asn1dump"),
		kong.Description("Inspect and convert BER and DER encoded ASN.1 data."),
		kong.Writers(e.stdout, e.stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	e.logger = newLogger(e.stderr, cli.Verbose, cli.NoColor)
	if e.config, err = loadConfig(cli.Config); err != nil {
		return err
	}
	if cli.MaxDepth >= 0 {
		e.config.MaxDepth = cli.MaxDepth
	}
	e.logger.Debug("decoding options", "max-depth", e.config.MaxDepth, "lazy", e.config.Lazy, "oid-cache", e.config.OIDCache)
	return ctx.Run(e)
}

// newLogger returns a logger writing to w. Verbosity 0 logs warnings, 1 adds
// informational records and 2 or more enables debug output.
func newLogger(w io.Writer, verbosity int, noColor bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity >= 2:
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
}

// loadConfig reads the decoding options from the YAML file at path. Options
// missing from the file keep their default values. An empty path yields the
// defaults.
func loadConfig(path string) (ber.DecodeConfig, error) {
	cfg := ber.DefaultDecodeConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.MaxDepth < 0 {
		return cfg, fmt.Errorf("invalid config %s: max-depth must not be negative", path)
	}
	return cfg, nil
}
