// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codello.dev/asn1tree"
	"codello.dev/asn1tree/dump"
)

// algorithmIdentifier is SEQUENCE { sha256WithRSAEncryption, NULL }.
const algorithmIdentifier = "300d06092a864886f70d01010b0500"

const algorithmIdentifierText = "" +
	"    0:d=0  hl=2 l=  13 cons: Sequence\n" +
	"    2:d=1  hl=2 l=   9 prim:  ObjectIdentifier   :1.2.840.113549.1.1.11\n" +
	"   13:d=1  hl=2 l=   0 prim:  Null               :NULL\n"

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return b
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// runCLI runs asn1dump with the given standard input and arguments.
func runCLI(t *testing.T, stdin []byte, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	e := &env{stdin: bytes.NewReader(stdin), stdout: &out, stderr: &errOut}
	err = run(append([]string{"--no-color"}, args...), e)
	return out.String(), errOut.String(), err
}

func TestDump(t *testing.T) {
	path := writeFile(t, "alg.der", fromHex(t, algorithmIdentifier))
	out, _, err := runCLI(t, nil, "dump", path)
	require.NoError(t, err)
	assert.Equal(t, algorithmIdentifierText, out)
}

func TestDump_stdin(t *testing.T) {
	out, _, err := runCLI(t, fromHex(t, "05 00"), "dump")
	require.NoError(t, err)
	assert.Equal(t, "    0:d=0  hl=2 l=   0 prim: Null                :NULL\n", out)

	_, _, err = runCLI(t, nil, "dump", "-", "-")
	assert.Error(t, err)
}

func TestDump_multipleFiles(t *testing.T) {
	a := writeFile(t, "a.der", fromHex(t, algorithmIdentifier))
	b := writeFile(t, "b.der", fromHex(t, "02 01 05"))

	out, _, err := runCLI(t, nil, "dump", "-j", "1", a, b)
	require.NoError(t, err)
	want := "==> " + a + " <==\n" + algorithmIdentifierText +
		"\n==> " + b + " <==\n" + "    0:d=0  hl=2 l=   1 prim: Integer             :5\n"
	assert.Equal(t, want, out)

	out, _, err = runCLI(t, nil, "dump", "--format=json", a, b)
	require.NoError(t, err)
	dec := json.NewDecoder(strings.NewReader(out))
	var first, second []*dump.Node
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "Sequence", first[0].Name)
	assert.Equal(t, "Integer", second[0].Name)
	assert.False(t, dec.More())
}

func TestDump_pem(t *testing.T) {
	var data bytes.Buffer
	require.NoError(t, pem.Encode(&data, &pem.Block{Type: "ALGORITHM", Bytes: fromHex(t, algorithmIdentifier)}))
	require.NoError(t, pem.Encode(&data, &pem.Block{Type: "NUMBER", Bytes: fromHex(t, "02 01 05")}))
	path := writeFile(t, "input.pem", data.Bytes())

	out, _, err := runCLI(t, nil, "dump", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "==> "+path+" (ALGORITHM) <==\n"+algorithmIdentifierText), "got:\n%s", out)
	assert.Contains(t, out, "\n==> "+path+" (NUMBER) <==\n")

	path = writeFile(t, "broken.pem", []byte("-----BEGIN NOTHING"))
	_, _, err = runCLI(t, nil, "dump", path)
	assert.ErrorIs(t, err, errNoPEMBlock)
}

func TestDump_structured(t *testing.T) {
	path := writeFile(t, "alg.der", fromHex(t, algorithmIdentifier))

	out, _, err := runCLI(t, nil, "dump", "-f", "yaml", path)
	require.NoError(t, err)
	assert.Contains(t, out, "name: ObjectIdentifier")
	assert.Contains(t, out, "value: 1.2.840.113549.1.1.11")

	out, _, err = runCLI(t, nil, "dump", "-f", "cbor", path)
	require.NoError(t, err)
	nodes, err := dump.DecodeCBOR([]byte(out))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Len(t, nodes[0].Children, 2)

	_, _, err = runCLI(t, nil, "dump", "-f", "xml", path)
	assert.Error(t, err)
}

func TestDump_errors(t *testing.T) {
	path := writeFile(t, "short.der", fromHex(t, "30 05 02"))
	_, stderr, err := runCLI(t, nil, "dump", path)
	assert.ErrorIs(t, err, asn1tree.ErrMalformedLength)
	assert.Contains(t, stderr, "malformed input")

	_, _, err = runCLI(t, nil, "dump", filepath.Join(t.TempDir(), "missing.der"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDump_config(t *testing.T) {
	input := writeFile(t, "nested.der", fromHex(t, "30 03 02 01 05"))
	config := writeFile(t, "config.yaml", []byte("max-depth: 1\nlazy: true\n"))

	_, _, err := runCLI(t, nil, "--config", config, "dump", input)
	assert.ErrorIs(t, err, asn1tree.ErrDepthExceeded)

	_, _, err = runCLI(t, nil, "--config", config, "--max-depth=0", "dump", input)
	assert.NoError(t, err)

	config = writeFile(t, "invalid.yaml", []byte("depth: 3\n"))
	_, _, err = runCLI(t, nil, "--config", config, "dump", input)
	assert.Error(t, err)

	config = writeFile(t, "negative.yaml", []byte("max-depth: -1\n"))
	_, _, err = runCLI(t, nil, "--config", config, "dump", input)
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.MaxDepth)
	assert.True(t, cfg.OIDCache)

	path := writeFile(t, "config.yaml", []byte("oid-cache: false\n"))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.MaxDepth)
	assert.False(t, cfg.OIDCache)

	path = writeFile(t, "empty.yaml", nil)
	_, err = loadConfig(path)
	assert.NoError(t, err)
}

func TestConvert(t *testing.T) {
	tests := map[string]struct {
		input string
		args  []string
		want  string
	}{
		"DER":        {"30 80 02 01 05 00 00", nil, "3003020105\n"},
		"BER":        {"30 80 02 01 05 00 00", []string{"-r", "ber"}, "30800201050000\n"},
		"DL":         {"24 80 04 01 AB 04 01 CD 00 00", []string{"--rules=dl"}, "0402ABCD\n"},
		"Multiple":   {"01 01 01 05 00", nil, "0101FF\n0500\n"},
		"SetOrdered": {"31 06 02 01 05 01 01 FF", nil, "31060101FF020105\n"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			args := append([]string{"convert", "--hex"}, tc.args...)
			out, _, err := runCLI(t, fromHex(t, tc.input), args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestConvert_raw(t *testing.T) {
	out, _, err := runCLI(t, fromHex(t, "30 80 02 01 05 00 00"), "convert")
	require.NoError(t, err)
	assert.Equal(t, fromHex(t, "30 03 02 01 05"), []byte(out))

	_, _, err = runCLI(t, fromHex(t, "30 80 02 01 05"), "convert")
	assert.ErrorIs(t, err, asn1tree.ErrUnexpectedEndOfStream)
}

func TestConvert_pem(t *testing.T) {
	var data bytes.Buffer
	require.NoError(t, pem.Encode(&data, &pem.Block{Type: "TEST", Bytes: fromHex(t, "30 80 02 01 05 00 00")}))
	input := writeFile(t, "input.pem", data.Bytes())
	output := filepath.Join(t.TempDir(), "output.pem")

	out, _, err := runCLI(t, nil, "convert", input, "-o", output)
	require.NoError(t, err)
	assert.Empty(t, out)

	b, err := os.ReadFile(output)
	require.NoError(t, err)
	p, rest := pem.Decode(b)
	require.NotNil(t, p)
	assert.Empty(t, bytes.TrimSpace(rest))
	assert.Equal(t, "TEST", p.Type)
	assert.Equal(t, fromHex(t, "30 03 02 01 05"), p.Bytes)
}

func TestOID(t *testing.T) {
	out, _, err := runCLI(t, nil, "oid", "1.2.840.113549", "0x2A03")
	require.NoError(t, err)
	assert.Equal(t, "1.2.840.113549\t06062A864886F70D\n1.2.3\t06022A03\n", out)

	out, _, err = runCLI(t, nil, "oid", "-R", "5.6", "0x0506")
	require.NoError(t, err)
	assert.Equal(t, "5.6\t0D020506\n5.6\t0D020506\n", out)

	_, _, err = runCLI(t, nil, "oid", "1.2.x")
	assert.Error(t, err)
	_, _, err = runCLI(t, nil, "oid", "0x80")
	assert.ErrorIs(t, err, asn1tree.ErrInvalidContent)
}

func TestVerbosity(t *testing.T) {
	path := writeFile(t, "alg.der", fromHex(t, algorithmIdentifier))

	_, stderr, err := runCLI(t, nil, "dump", path)
	require.NoError(t, err)
	assert.Empty(t, stderr)

	_, stderr, err = runCLI(t, nil, "-v", "dump", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "INF dumped")
	assert.NotContains(t, stderr, "DBG")

	_, stderr, err = runCLI(t, nil, "-vv", "dump", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "DBG read input")
}
