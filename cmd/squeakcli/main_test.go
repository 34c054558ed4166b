// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	squeak "github.com/squeaknode/go-squeak"
)

const testBlock = "0000000000000000000590fc0f3eba193a278534220b2b37e9849e1a770ca959"

type testCli struct {
	t    *testing.T
	repo string
}

func newTestCli(t *testing.T) *testCli {
	return &testCli{t: t, repo: t.TempDir()}
}

func (tc *testCli) run(stdin string, args ...string) (string, error) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)

	base := []string{"squeakcli",
		"--repo", tc.repo,
		"--config", filepath.Join(tc.repo, "config.toml"),
		"--network", "regtest",
		"--loglevel", "none",
	}
	err := app.Run(append(base, args...))
	return strings.TrimSpace(out.String()), err
}

func (tc *testCli) mustRun(args ...string) string {
	out, err := tc.run("", args...)
	require.NoError(tc.t, err, "squeakcli %v", args)
	return out
}

func decodeOutput(t *testing.T, out string) *squeak.Squeak {
	data, err := hex.DecodeString(out)
	require.NoError(t, err)
	var sqk squeak.Squeak
	require.NoError(t, sqk.UnmarshalBinary(data))
	return &sqk
}

func TestMakeAndDecrypt(t *testing.T) {
	tc := newTestCli(t)
	a := assert.New(t)

	addr := tc.mustRun("address")
	a.NotEmpty(addr)

	out := tc.mustRun("make", "--height", "700000", "--block", testBlock, "--time", "1600000000", "hello", "world")
	sqk := decodeOutput(t, out)
	a.EqualValues(700000, sqk.BlockHeight)
	a.EqualValues(1600000000, sqk.Time)
	a.True(sqk.HasDecryptionKey())
	require.NoError(t, squeak.CheckSqueak(sqk))

	a.Equal("hello world", tc.mustRun("decrypt", sqk.Hash().String()))
	a.Equal("hello world", tc.mustRun("decrypt", out))

	shown := tc.mustRun("show", sqk.Hash().String())
	a.Contains(shown, addr)
	a.Contains(shown, "700,000")
	a.Contains(shown, "unlocked")

	listed := tc.mustRun("list", "--author", addr)
	a.Contains(listed, sqk.Hash().String())

	inv := tc.mustRun("inv")
	a.Contains(inv, sqk.Hash().String())
}

func TestLockUnlock(t *testing.T) {
	tc := newTestCli(t)
	r := require.New(t)

	sqk := decodeOutput(t, tc.mustRun("make", "--block", testBlock, "secret"))
	hash := sqk.Hash().String()
	key, ok := sqk.DecryptionKey()
	r.True(ok)

	tc.mustRun("lock", hash)
	_, err := tc.run("", "decrypt", hash)
	r.Error(err)
	r.Contains(tc.mustRun("show", hash), "locked")

	var wrong [32]byte
	_, err = tc.run("", "unlock", hash, hex.EncodeToString(wrong[:]))
	r.Error(err)
	_, err = tc.run("", "unlock", hash, "abcd")
	r.Error(err)

	tc.mustRun("unlock", hash, hex.EncodeToString(key[:]))
	r.Equal("secret", tc.mustRun("decrypt", hash))

	tc.mustRun("rm", hash)
	_, err = tc.run("", "decrypt", hash)
	r.Error(err)
}

func TestCheckFromStdin(t *testing.T) {
	tc := newTestCli(t)
	r := require.New(t)

	good := tc.mustRun("--nostore", "make", "--block", testBlock, "good")
	locked := decodeOutput(t, tc.mustRun("--nostore", "make", "--block", testBlock, "locked"))
	locked.ClearDecryptionKey()
	lockedData, err := locked.MarshalBinary()
	r.NoError(err)

	out, err := tc.run(good+"\n\n", "check")
	r.NoError(err)
	r.True(strings.HasPrefix(out, "ok "))

	_, err = tc.run(good+"\n"+hex.EncodeToString(lockedData)+"\n", "check")
	r.Error(err)

	out, err = tc.run(hex.EncodeToString(lockedData), "check", "--skip-decryption")
	r.NoError(err)
	r.Contains(out, locked.Hash().String())

	_, err = tc.run("", "check", "not-hex")
	r.Error(err)

	// nothing was stored
	r.Empty(tc.mustRun("list"))
}

func TestImport(t *testing.T) {
	maker := newTestCli(t)
	r := require.New(t)

	var lines []string
	for _, text := range []string{"one", "two", "three"} {
		lines = append(lines, maker.mustRun("--nostore", "make", "--block", testBlock, text))
	}

	bad := decodeOutput(t, lines[1])
	bad.EncContent[0] ^= 0xff
	badData, err := bad.MarshalBinary()
	r.NoError(err)
	lines[1] = hex.EncodeToString(badData)

	tc := newTestCli(t)
	out, err := tc.run(strings.Join(lines, "\n"), "--workers", "2", "import")
	r.NoError(err)
	r.Equal(2, strings.Count(out, "ok "))
	r.Equal(1, strings.Count(out, "invalid "))

	listed := tc.mustRun("list")
	r.Len(strings.Split(listed, "\n"), 2)
	r.NotContains(listed, bad.Hash().String())
}

func TestInitErrors(t *testing.T) {
	tc := newTestCli(t)

	_, err := tc.run("", "--network", "nope", "address")
	assert.Error(t, err)

	_, err = tc.run("", "--loglevel", "chatty", "address")
	assert.Error(t, err)
}
