// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[squeakcli]
network = "testnet"
repo = "/var/lib/squeak"
loglevel = "debug"
nostore = "yes"
workers = 4
`

func writeConfig(t *testing.T, content string) string {
	fname := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(fname, []byte(content), 0600))
	return fname
}

func TestReadConfig(t *testing.T) {
	r := require.New(t)
	a := assert.New(t)

	conf, ok, err := ReadConfigSqueakCli(nil, writeConfig(t, testConfig))
	r.NoError(err)
	r.True(ok)

	a.Equal("testnet", conf.Network)
	a.Equal("/var/lib/squeak", conf.Repo)
	a.Equal("debug", conf.LogLevel)
	a.EqualValues(4, conf.Workers)
	a.True(bool(conf.NoStore))

	a.True(conf.Has("network"))
	a.True(conf.Has("nostore"))
	a.False(conf.Has("debuglis"))
}

func TestReadConfigMissing(t *testing.T) {
	r := require.New(t)

	conf, ok, err := ReadConfigSqueakCli(nil, filepath.Join(t.TempDir(), "nope.toml"))
	r.NoError(err)
	r.False(ok)
	r.False(conf.Has("repo"))

	conf, ok, err = ReadConfigSqueakCli(nil, writeConfig(t, "[other]\nrepo = \"/x\"\n"))
	r.NoError(err)
	r.True(ok)
	r.Empty(conf.Repo)
}

func TestReadConfigInvalid(t *testing.T) {
	_, _, err := ReadConfigSqueakCli(nil, writeConfig(t, "[squeakcli]\nnostore = \"maybe\"\n"))
	require.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	r := require.New(t)

	t.Setenv("SQUEAK_NETWORK", "regtest")
	t.Setenv("SQUEAK_METRICS_ADDRESS", "localhost:6078")
	t.Setenv("SQUEAK_NO_STORE", "0")

	conf, _, err := ReadConfigSqueakCli(nil, writeConfig(t, testConfig))
	r.NoError(err)
	r.NoError(ReadEnvironmentVariables(&conf))

	r.Equal("regtest", conf.Network)
	r.Equal("localhost:6078", conf.MetricsAddress)
	r.True(conf.Has("debuglis"))
	r.False(bool(conf.NoStore))
	r.Equal("/var/lib/squeak", conf.Repo)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	for in, want := range map[string]string{
		"~/.squeak":      filepath.Join(home, ".squeak"),
		".squeak":        filepath.Join(home, ".squeak"),
		"/stuff/.squeak": "/stuff/.squeak",
	} {
		got, err := expandPath(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
