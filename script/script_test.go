// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package script

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squeaknode/go-squeak/signing"
)

func makeHash(t *testing.T) []byte {
	h := make([]byte, 32)
	_, err := rand.Read(h)
	require.NoError(t, err)
	return h
}

type fixture struct {
	key          *signing.SigningKey
	data         []byte
	sigScript    []byte
	pubKeyScript []byte
}

func newFixture(t *testing.T) fixture {
	sk, err := signing.GenerateSigningKey(nil, nil)
	require.NoError(t, err)

	data := makeHash(t)
	return fixture{
		key:          sk,
		data:         data,
		sigScript:    MakeSigScript(sk.Sign(data), sk.VerifyingKey()),
		pubKeyScript: sk.Address().ScriptPubKey(),
	}
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	var serr Error
	require.True(t, errors.As(err, &serr), "not a script error: %v", err)
	require.Equal(t, code, serr.Code, "unexpected error: %v", err)
}

func TestSignVerifyScript(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, VerifyScript(f.sigScript, f.pubKeyScript, f.data))
}

func TestVerifyScriptOtherData(t *testing.T) {
	f := newFixture(t)
	err := VerifyScript(f.sigScript, f.pubKeyScript, makeHash(t))
	requireCode(t, err, ErrorCodeBadSignature)
}

func TestVerifyScriptOtherKey(t *testing.T) {
	f := newFixture(t)
	other := newFixture(t)

	err := VerifyScript(other.sigScript, f.pubKeyScript, f.data)
	requireCode(t, err, ErrorCodeKeyMismatch)
}

func TestVerifyScriptMalformed(t *testing.T) {
	f := newFixture(t)

	err := VerifyScript(f.sigScript, nil, f.data)
	requireCode(t, err, ErrorCodeMalformedPubKeyScript)

	err = VerifyScript(nil, f.pubKeyScript, f.data)
	requireCode(t, err, ErrorCodeMalformedSigScript)

	err = VerifyScript(f.sigScript[:len(f.sigScript)-1], f.pubKeyScript, f.data)
	requireCode(t, err, ErrorCodeMalformedSigScript)

	err = VerifyScript(append(append([]byte{}, f.sigScript...), 0x01), f.pubKeyScript, f.data)
	requireCode(t, err, ErrorCodeMalformedSigScript)
}

func TestParseSigScript(t *testing.T) {
	r := require.New(t)
	f := newFixture(t)

	sig, pub, err := ParseSigScript(f.sigScript)
	r.NoError(err)
	r.Equal(f.key.VerifyingKey().Serialize(), pub)
	r.True(f.key.VerifyingKey().Verify(f.data, sig))
}

func TestPushData(t *testing.T) {
	a := assert.New(t)

	var buf bytes.Buffer
	pushData(&buf, bytes.Repeat([]byte{1}, 75))
	a.Equal(byte(75), buf.Bytes()[0])

	buf.Reset()
	pushData(&buf, bytes.Repeat([]byte{1}, 76))
	a.Equal([]byte{opPushData1, 76}, buf.Bytes()[:2])

	data, rest, err := readPush(buf.Bytes())
	a.NoError(err)
	a.Len(data, 76)
	a.Empty(rest)

	_, _, err = readPush([]byte{opPushData1, 3, 1, 2, 3})
	a.Error(err, "non-minimal push accepted")

	_, _, err = readPush([]byte{0xac})
	a.Error(err, "opcode accepted")
}
