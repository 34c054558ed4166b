// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package squeak

import (
	"bytes"
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squeaknode/go-squeak/encryption"
	"github.com/squeaknode/go-squeak/script"
	"github.com/squeaknode/go-squeak/signing"
)

const testBlockHeight = 5678

func newSigningKey(t *testing.T) *signing.SigningKey {
	sk, err := signing.GenerateSigningKey(nil, nil)
	require.NoError(t, err)
	return sk
}

func randomHash(t *testing.T) chainhash.Hash {
	var h chainhash.Hash
	_, err := rand.Read(h[:])
	require.NoError(t, err)
	return h
}

func makeTestSqueak(t *testing.T, sk *signing.SigningKey, text string, opts ...MakeOption) *Squeak {
	sqk, err := MakeSqueakFromStr(sk, text, testBlockHeight, randomHash(t), 1600000000, opts...)
	require.NoError(t, err)
	return sqk
}

func TestMakeSqueak(t *testing.T) {
	r := require.New(t)
	a := assert.New(t)

	sk := newSigningKey(t)
	blockHash := randomHash(t)

	sqk, err := MakeSqueakFromStr(sk, "hello squeak", testBlockHeight, blockHash, 1600000000)
	r.NoError(err)
	r.NoError(CheckSqueak(sqk))

	a.False(sqk.IsReply())
	a.Equal(blockHash, sqk.HashBlock)
	a.EqualValues(testBlockHeight, sqk.BlockHeight)
	a.EqualValues(1600000000, sqk.Time)
	a.True(sqk.HasDecryptionKey())

	addr, err := sqk.Address(&signing.MainNetParams)
	r.NoError(err)
	a.Equal(sk.Address(), addr)

	text, err := sqk.DecryptedContentStr()
	r.NoError(err)
	a.Equal("hello squeak", text)

	content, err := sqk.DecryptedContent()
	r.NoError(err)
	a.Len(content, ContentLength)
}

func TestMakeSqueakReply(t *testing.T) {
	r := require.New(t)

	sk := newSigningKey(t)
	orig := makeTestSqueak(t, sk, "first")

	reply := makeTestSqueak(t, newSigningKey(t), "second", ReplyTo(orig.Hash()))
	r.NoError(CheckSqueak(reply))
	r.True(reply.IsReply())
	r.Equal(orig.Hash(), reply.HashReplySqk)
}

func TestMakeSqueakContentLength(t *testing.T) {
	r := require.New(t)
	sk := newSigningKey(t)

	for _, n := range []int{0, 10, ContentLength - 1, ContentLength + 1} {
		_, err := MakeSqueak(sk, make([]byte, n), testBlockHeight, randomHash(t), 1)
		r.Error(err, "length %d", n)
		r.True(IsInvalidContentLength(err), "length %d: %v", n, err)
		r.True(errors.Is(err, ErrSqueak))
	}

	_, err := MakeSqueakFromStr(sk, strings.Repeat("a", ContentLength+1), testBlockHeight, randomHash(t), 1)
	r.True(IsInvalidContentLength(err))

	// 280 four byte runes fill the content exactly
	sqk, err := MakeSqueakFromStr(sk, strings.Repeat("\U0001F600", 280), testBlockHeight, randomHash(t), 1)
	r.NoError(err)
	r.NoError(CheckSqueak(sqk))
}

func TestMakeSqueakNormalizes(t *testing.T) {
	r := require.New(t)

	sqk := makeTestSqueak(t, newSigningKey(t), "cafe\u0301")
	text, err := sqk.DecryptedContentStr()
	r.NoError(err)
	r.Equal("caf\u00e9", text)
}

func TestMakeSqueakDeterministic(t *testing.T) {
	r := require.New(t)

	sk := newSigningKey(t)
	seed := bytes.Repeat([]byte{0x42}, 128)
	blockHash := randomHash(t)

	mk := func() *Squeak {
		sqk, err := MakeSqueakFromStr(sk, "same", testBlockHeight, blockHash, 12345, WithRand(bytes.NewReader(seed)))
		r.NoError(err)
		return sqk
	}

	one, two := mk(), mk()
	r.Equal(one.Hash(), two.Hash())
	r.True(one.Equal(two))

	_, err := MakeSqueakFromStr(sk, "short", testBlockHeight, blockHash, 12345, WithRand(bytes.NewReader(seed[:20])))
	r.Error(err, "expected error from exhausted random source")
}

func TestCheckSqueakFakeContent(t *testing.T) {
	r := require.New(t)

	sqk := makeTestSqueak(t, newSigningKey(t), "hello")
	sqk.EncContent[42] ^= 0xff

	err := CheckSqueak(sqk)
	r.Error(err)
	r.True(IsIntegrityError(err), "%v", err)
	r.False(IsHeaderError(err))
	r.False(IsSignatureError(err))
	r.True(errors.Is(err, ErrSqueak))
}

func TestCheckSqueakInvalidHeader(t *testing.T) {
	r := require.New(t)

	sqk := makeTestSqueak(t, newSigningKey(t), "hello")
	sqk.ScriptPubKey = nil
	// header checks run before the content check
	sqk.EncContent[0] ^= 0xff

	err := CheckSqueak(sqk)
	r.True(IsHeaderError(err), "%v", err)
	r.True(signing.IsAddressError(err))

	sqk = makeTestSqueak(t, newSigningKey(t), "hello")
	sqk.PaymentPoint = encryption.PaymentPoint{}
	err = CheckSqueak(sqk)
	r.True(IsHeaderError(err), "%v", err)
}

func TestCheckSqueakBadSignature(t *testing.T) {
	r := require.New(t)

	sk := newSigningKey(t)

	sqk := makeTestSqueak(t, sk, "hello")
	var err error
	sqk.ScriptSig, err = SignSqueak(newSigningKey(t), &sqk.Header)
	r.NoError(err)

	err = CheckSqueak(sqk)
	r.True(IsSignatureError(err), "%v", err)
	var serr script.Error
	r.True(errors.As(err, &serr))
	r.Equal(script.ErrorCodeKeyMismatch, serr.Code)

	sqk = makeTestSqueak(t, sk, "hello")
	sqk.Time++
	err = CheckSqueak(sqk)
	r.True(IsSignatureError(err), "%v", err)
	r.True(errors.As(err, &serr))
	r.Equal(script.ErrorCodeBadSignature, serr.Code)

	sqk = makeTestSqueak(t, sk, "hello")
	sqk.ScriptSig = nil
	err = CheckSqueak(sqk)
	r.True(IsSignatureError(err), "%v", err)
}

func TestCheckSqueakDecryptionKey(t *testing.T) {
	r := require.New(t)

	sqk := makeTestSqueak(t, newSigningKey(t), "hello")
	key, ok := sqk.DecryptionKey()
	r.True(ok)

	fake, err := encryption.GenerateDataKey(nil)
	r.NoError(err)
	sqk.SetDecryptionKey(fake)

	err = CheckSqueak(sqk)
	r.True(IsDecryptionKeyError(err), "%v", err)
	r.NoError(CheckSqueak(sqk, SkipDecryptionCheck()))

	_, err = sqk.DecryptedContentStr()
	r.Error(err)

	sqk.ClearDecryptionKey()
	r.False(sqk.HasDecryptionKey())
	err = CheckSqueak(sqk)
	r.True(IsDecryptionKeyError(err), "%v", err)
	r.NoError(CheckSqueak(sqk, SkipDecryptionCheck()))

	_, err = sqk.DecryptedContent()
	r.True(IsDecryptionKeyError(err), "%v", err)

	sqk.SetDecryptionKey(key)
	r.NoError(CheckSqueak(sqk))
	text, err := sqk.DecryptedContentStr()
	r.NoError(err)
	r.Equal("hello", text)
}

func TestHashes(t *testing.T) {
	r := require.New(t)

	sqk := makeTestSqueak(t, newSigningKey(t), "hello")
	hash := sqk.Hash()
	signingHash := sqk.SigningHash()
	r.NotEqual(hash, signingHash)

	sqk.ClearDecryptionKey()
	r.Equal(hash, sqk.Hash(), "decryption key changed the hash")

	other := *sqk
	other.ScriptSig = append([]byte{}, sqk.ScriptSig...)
	other.ScriptSig[len(other.ScriptSig)-1] ^= 0x01
	r.Equal(signingHash, other.SigningHash())
	r.NotEqual(hash, other.Hash())
}

func TestErrorKinds(t *testing.T) {
	a := assert.New(t)

	err := Error{Code: ErrorCodeSignature, Cause: errors.New("nope")}
	a.True(IsSqueakError(err))
	a.True(errors.Is(err, ErrSqueak))
	a.True(errors.Is(err, Error{Code: ErrorCodeSignature}))
	a.False(errors.Is(err, Error{Code: ErrorCodeHeader}))
	a.False(IsIntegrityError(err))
	a.Contains(err.Error(), "nope")

	a.False(IsSqueakError(errors.New("other")))
}
