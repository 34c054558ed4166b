// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package squeak

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/text/unicode/norm"

	"github.com/squeaknode/go-squeak/encryption"
	"github.com/squeaknode/go-squeak/script"
	"github.com/squeaknode/go-squeak/signing"
)

type makeConfig struct {
	replyTo chainhash.Hash
	rand    io.Reader
}

// MakeOption changes how MakeSqueak builds a squeak.
type MakeOption func(*makeConfig)

// ReplyTo makes the new squeak a reply to the squeak with the given hash.
func ReplyTo(hash chainhash.Hash) MakeOption {
	return func(c *makeConfig) {
		c.replyTo = hash
	}
}

// WithRand sets the source for the data key, the iv and the nonce.
func WithRand(r io.Reader) MakeOption {
	return func(c *makeConfig) {
		c.rand = r
	}
}

// MakeSqueak encrypts content, commits to its key and signs the header with key.
// content has to be exactly ContentLength bytes long.
// The returned squeak has its decryption key attached.
func MakeSqueak(
	key *signing.SigningKey,
	content []byte,
	blockHeight int32,
	blockHash chainhash.Hash,
	timestamp uint32,
	opts ...MakeOption,
) (*Squeak, error) {
	if len(content) != ContentLength {
		return nil, Error{
			Code:  ErrorCodeInvalidContentLength,
			Cause: fmt.Errorf("content is %d bytes, expected %d", len(content), ContentLength),
		}
	}

	cfg := makeConfig{rand: rand.Reader}
	for _, o := range opts {
		o(&cfg)
	}

	dataKey, err := encryption.GenerateDataKey(cfg.rand)
	if err != nil {
		return nil, fmt.Errorf("squeak: %w", err)
	}
	iv, err := encryption.GenerateIV(cfg.rand)
	if err != nil {
		return nil, fmt.Errorf("squeak: %w", err)
	}

	enc, err := encryption.EncryptContent(dataKey, iv, content)
	if err != nil {
		return nil, fmt.Errorf("squeak: %w", err)
	}

	if len(enc) != EncContentLength {
		return nil, fmt.Errorf("squeak: ciphertext has %d bytes, expected %d", len(enc), EncContentLength)
	}
	var sqk Squeak
	copy(sqk.EncContent[:], enc)

	var nonce [4]byte
	if _, err := io.ReadFull(cfg.rand, nonce[:]); err != nil {
		return nil, fmt.Errorf("squeak: failed to read nonce: %w", err)
	}

	sqk.Header = Header{
		HashEncContent: chainhash.DoubleHashH(sqk.EncContent[:]),
		HashReplySqk:   cfg.replyTo,
		HashBlock:      blockHash,
		BlockHeight:    blockHeight,
		ScriptPubKey:   key.Address().ScriptPubKey(),
		PaymentPoint:   encryption.Commit(dataKey),
		IV:             iv,
		Time:           timestamp,
		Nonce:          binary.LittleEndian.Uint32(nonce[:]),
	}

	sqk.ScriptSig, err = SignSqueak(key, &sqk.Header)
	if err != nil {
		return nil, err
	}

	sqk.SetDecryptionKey(dataKey)
	return &sqk, nil
}

// MakeSqueakFromStr normalizes text to NFC, encodes it as UTF-8 and pads it with zeros to ContentLength.
func MakeSqueakFromStr(
	key *signing.SigningKey,
	text string,
	blockHeight int32,
	blockHash chainhash.Hash,
	timestamp uint32,
	opts ...MakeOption,
) (*Squeak, error) {
	content, err := EncodeContent(text)
	if err != nil {
		return nil, err
	}
	return MakeSqueak(key, content, blockHeight, blockHash, timestamp, opts...)
}

// EncodeContent turns text into the fixed size plaintext of a squeak.
func EncodeContent(text string) ([]byte, error) {
	normalized := norm.NFC.String(text)
	if len(normalized) > ContentLength {
		return nil, Error{
			Code:  ErrorCodeInvalidContentLength,
			Cause: fmt.Errorf("text is %d bytes, at most %d fit", len(normalized), ContentLength),
		}
	}
	content := make([]byte, ContentLength)
	copy(content, normalized)
	return content, nil
}

// SignSqueak returns the signature script for header, made by key over the signing hash.
func SignSqueak(key *signing.SigningKey, header *Header) ([]byte, error) {
	if key == nil {
		return nil, Error{Code: ErrorCodeSignature, Cause: fmt.Errorf("no signing key")}
	}
	hash := header.SigningHash()
	sig := key.Sign(hash[:])
	return script.MakeSigScript(sig, key.VerifyingKey()), nil
}
