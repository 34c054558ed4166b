// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// Package squeak defines the signed, encrypted and chain anchored message format.
//
// A squeak is a Header, which is signed by its author, plus a fixed size
// encrypted body. The symmetric key that decrypts the body is committed to in
// the header as a curve point and can be attached to a squeak separately;
// whether a key is attached never changes the hash of a squeak.
package squeak

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/squeaknode/go-squeak/encryption"
	"github.com/squeaknode/go-squeak/signing"
)

const (
	// HashLength is the size of every hash in a squeak
	HashLength = chainhash.HashSize

	// ContentLength is the exact size of the plaintext of a squeak
	ContentLength = 1120

	// EncContentLength is the ciphertext size of ContentLength bytes
	EncContentLength = 1136

	SecretKeyLength    = encryption.SecretKeyLength
	PubKeyLength       = signing.PubKeyLength
	PaymentPointLength = encryption.PaymentPointLength
	IVLength           = encryption.IVLength
)

// ZeroHash as HashReplySqk marks a squeak that is not a reply.
var ZeroHash chainhash.Hash

var errNoDecryptionKey = errors.New("no decryption key attached")

// Header is the signed part of a squeak.
type Header struct {
	HashEncContent chainhash.Hash
	HashReplySqk   chainhash.Hash
	HashBlock      chainhash.Hash
	BlockHeight    int32
	ScriptPubKey   []byte
	PaymentPoint   encryption.PaymentPoint
	IV             encryption.IV
	Time           uint32
	Nonce          uint32
	ScriptSig      []byte
}

// EncContent is the encrypted body of a squeak.
type EncContent [EncContentLength]byte

// Squeak is a header and its encrypted content.
//
// The decryption key is local state. It can be attached, replaced and cleared
// without changing any hash. Callers sharing a squeak must serialize access to it.
type Squeak struct {
	Header
	EncContent EncContent

	decryptionKey *encryption.DataKey
}

// SigningHash is the double-SHA256 of the header without its signature script.
func (h *Header) SigningHash() chainhash.Hash {
	var buf bytes.Buffer
	if err := h.serializeUnsigned(&buf); err != nil {
		// writes to a bytes.Buffer only fail when running out of memory
		panic(err)
	}
	return chainhash.DoubleHashH(buf.Bytes())
}

// Hash is the identity of a squeak, it covers the complete header.
func (h *Header) Hash() chainhash.Hash {
	var buf bytes.Buffer
	if err := h.Serialize(&buf); err != nil {
		panic(err)
	}
	return chainhash.DoubleHashH(buf.Bytes())
}

func (h *Header) IsReply() bool {
	return h.HashReplySqk != ZeroHash
}

// Address returns the author address committed to by the pubkey script.
func (h *Header) Address(params *signing.Params) (signing.Address, error) {
	return signing.AddressFromScriptPubKey(h.ScriptPubKey, params)
}

func (h *Header) Equal(o *Header) bool {
	return h.HashEncContent == o.HashEncContent &&
		h.HashReplySqk == o.HashReplySqk &&
		h.HashBlock == o.HashBlock &&
		h.BlockHeight == o.BlockHeight &&
		bytes.Equal(h.ScriptPubKey, o.ScriptPubKey) &&
		h.PaymentPoint == o.PaymentPoint &&
		h.IV == o.IV &&
		h.Time == o.Time &&
		h.Nonce == o.Nonce &&
		bytes.Equal(h.ScriptSig, o.ScriptSig)
}

func (h Header) String() string {
	return fmt.Sprintf("squeak(%s) height:%d time:%d reply:%v", h.Hash(), h.BlockHeight, h.Time, h.IsReply())
}

// Hash is the identity hash of the header.
func (s *Squeak) Hash() chainhash.Hash {
	return s.Header.Hash()
}

// Equal compares header, content and the attached decryption key, the same
// data that Serialize writes.
func (s *Squeak) Equal(o *Squeak) bool {
	if !s.Header.Equal(&o.Header) || s.EncContent != o.EncContent {
		return false
	}
	if s.decryptionKey == nil || o.decryptionKey == nil {
		return s.decryptionKey == o.decryptionKey
	}
	return *s.decryptionKey == *o.decryptionKey
}

// DecryptionKey returns a copy of the attached key.
func (s *Squeak) DecryptionKey() (encryption.DataKey, bool) {
	if s.decryptionKey == nil {
		return encryption.DataKey{}, false
	}
	return *s.decryptionKey, true
}

func (s *Squeak) HasDecryptionKey() bool {
	return s.decryptionKey != nil
}

// SetDecryptionKey attaches key without checking it, see CheckSqueak for that.
func (s *Squeak) SetDecryptionKey(key encryption.DataKey) {
	s.decryptionKey = &key
}

func (s *Squeak) ClearDecryptionKey() {
	s.decryptionKey = nil
}

// DecryptedContent returns the ContentLength bytes of plaintext, padding included.
func (s *Squeak) DecryptedContent() ([]byte, error) {
	if s.decryptionKey == nil {
		return nil, Error{Code: ErrorCodeDecryptionKey, Cause: errNoDecryptionKey}
	}
	plain, err := encryption.DecryptContent(*s.decryptionKey, s.IV, s.EncContent[:])
	if err != nil {
		return nil, Error{Code: ErrorCodeDecryptionKey, Cause: err}
	}
	return plain, nil
}

// DecryptedContentStr returns the plaintext as a string, with the zero padding stripped.
func (s *Squeak) DecryptedContentStr() (string, error) {
	plain, err := s.DecryptedContent()
	if err != nil {
		return "", err
	}
	plain = bytes.TrimRight(plain, "\x00")
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("squeak: decrypted content is not valid utf-8")
	}
	return string(plain), nil
}
