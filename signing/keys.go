// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// Package signing holds the secp256k1 keys squeaks are signed with and the
// pay-to-pubkey-hash addresses derived from them.
package signing

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/ripemd160"
)

const (
	// PubKeyLength is the size of a compressed verifying key
	PubKeyLength = 33

	// PrivKeyLength is the size of a serialized signing key scalar
	PrivKeyLength = 32

	// PubKeyHashLength is the size of Hash160(pubkey)
	PubKeyHashLength = ripemd160.Size

	compressedFlag = 0x01
)

// SigningKey is the private half of an author identity.
type SigningKey struct {
	key    *btcec.PrivateKey
	params *Params
}

// VerifyingKey is the public half of an author identity.
type VerifyingKey struct {
	key *btcec.PublicKey
}

// GenerateSigningKey creates a fresh key for the given network.
// If r is nil, crypto/rand is used.
func GenerateSigningKey(r io.Reader, params *Params) (*SigningKey, error) {
	if r == nil {
		r = rand.Reader
	}
	if params == nil {
		params = &MainNetParams
	}

	scalar, err := randomScalar(r)
	if err != nil {
		return nil, fmt.Errorf("signing: failed to generate key: %w", err)
	}

	priv, _ := btcec.PrivKeyFromBytes(scalar)
	return &SigningKey{key: priv, params: params}, nil
}

// randomScalar reads 32 byte candidates from r until one is a valid, non-zero scalar of the curve order.
func randomScalar(r io.Reader) ([]byte, error) {
	var (
		buf [PrivKeyLength]byte
		s   btcec.ModNScalar
	)
	for i := 0; i < 128; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		overflow := s.SetByteSlice(buf[:])
		if !overflow && !s.IsZero() {
			return buf[:], nil
		}
	}
	return nil, errors.New("random source keeps producing invalid scalars")
}

// NewSigningKey wraps an existing 32 byte scalar
func NewSigningKey(raw []byte, params *Params) (*SigningKey, error) {
	if len(raw) != PrivKeyLength {
		return nil, KeyDecodeError{Cause: fmt.Errorf("expected %d bytes, got %d", PrivKeyLength, len(raw))}
	}
	var s btcec.ModNScalar
	if overflow := s.SetByteSlice(raw); overflow || s.IsZero() {
		return nil, KeyDecodeError{Cause: errors.New("scalar out of range")}
	}
	if params == nil {
		params = &MainNetParams
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return &SigningKey{key: priv, params: params}, nil
}

// ParseSigningKey decodes the WIF string produced by String.
func ParseSigningKey(wif string, params *Params) (*SigningKey, error) {
	if params == nil {
		params = &MainNetParams
	}
	payload, version, err := base58.CheckDecode(wif)
	if err != nil {
		return nil, KeyDecodeError{Cause: err}
	}
	if version != params.PrivateKeyID {
		return nil, KeyDecodeError{Cause: fmt.Errorf("version byte 0x%02x is not for %s", version, params.Name)}
	}
	if len(payload) != PrivKeyLength+1 || payload[PrivKeyLength] != compressedFlag {
		return nil, KeyDecodeError{Cause: errors.New("expected a compressed key")}
	}
	return NewSigningKey(payload[:PrivKeyLength], params)
}

// String encodes the key in wallet import format.
func (sk *SigningKey) String() string {
	payload := make([]byte, 0, PrivKeyLength+1)
	payload = append(payload, sk.key.Serialize()...)
	payload = append(payload, compressedFlag)
	return base58.CheckEncode(payload, sk.params.PrivateKeyID)
}

// Bytes returns the raw scalar
func (sk *SigningKey) Bytes() []byte {
	return sk.key.Serialize()
}

func (sk *SigningKey) Params() *Params {
	return sk.params
}

func (sk *SigningKey) VerifyingKey() *VerifyingKey {
	return &VerifyingKey{key: sk.key.PubKey()}
}

// Address is a shorthand for AddressFromVerifyingKey with the key's network.
func (sk *SigningKey) Address() Address {
	return AddressFromVerifyingKey(sk.VerifyingKey(), sk.params)
}

// Sign creates a deterministic (RFC6979), DER encoded ECDSA signature over hash.
func (sk *SigningKey) Sign(hash []byte) []byte {
	return ecdsa.Sign(sk.key, hash).Serialize()
}

// ParseVerifyingKey decodes a compressed or uncompressed secp256k1 point.
func ParseVerifyingKey(b []byte) (*VerifyingKey, error) {
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, KeyDecodeError{Cause: err}
	}
	return &VerifyingKey{key: pub}, nil
}

// Serialize returns the compressed, PubKeyLength bytes long encoding.
func (vk *VerifyingKey) Serialize() []byte {
	return vk.key.SerializeCompressed()
}

// Verify checks a DER signature over hash. Malformed signatures simply don't verify.
func (vk *VerifyingKey) Verify(hash, sig []byte) bool {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(hash, vk.key)
}

func (vk *VerifyingKey) Equal(o *VerifyingKey) bool {
	if vk == nil || o == nil {
		return vk == o
	}
	return vk.key.IsEqual(o.key)
}

// PubKeyHash returns Hash160 of the compressed encoding.
func (vk *VerifyingKey) PubKeyHash() [PubKeyHashLength]byte {
	return Hash160(vk.Serialize())
}

// Hash160 computes RIPEMD160(SHA256(b)).
func Hash160(b []byte) [PubKeyHashLength]byte {
	sh := sha256.Sum256(b)
	rh := ripemd160.New()
	rh.Write(sh[:])

	var out [PubKeyHashLength]byte
	copy(out[:], rh.Sum(nil))
	return out
}
