// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// Package encryption seals squeak content with AES-256-CBC and commits to the
// data key with a secp256k1 point, so that a candidate key can be checked
// against the header without the key itself ever being published.
package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	// SecretKeyLength is the size of a data key
	SecretKeyLength = 32

	// IVLength is the AES block size
	IVLength = aes.BlockSize

	// PaymentPointLength is the size of a compressed curve point
	PaymentPointLength = 33
)

// DataKey decrypts the content of exactly one squeak.
type DataKey [SecretKeyLength]byte

// IV is the CBC initialization vector.
type IV [IVLength]byte

// PaymentPoint is DataKey·G in compressed form.
type PaymentPoint [PaymentPointLength]byte

var (
	ErrBadPadding     = errors.New("encryption: invalid padding")
	ErrBadCiphertext  = errors.New("encryption: ciphertext is not a multiple of the block size")
	ErrInvalidDataKey = errors.New("encryption: data key is not a valid scalar")
)

// EncryptedLength returns the ciphertext size for n bytes of plaintext.
func EncryptedLength(n int) int {
	return (n/aes.BlockSize + 1) * aes.BlockSize
}

// GenerateDataKey reads a key from r that is a valid, non-zero curve scalar.
// If r is nil, crypto/rand is used.
func GenerateDataKey(r io.Reader) (DataKey, error) {
	if r == nil {
		r = rand.Reader
	}
	var (
		k DataKey
		s btcec.ModNScalar
	)
	for i := 0; i < 128; i++ {
		if _, err := io.ReadFull(r, k[:]); err != nil {
			return DataKey{}, fmt.Errorf("encryption: failed to read data key: %w", err)
		}
		if overflow := s.SetByteSlice(k[:]); !overflow && !s.IsZero() {
			return k, nil
		}
	}
	return DataKey{}, ErrInvalidDataKey
}

// GenerateIV reads a fresh initialization vector from r (crypto/rand if nil).
func GenerateIV(r io.Reader) (IV, error) {
	if r == nil {
		r = rand.Reader
	}
	var iv IV
	if _, err := io.ReadFull(r, iv[:]); err != nil {
		return IV{}, fmt.Errorf("encryption: failed to read iv: %w", err)
	}
	return iv, nil
}

// EncryptContent pads plaintext with PKCS#7 and encrypts it with AES-256-CBC.
func EncryptContent(key DataKey, iv IV, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("encryption: aes.NewCipher: %w", err)
	}

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+padLen)
	copy(padded, plaintext)
	copy(padded[len(plaintext):], bytes.Repeat([]byte{byte(padLen)}, padLen))

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptContent reverses EncryptContent. A wrong key almost always shows up as ErrBadPadding.
func DecryptContent(key DataKey, iv IV, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrBadCiphertext
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("encryption: aes.NewCipher: %w", err)
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(plain, ciphertext)

	padLen := int(plain[len(plain)-1])
	if padLen == 0 || padLen > aes.BlockSize {
		return nil, ErrBadPadding
	}
	for _, b := range plain[len(plain)-padLen:] {
		if int(b) != padLen {
			return nil, ErrBadPadding
		}
	}
	return plain[:len(plain)-padLen], nil
}

// Commit computes key·G. Keys outside of the scalar range never match a
// point produced from a key of GenerateDataKey.
func Commit(key DataKey) PaymentPoint {
	_, pub := btcec.PrivKeyFromBytes(key[:])
	var pp PaymentPoint
	copy(pp[:], pub.SerializeCompressed())
	return pp
}

// VerifyCommitment reports whether key is the preimage of point.
func VerifyCommitment(key DataKey, point PaymentPoint) bool {
	var s btcec.ModNScalar
	if overflow := s.SetByteSlice(key[:]); overflow || s.IsZero() {
		return false
	}
	return Commit(key) == point
}

// ParsePaymentPoint checks that point is a valid compressed curve point.
func ParsePaymentPoint(point PaymentPoint) error {
	if _, err := btcec.ParsePubKey(point[:]); err != nil {
		return fmt.Errorf("encryption: invalid payment point: %w", err)
	}
	return nil
}

func (pp PaymentPoint) IsZero() bool {
	return pp == PaymentPoint{}
}
