// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// keyspaces of the database
const (
	prefixSqueak byte = iota + 1
	prefixDecryptionKey
	prefixHeight
)

func squeakKey(hash chainhash.Hash) []byte {
	return append([]byte{prefixSqueak}, hash[:]...)
}

func decryptionKeyKey(hash chainhash.Hash) []byte {
	return append([]byte{prefixDecryptionKey}, hash[:]...)
}

// heightKey sorts by block height first, negative heights included, then by hash.
func heightKey(height int32, hash chainhash.Hash) []byte {
	k := make([]byte, 1+4+chainhash.HashSize)
	k[0] = prefixHeight
	binary.BigEndian.PutUint32(k[1:5], uint32(height)^(1<<31))
	copy(k[5:], hash[:])
	return k
}

func hashFromKey(k []byte) (chainhash.Hash, error) {
	var hash chainhash.Hash
	if len(k) < chainhash.HashSize {
		return hash, fmt.Errorf("store: key of %d bytes is too short", len(k))
	}
	copy(hash[:], k[len(k)-chainhash.HashSize:])
	return hash, nil
}
