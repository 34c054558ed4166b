// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// Package store keeps validated squeaks and their decryption keys in badger.
//
// Squeaks are stored without their key, indexed by identity hash and by block
// height. Keys live in their own keyspace so they can be added and removed
// without touching the squeak.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dgraph-io/badger/v3"
	"go.mindeco.de/log"
	"go.mindeco.de/log/level"

	squeak "github.com/squeaknode/go-squeak"
	"github.com/squeaknode/go-squeak/encryption"
	"github.com/squeaknode/go-squeak/gossip"
)

var (
	ErrNotFound = errors.New("store: squeak not found")
	ErrClosed   = errors.New("store: closed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type Store struct {
	mu     sync.RWMutex
	closed bool

	db     *badger.DB
	logger log.Logger
}

// Open opens or creates the database in dir.
func Open(dir string, logger log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("store: failed to create %q: %w", dir, err)
	}
	return open(badgerOpts(dir), logger)
}

// OpenInMemory returns a store that is lost on Close.
func OpenInMemory(logger log.Logger) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), logger)
}

func open(opts badger.Options, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "module", "store")

	db, err := badger.Open(opts.WithLogger(badgerLogger{log.With(logger, "unit", "badger")}))
	if err != nil {
		return nil, fmt.Errorf("store: failed to open badger: %w", err)
	}

	level.Debug(logger).Log("event", "opened", "dir", opts.Dir, "inmemory", opts.InMemory)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: failed to close badger: %w", err)
	}
	return nil
}

func (s *Store) view(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(fn)
}

// Put validates sqk, without requiring a decryption key, and stores it.
// An attached key is stored too if it opens the payment point, otherwise it is dropped.
// Putting a squeak that is already stored only adds its key.
func (s *Store) Put(sqk *squeak.Squeak) (chainhash.Hash, error) {
	if err := squeak.CheckSqueak(sqk, squeak.SkipDecryptionCheck()); err != nil {
		return chainhash.Hash{}, err
	}
	hash := sqk.Hash()

	var buf bytes.Buffer
	if err := sqk.SerializeWithoutKey(&buf); err != nil {
		return hash, fmt.Errorf("store: failed to encode squeak: %w", err)
	}

	key, hasKey := sqk.DecryptionKey()
	if hasKey && !encryption.VerifyCommitment(key, sqk.PaymentPoint) {
		level.Debug(s.logger).Log("event", "dropping invalid key", "hash", hash)
		hasKey = false
	}

	err := s.update(func(txn *badger.Txn) error {
		_, err := txn.Get(squeakKey(hash))
		switch {
		case err == nil:
		case errors.Is(err, badger.ErrKeyNotFound):
			if err := txn.Set(squeakKey(hash), buf.Bytes()); err != nil {
				return err
			}
			if err := txn.Set(heightKey(sqk.BlockHeight, hash), nil); err != nil {
				return err
			}
		default:
			return err
		}

		if hasKey {
			return txn.Set(decryptionKeyKey(hash), key[:])
		}
		return nil
	})
	if err != nil {
		return hash, fmt.Errorf("store: failed to put %s: %w", hash, err)
	}

	level.Debug(s.logger).Log("event", "stored", "hash", hash, "height", sqk.BlockHeight, "key", hasKey)
	return hash, nil
}

// Get returns the squeak with its decryption key attached, if one is stored.
func (s *Store) Get(hash chainhash.Hash) (*squeak.Squeak, error) {
	var sqk squeak.Squeak
	err := s.view(func(txn *badger.Txn) error {
		if err := getSqueak(txn, hash, &sqk); err != nil {
			return err
		}

		item, err := txn.Get(decryptionKeyKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != encryption.SecretKeyLength {
				return fmt.Errorf("stored key has %d bytes", len(val))
			}
			var key encryption.DataKey
			copy(key[:], val)
			sqk.SetDecryptionKey(key)
			return nil
		})
	})
	if err != nil {
		return nil, wrapErr(hash, err)
	}
	return &sqk, nil
}

func getSqueak(txn *badger.Txn, hash chainhash.Hash, sqk *squeak.Squeak) error {
	item, err := txn.Get(squeakKey(hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return item.Value(sqk.UnmarshalBinary)
}

func getHeader(txn *badger.Txn, hash chainhash.Hash, h *squeak.Header) error {
	item, err := txn.Get(squeakKey(hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return h.Deserialize(bytes.NewReader(val))
	})
}

func wrapErr(hash chainhash.Hash, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrClosed) || squeak.IsSqueakError(err) {
		return err
	}
	return fmt.Errorf("store: %s: %w", hash, err)
}

func (s *Store) Has(hash chainhash.Hash) (bool, error) {
	err := s.view(func(txn *badger.Txn) error {
		_, err := txn.Get(squeakKey(hash))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(hash, err)
	}
	return true, nil
}

// Delete removes the squeak, its height index and its key.
func (s *Store) Delete(hash chainhash.Hash) error {
	err := s.update(func(txn *badger.Txn) error {
		var h squeak.Header
		if err := getHeader(txn, hash, &h); err != nil {
			return err
		}
		for _, k := range [][]byte{squeakKey(hash), heightKey(h.BlockHeight, hash), decryptionKeyKey(hash)} {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapErr(hash, err)
	}
	level.Debug(s.logger).Log("event", "deleted", "hash", hash)
	return nil
}

// SetDecryptionKey stores key for the squeak after checking it against its payment point.
func (s *Store) SetDecryptionKey(hash chainhash.Hash, key encryption.DataKey) error {
	err := s.update(func(txn *badger.Txn) error {
		var h squeak.Header
		if err := getHeader(txn, hash, &h); err != nil {
			return err
		}
		if !encryption.VerifyCommitment(key, h.PaymentPoint) {
			return squeak.Error{Code: squeak.ErrorCodeDecryptionKey, Cause: fmt.Errorf("key does not match payment point of %s", hash)}
		}
		return txn.Set(decryptionKeyKey(hash), key[:])
	})
	return wrapErr(hash, err)
}

func (s *Store) ClearDecryptionKey(hash chainhash.Hash) error {
	err := s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(squeakKey(hash)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(decryptionKeyKey(hash))
	})
	return wrapErr(hash, err)
}

// Lookup returns the hashes of all squeaks matched by the locator, ordered by block height and hash.
func (s *Store) Lookup(locator *gossip.Locator) ([]chainhash.Hash, error) {
	var hashes []chainhash.Hash
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{prefixHeight}

		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(opts.Prefix); iter.ValidForPrefix(opts.Prefix); iter.Next() {
			hash, err := hashFromKey(iter.Item().Key())
			if err != nil {
				return err
			}

			var hdr squeak.Header
			if err := getHeader(txn, hash, &hdr); err != nil {
				return fmt.Errorf("height index points to %s: %w", hash, err)
			}
			if locator.Matches(&hdr) {
				hashes = append(hashes, hash)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: lookup failed: %w", err)
	}
	return hashes, nil
}

// Inventory lists every stored squeak, ordered by hash.
func (s *Store) Inventory() (gossip.InvList, error) {
	var invs gossip.InvList
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{prefixSqueak}

		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(opts.Prefix); iter.ValidForPrefix(opts.Prefix); iter.Next() {
			hash, err := hashFromKey(iter.Item().Key())
			if err != nil {
				return err
			}
			invs = append(invs, gossip.NewInv(gossip.InvTypeSqueak, hash))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: inventory failed: %w", err)
	}
	return invs, nil
}
