// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package squeak

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/squeaknode/go-squeak/encryption"
	"github.com/squeaknode/go-squeak/script"
	"github.com/squeaknode/go-squeak/signing"
)

type checkConfig struct {
	skipDecryption bool
}

// CheckOption changes which stages CheckSqueak runs.
type CheckOption func(*checkConfig)

// SkipDecryptionCheck accepts squeaks without a (matching) decryption key.
func SkipDecryptionCheck() CheckOption {
	return func(c *checkConfig) {
		c.skipDecryption = true
	}
}

var errHashMismatch = errors.New("encrypted content does not match hashEncContent")

// CheckSqueak validates s in four stages and returns the error of the first that fails:
// the header has to be well formed, the encrypted content has to match its hash,
// the signature script has to authorize the signing hash and, unless skipped,
// the attached decryption key has to be the preimage of the payment point.
func CheckSqueak(s *Squeak, opts ...CheckOption) error {
	var cfg checkConfig
	for _, o := range opts {
		o(&cfg)
	}

	if err := checkHeader(&s.Header); err != nil {
		return Error{Code: ErrorCodeHeader, Cause: err}
	}

	if chainhash.DoubleHashH(s.EncContent[:]) != s.HashEncContent {
		return Error{Code: ErrorCodeIntegrity, Cause: errHashMismatch}
	}

	hash := s.SigningHash()
	if err := script.VerifyScript(s.ScriptSig, s.ScriptPubKey, hash[:]); err != nil {
		return Error{Code: ErrorCodeSignature, Cause: err}
	}

	if cfg.skipDecryption {
		return nil
	}
	key, ok := s.DecryptionKey()
	if !ok {
		return Error{Code: ErrorCodeDecryptionKey, Cause: errNoDecryptionKey}
	}
	if !encryption.VerifyCommitment(key, s.PaymentPoint) {
		return Error{Code: ErrorCodeDecryptionKey, Cause: fmt.Errorf("key does not match payment point")}
	}
	return nil
}

func checkHeader(h *Header) error {
	if _, err := signing.PubKeyHashFromScript(h.ScriptPubKey); err != nil {
		return err
	}
	if err := encryption.ParsePaymentPoint(h.PaymentPoint); err != nil {
		return err
	}
	return nil
}
