// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// Package script implements the two-push authorization scripts of squeaks.
//
// A signature script is <signature> <verifying key>, a pubkey script is the
// pay-to-pubkey-hash template produced by signing.Address. There is no
// interpreter: VerifyScript parses both and runs the two checks directly.
package script

import (
	"bytes"
	"fmt"

	"github.com/squeaknode/go-squeak/signing"
)

const (
	opPushData1 = 0x4c

	// maxDirectPush is the largest push encoded by its length byte alone
	maxDirectPush = 0x4b
)

type ErrorCode uint8

const (
	ErrorCodeMalformedPubKeyScript ErrorCode = iota
	ErrorCodeMalformedSigScript
	ErrorCodeKeyMismatch
	ErrorCodeBadSignature
)

func (code ErrorCode) String() string {
	switch code {
	case ErrorCodeMalformedPubKeyScript:
		return "malformed pubkey script"
	case ErrorCodeMalformedSigScript:
		return "malformed signature script"
	case ErrorCodeKeyMismatch:
		return "key does not match script"
	case ErrorCodeBadSignature:
		return "signature verification failed"
	default:
		return "unknown script error"
	}
}

// Error is returned by every failing script operation.
type Error struct {
	Code  ErrorCode
	Cause error
}

func (err Error) Error() string {
	if err.Cause != nil {
		return fmt.Sprintf("script: %s: %s", err.Code, err.Cause)
	}
	return "script: " + err.Code.String()
}

func (err Error) Unwrap() error { return err.Cause }

// MakeSigScript pushes the signature followed by the compressed verifying key.
func MakeSigScript(sig []byte, vk *signing.VerifyingKey) []byte {
	var buf bytes.Buffer
	pushData(&buf, sig)
	pushData(&buf, vk.Serialize())
	return buf.Bytes()
}

func pushData(buf *bytes.Buffer, data []byte) {
	switch n := len(data); {
	case n <= maxDirectPush:
		buf.WriteByte(byte(n))
	case n <= 0xff:
		buf.WriteByte(opPushData1)
		buf.WriteByte(byte(n))
	default:
		// signatures and keys are far below this
		panic(fmt.Sprintf("script: push of %d bytes not supported", n))
	}
	buf.Write(data)
}

// ParseSigScript returns the two pushes of a signature script.
func ParseSigScript(sigScript []byte) (sig, pubKey []byte, err error) {
	rest := sigScript
	sig, rest, err = readPush(rest)
	if err != nil {
		return nil, nil, Error{Code: ErrorCodeMalformedSigScript, Cause: fmt.Errorf("signature push: %w", err)}
	}
	pubKey, rest, err = readPush(rest)
	if err != nil {
		return nil, nil, Error{Code: ErrorCodeMalformedSigScript, Cause: fmt.Errorf("key push: %w", err)}
	}
	if len(rest) != 0 {
		return nil, nil, Error{Code: ErrorCodeMalformedSigScript, Cause: fmt.Errorf("%d trailing bytes", len(rest))}
	}
	return sig, pubKey, nil
}

func readPush(script []byte) (data, rest []byte, err error) {
	if len(script) == 0 {
		return nil, nil, fmt.Errorf("script ended early")
	}

	op := script[0]
	script = script[1:]

	var n int
	switch {
	case op == 0:
		return nil, nil, fmt.Errorf("empty push")
	case op <= maxDirectPush:
		n = int(op)
	case op == opPushData1:
		if len(script) == 0 {
			return nil, nil, fmt.Errorf("OP_PUSHDATA1 without length")
		}
		n = int(script[0])
		if n <= maxDirectPush {
			return nil, nil, fmt.Errorf("non-minimal OP_PUSHDATA1 of %d bytes", n)
		}
		script = script[1:]
	default:
		return nil, nil, fmt.Errorf("unsupported opcode 0x%02x", op)
	}

	if len(script) < n {
		return nil, nil, fmt.Errorf("push of %d bytes but only %d left", n, len(script))
	}
	return script[:n], script[n:], nil
}

// VerifyScript checks that sigScript holds a key matching the hash committed
// to in pubKeyScript and a valid signature over hash by that key.
func VerifyScript(sigScript, pubKeyScript, hash []byte) error {
	pkh, err := signing.PubKeyHashFromScript(pubKeyScript)
	if err != nil {
		return Error{Code: ErrorCodeMalformedPubKeyScript, Cause: err}
	}

	sig, pubKey, err := ParseSigScript(sigScript)
	if err != nil {
		return err
	}

	if signing.Hash160(pubKey) != pkh {
		return Error{Code: ErrorCodeKeyMismatch}
	}

	vk, err := signing.ParseVerifyingKey(pubKey)
	if err != nil {
		return Error{Code: ErrorCodeBadSignature, Cause: err}
	}
	if !vk.Verify(hash, sig) {
		return Error{Code: ErrorCodeBadSignature}
	}
	return nil
}
