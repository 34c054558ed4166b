// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package squeak

import (
	"errors"
	"fmt"
)

type ErrorCode uint8

const (
	// ErrorCodeIntegrity is the generic failure, the encrypted content does not match its header
	ErrorCodeIntegrity ErrorCode = iota
	ErrorCodeHeader
	ErrorCodeSignature
	ErrorCodeDecryptionKey
	ErrorCodeInvalidContentLength
)

func (code ErrorCode) String() string {
	switch code {
	case ErrorCodeIntegrity:
		return "squeak integrity check failed"
	case ErrorCodeHeader:
		return "invalid squeak header"
	case ErrorCodeSignature:
		return "invalid squeak signature"
	case ErrorCodeDecryptionKey:
		return "invalid decryption key"
	case ErrorCodeInvalidContentLength:
		return "invalid content length"
	default:
		return "unknown squeak error"
	}
}

// Error is returned by construction, validation and content decryption of squeaks.
type Error struct {
	Code  ErrorCode
	Cause error
}

// ErrSqueak matches every Error with errors.Is, regardless of its code.
var ErrSqueak = Error{Code: ErrorCodeIntegrity}

func (err Error) Error() string {
	if err.Cause != nil {
		return fmt.Sprintf("squeak: %s: %s", err.Code, err.Cause)
	}
	return "squeak: " + err.Code.String()
}

func (err Error) Unwrap() error { return err.Cause }

// Is makes the cause-less ErrSqueak an umbrella for all codes.
func (err Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok {
		return false
	}
	if t.Code == ErrorCodeIntegrity && t.Cause == nil {
		return true
	}
	return t.Code == err.Code
}

func hasCode(err error, code ErrorCode) bool {
	var serr Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code == code
}

// IsSqueakError reports whether err is any kind of squeak Error.
func IsSqueakError(err error) bool {
	var serr Error
	return errors.As(err, &serr)
}

// IsIntegrityError is true only for the generic content hash mismatch.
func IsIntegrityError(err error) bool { return hasCode(err, ErrorCodeIntegrity) }

func IsHeaderError(err error) bool { return hasCode(err, ErrorCodeHeader) }

func IsSignatureError(err error) bool { return hasCode(err, ErrorCodeSignature) }

func IsDecryptionKeyError(err error) bool { return hasCode(err, ErrorCodeDecryptionKey) }

func IsInvalidContentLength(err error) bool { return hasCode(err, ErrorCodeInvalidContentLength) }
