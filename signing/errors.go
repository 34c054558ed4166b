// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package signing

import (
	"errors"
	"fmt"
)

// KeyDecodeError is returned if bytes or a string do not hold a valid secp256k1 key.
type KeyDecodeError struct {
	Cause error
}

func (err KeyDecodeError) Error() string {
	return fmt.Sprintf("signing: could not decode key: %s", err.Cause)
}

func (err KeyDecodeError) Unwrap() error { return err.Cause }

// AddressError is returned for malformed addresses or pubkey scripts.
type AddressError struct {
	Reason string
	Cause  error
}

func (err AddressError) Error() string {
	if err.Cause != nil {
		return fmt.Sprintf("signing/address: %s: %s", err.Reason, err.Cause)
	}
	return "signing/address: " + err.Reason
}

func (err AddressError) Unwrap() error { return err.Cause }

func IsKeyDecodeError(err error) bool {
	var kde KeyDecodeError
	return errors.As(err, &kde)
}

func IsAddressError(err error) bool {
	var ae AddressError
	return errors.As(err, &ae)
}
