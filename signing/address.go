// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package signing

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// the opcodes of the pay-to-pubkey-hash template
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac

	// PubKeyScriptLength is the size of a DUP HASH160 <20> EQUALVERIFY CHECKSIG script
	PubKeyScriptLength = 3 + PubKeyHashLength + 2
)

// Address identifies an author by the hash of their verifying key.
// It is a comparable value.
type Address struct {
	hash  [PubKeyHashLength]byte
	netID byte
}

// AddressFromVerifyingKey hashes the compressed key.
func AddressFromVerifyingKey(vk *VerifyingKey, params *Params) Address {
	if params == nil {
		params = &MainNetParams
	}
	return Address{hash: vk.PubKeyHash(), netID: params.PubKeyHashAddrID}
}

// AddressFromPubKeyHash wraps an already computed Hash160.
func AddressFromPubKeyHash(hash []byte, params *Params) (Address, error) {
	if len(hash) != PubKeyHashLength {
		return Address{}, AddressError{Reason: fmt.Sprintf("pubkey hash must be %d bytes, got %d", PubKeyHashLength, len(hash))}
	}
	if params == nil {
		params = &MainNetParams
	}
	var a Address
	copy(a.hash[:], hash)
	a.netID = params.PubKeyHashAddrID
	return a, nil
}

// AddressFromScriptPubKey extracts the address a pay-to-pubkey-hash script commits to.
func AddressFromScriptPubKey(script []byte, params *Params) (Address, error) {
	hash, err := PubKeyHashFromScript(script)
	if err != nil {
		return Address{}, err
	}
	return AddressFromPubKeyHash(hash[:], params)
}

// DecodeAddress parses the base58check string form.
func DecodeAddress(s string, params *Params) (Address, error) {
	if params == nil {
		params = &MainNetParams
	}
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return Address{}, AddressError{Reason: "invalid base58check string", Cause: err}
	}
	if version != params.PubKeyHashAddrID {
		return Address{}, AddressError{Reason: fmt.Sprintf("version byte 0x%02x is not a %s address", version, params.Name)}
	}
	return AddressFromPubKeyHash(payload, params)
}

func (a Address) String() string {
	return base58.CheckEncode(a.hash[:], a.netID)
}

// PubKeyHash returns the hash160 the address is made of
func (a Address) PubKeyHash() [PubKeyHashLength]byte {
	return a.hash
}

// ScriptPubKey returns the pay-to-pubkey-hash script for this address.
func (a Address) ScriptPubKey() []byte {
	return PayToPubKeyHash(a.hash)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText only accepts mainnet addresses, use DecodeAddress for others.
func (a *Address) UnmarshalText(text []byte) (err error) {
	*a, err = DecodeAddress(string(text), &MainNetParams)
	return
}

// PayToPubKeyHash builds DUP HASH160 <hash> EQUALVERIFY CHECKSIG.
func PayToPubKeyHash(hash [PubKeyHashLength]byte) []byte {
	script := make([]byte, 0, PubKeyScriptLength)
	script = append(script, opDup, opHash160, PubKeyHashLength)
	script = append(script, hash[:]...)
	script = append(script, opEqualVerify, opCheckSig)
	return script
}

// PubKeyHashFromScript returns the hash committed to by a pay-to-pubkey-hash script.
// Anything other than exactly that template is an AddressError.
func PubKeyHashFromScript(script []byte) ([PubKeyHashLength]byte, error) {
	var hash [PubKeyHashLength]byte
	if len(script) == 0 {
		return hash, AddressError{Reason: "empty pubkey script"}
	}
	if len(script) != PubKeyScriptLength {
		return hash, AddressError{Reason: fmt.Sprintf("pubkey script has %d bytes, expected %d", len(script), PubKeyScriptLength)}
	}
	if script[0] != opDup || script[1] != opHash160 || script[2] != PubKeyHashLength ||
		script[23] != opEqualVerify || script[24] != opCheckSig {
		return hash, AddressError{Reason: "not a pay-to-pubkey-hash script"}
	}
	copy(hash[:], script[3:3+PubKeyHashLength])
	return hash, nil
}
