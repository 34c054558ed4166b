// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package signing

import "fmt"

// Params holds the version bytes used to encode addresses and secret keys for one network.
type Params struct {
	Name string

	PubKeyHashAddrID byte
	PrivateKeyID     byte
}

var (
	MainNetParams = Params{
		Name:             "mainnet",
		PubKeyHashAddrID: 0x00,
		PrivateKeyID:     0x80,
	}

	TestNetParams = Params{
		Name:             "testnet",
		PubKeyHashAddrID: 0x6f,
		PrivateKeyID:     0xef,
	}

	RegressionNetParams = Params{
		Name:             "regtest",
		PubKeyHashAddrID: 0x6f,
		PrivateKeyID:     0xef,
	}
)

// ParamsByName returns the parameters of a named network
func ParamsByName(name string) (*Params, error) {
	switch name {
	case "", MainNetParams.Name:
		return &MainNetParams, nil
	case TestNetParams.Name:
		return &TestNetParams, nil
	case RegressionNetParams.Name:
		return &RegressionNetParams, nil
	}
	return nil, fmt.Errorf("signing: unknown network %q", name)
}
