// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// squeak-keygen creates a named signing key in a repository and prints its address.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/squeaknode/go-squeak/repo"
	"github.com/squeaknode/go-squeak/signing"
)

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

var (
	repoDir string
	network string
	showWIF bool
)

func init() {
	home, err := os.UserHomeDir()
	check(err)

	flag.StringVar(&repoDir, "repo", filepath.Join(home, ".squeak"), "where to store the key")
	flag.StringVar(&network, "network", signing.MainNetParams.Name, "network of the key (mainnet, testnet or regtest)")
	flag.BoolVar(&showWIF, "wif", false, "also print the secret key in wallet import format")

	flag.Parse()
}

func main() {
	args := flag.Args()

	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s (-network=name, -repo=location) <name>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	params, err := signing.ParamsByName(network)
	check(err)

	r := repo.New(repoDir)

	key, err := repo.NewSigningKey(r, args[0], params)
	check(err)

	fmt.Println(key.Address())
	if showWIF {
		fmt.Println(key)
	}
}
