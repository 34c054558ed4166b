// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

//go:build !windows
// +build !windows

package repo

import "os"

// SecretPerms are the file permissions for holding signing keys.
// We expect the file to only be accessable by the owner.
var SecretPerms = os.FileMode(0400)
