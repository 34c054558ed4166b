// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

//go:build windows
// +build windows

package repo

import "os"

// SecretPerms on windows only knows about the read-only bit
var SecretPerms = os.FileMode(0444)
