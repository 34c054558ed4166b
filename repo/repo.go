// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// Package repo lays out the files of a squeak node below one directory.
package repo

import (
	"fmt"
	"path/filepath"

	"go.mindeco.de/log"

	"github.com/squeaknode/go-squeak/store"
)

type Interface interface {
	GetPath(...string) string
}

var _ Interface = repo{}

// New creates a new repository value, it doesn't touch the filesystem until something is opened in it.
func New(basePath string) Interface {
	return repo{basePath: basePath}
}

type repo struct {
	basePath string
}

func (r repo) GetPath(rel ...string) string {
	return filepath.Join(append([]string{r.basePath}, rel...)...)
}

// OpenStore opens the squeak database of the repository.
func OpenStore(r Interface, logger log.Logger) (*store.Store, error) {
	st, err := store.Open(r.GetPath("squeaks"), logger)
	if err != nil {
		return nil, fmt.Errorf("repo: failed to open squeak store: %w", err)
	}
	return st, nil
}
