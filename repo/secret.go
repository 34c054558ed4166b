// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.cryptoscope.co/nocomment"

	"github.com/squeaknode/go-squeak/signing"
)

const secretHeader = `# this is your SECRET signing key.
# anyone who has it can publish squeaks in your name.
# never show this to anyone or paste it into a website.
#
# the address below is what your followers see:
`

// the format of a secret file, the private key is in wallet import format
type secretFile struct {
	Network string `json:"network"`
	Address string `json:"address"`
	Private string `json:"private"`
}

// SaveSigningKey writes key to a new file at path with SecretPerms. Existing files are never overwritten.
func SaveSigningKey(key *signing.SigningKey, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("repo: failed to create secret directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, SecretPerms)
	if err != nil {
		return fmt.Errorf("repo: failed to create secret file: %w", err)
	}

	sec := secretFile{
		Network: key.Params().Name,
		Address: key.Address().String(),
		Private: key.String(),
	}
	if err := encodeSecret(f, sec); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("repo: failed to close secret file: %w", err)
	}
	return nil
}

// encodeSecret writes the commented JSON form of a secret.
func encodeSecret(w io.Writer, sec secretFile) error {
	if _, err := io.WriteString(w, secretHeader+"# "+sec.Address+"\n\n"); err != nil {
		return fmt.Errorf("repo: failed to write secret header: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sec); err != nil {
		return fmt.Errorf("repo: json encoding of secret failed: %w", err)
	}
	return nil
}

// LoadSigningKey opens the secret at path. Files readable by others get their permissions fixed.
// If params is nil the network stored in the file is used.
func LoadSigningKey(path string, params *signing.Params) (*signing.SigningKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("repo: could not stat secret file %s: %w", path, err)
	}
	if info.Mode().Perm() != SecretPerms {
		if err := os.Chmod(path, SecretPerms); err != nil {
			return nil, fmt.Errorf("repo: failed to correct permissions of %s: %w", path, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repo: could not open secret file %s: %w", path, err)
	}
	defer f.Close()

	return ParseSigningKey(nocomment.NewReader(f), params)
}

// ParseSigningKey decodes a secret, comment lines have to be stripped already.
func ParseSigningKey(r io.Reader, params *signing.Params) (*signing.SigningKey, error) {
	var sec secretFile
	if err := json.NewDecoder(r).Decode(&sec); err != nil {
		return nil, fmt.Errorf("repo: json decoding of secret failed: %w", err)
	}

	fileParams, err := signing.ParamsByName(sec.Network)
	if err != nil {
		return nil, fmt.Errorf("repo: secret file: %w", err)
	}
	if params == nil {
		params = fileParams
	} else if params.Name != fileParams.Name {
		return nil, fmt.Errorf("repo: secret is for %s, not %s", fileParams.Name, params.Name)
	}

	key, err := signing.ParseSigningKey(sec.Private, params)
	if err != nil {
		return nil, fmt.Errorf("repo: secret file: %w", err)
	}
	if sec.Address != "" && sec.Address != key.Address().String() {
		return nil, fmt.Errorf("repo: secret file address %s does not belong to its key", sec.Address)
	}
	return key, nil
}

// OpenSigningKey loads the default signing key of the repository and creates it on first use.
func OpenSigningKey(r Interface, params *signing.Params) (*signing.SigningKey, error) {
	return OpenNamedSigningKey(r, "", params)
}

// OpenNamedSigningKey is OpenSigningKey for one of the additional keys below secrets/.
func OpenNamedSigningKey(r Interface, name string, params *signing.Params) (*signing.SigningKey, error) {
	secPath := r.GetPath("secret")
	if name != "" {
		secPath = r.GetPath("secrets", name)
	}

	key, err := LoadSigningKey(secPath, params)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("repo: error opening signing key: %w", err)
	}

	key, err = signing.GenerateSigningKey(nil, params)
	if err != nil {
		return nil, fmt.Errorf("repo: failed to generate signing key: %w", err)
	}
	if err := SaveSigningKey(key, secPath); err != nil {
		return nil, fmt.Errorf("repo: failed to save new signing key: %w", err)
	}
	return key, nil
}

// NewSigningKey creates a new key below secrets/ and fails if one with that name exists.
func NewSigningKey(r Interface, name string, params *signing.Params) (*signing.SigningKey, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("repo: invalid key name %q", name)
	}
	key, err := signing.GenerateSigningKey(nil, params)
	if err != nil {
		return nil, fmt.Errorf("repo: failed to generate signing key: %w", err)
	}
	if err := SaveSigningKey(key, r.GetPath("secrets", name)); err != nil {
		return nil, err
	}
	return key, nil
}
