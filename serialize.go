// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package squeak

import (
	"bytes"
	"fmt"
	"io"

	"github.com/squeaknode/go-squeak/encryption"
	"github.com/squeaknode/go-squeak/internal/encoding"
)

// maxScriptLength bounds both scripts when decoding
const maxScriptLength = 10000

func (h *Header) serializeUnsigned(w io.Writer) error {
	for _, hash := range [][]byte{h.HashEncContent[:], h.HashReplySqk[:], h.HashBlock[:]} {
		if _, err := w.Write(hash); err != nil {
			return err
		}
	}
	if err := encoding.WriteInt32(w, h.BlockHeight); err != nil {
		return err
	}
	if err := encoding.WriteVarBytes(w, h.ScriptPubKey); err != nil {
		return err
	}
	if _, err := w.Write(h.PaymentPoint[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.IV[:]); err != nil {
		return err
	}
	if err := encoding.WriteUint32(w, h.Time); err != nil {
		return err
	}
	return encoding.WriteUint32(w, h.Nonce)
}

// Serialize writes the header in wire format.
func (h *Header) Serialize(w io.Writer) error {
	if err := h.serializeUnsigned(w); err != nil {
		return err
	}
	return encoding.WriteVarBytes(w, h.ScriptSig)
}

// Deserialize reads a header written by Serialize.
func (h *Header) Deserialize(r io.Reader) error {
	var (
		nh  Header
		err error
	)

	if err = encoding.ReadFixed(r, nh.HashEncContent[:], "hashEncContent"); err != nil {
		return err
	}
	if err = encoding.ReadFixed(r, nh.HashReplySqk[:], "hashReplySqk"); err != nil {
		return err
	}
	if err = encoding.ReadFixed(r, nh.HashBlock[:], "hashBlock"); err != nil {
		return err
	}
	if nh.BlockHeight, err = encoding.ReadInt32(r); err != nil {
		return fmt.Errorf("squeak: reading block height: %w", err)
	}
	if nh.ScriptPubKey, err = encoding.ReadVarBytes(r, maxScriptLength, "scriptPubKey"); err != nil {
		return err
	}
	if err = encoding.ReadFixed(r, nh.PaymentPoint[:], "paymentPoint"); err != nil {
		return err
	}
	if err = encoding.ReadFixed(r, nh.IV[:], "iv"); err != nil {
		return err
	}
	if nh.Time, err = encoding.ReadUint32(r); err != nil {
		return fmt.Errorf("squeak: reading time: %w", err)
	}
	if nh.Nonce, err = encoding.ReadUint32(r); err != nil {
		return fmt.Errorf("squeak: reading nonce: %w", err)
	}
	if nh.ScriptSig, err = encoding.ReadVarBytes(r, maxScriptLength, "scriptSig"); err != nil {
		return err
	}

	*h = nh
	return nil
}

func (h *Header) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := h.Serialize(&buf)
	return buf.Bytes(), err
}

func (h *Header) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	if err := h.Deserialize(rd); err != nil {
		return err
	}
	if rd.Len() != 0 {
		return fmt.Errorf("squeak: %d trailing bytes after header", rd.Len())
	}
	return nil
}

// Serialize writes header, encrypted content and the decryption key if one is attached.
func (s *Squeak) Serialize(w io.Writer) error {
	if err := s.Header.Serialize(w); err != nil {
		return err
	}
	if _, err := w.Write(s.EncContent[:]); err != nil {
		return err
	}
	var key []byte
	if s.decryptionKey != nil {
		key = s.decryptionKey[:]
	}
	return encoding.WriteVarBytes(w, key)
}

// SerializeWithoutKey writes the canonical message, as relayed to peers that didn't pay for it.
func (s *Squeak) SerializeWithoutKey(w io.Writer) error {
	locked := *s
	locked.decryptionKey = nil
	return locked.Serialize(w)
}

// Deserialize reads a squeak written by Serialize.
func (s *Squeak) Deserialize(r io.Reader) error {
	var ns Squeak
	if err := ns.Header.Deserialize(r); err != nil {
		return err
	}
	if err := encoding.ReadFixed(r, ns.EncContent[:], "encContent"); err != nil {
		return err
	}

	key, err := encoding.ReadVarBytes(r, SecretKeyLength, "decryptionKey")
	if err != nil {
		return err
	}
	switch len(key) {
	case 0:
	case SecretKeyLength:
		var dk encryption.DataKey
		copy(dk[:], key)
		ns.decryptionKey = &dk
	default:
		return fmt.Errorf("squeak: decryption key has %d bytes, expected %d", len(key), SecretKeyLength)
	}

	*s = ns
	return nil
}

func (s *Squeak) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := s.Serialize(&buf)
	return buf.Bytes(), err
}

func (s *Squeak) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	if err := s.Deserialize(rd); err != nil {
		return err
	}
	if rd.Len() != 0 {
		return fmt.Errorf("squeak: %d trailing bytes after squeak", rd.Len())
	}
	return nil
}
