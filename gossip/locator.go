// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package gossip

import (
	"bytes"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	squeak "github.com/squeaknode/go-squeak"
	"github.com/squeaknode/go-squeak/internal/encoding"
	"github.com/squeaknode/go-squeak/signing"
)

const (
	// MaxInterested is the largest number of filters in one Locator
	MaxInterested = 1000

	maxAddressLength = 520

	// Unbounded as a height bound disables that side of the range.
	Unbounded int32 = -1
)

// Interested is a filter over squeaks.
//
// Address is either empty (any author), a serialized verifying key, a pubkey
// hash or a pubkey script. The height range is inclusive. A zero ReplyTo
// matches any squeak, otherwise only replies to that hash.
type Interested struct {
	Address        []byte
	MinBlockHeight int32
	MaxBlockHeight int32
	ReplyTo        chainhash.Hash
}

// Locator requests all squeaks matched by any of its filters.
type Locator struct {
	Interested []Interested
}

func (in *Interested) Equal(o *Interested) bool {
	return bytes.Equal(in.Address, o.Address) &&
		in.MinBlockHeight == o.MinBlockHeight &&
		in.MaxBlockHeight == o.MaxBlockHeight &&
		in.ReplyTo == o.ReplyTo
}

// pubKeyHash resolves Address. ok is false if it is none of the known forms.
func (in *Interested) pubKeyHash() (pkh [signing.PubKeyHashLength]byte, ok bool) {
	switch len(in.Address) {
	case signing.PubKeyLength:
		return signing.Hash160(in.Address), true
	case signing.PubKeyHashLength:
		copy(pkh[:], in.Address)
		return pkh, true
	case signing.PubKeyScriptLength:
		h, err := signing.PubKeyHashFromScript(in.Address)
		return h, err == nil
	default:
		return pkh, false
	}
}

// Matches reports whether the filter selects the squeak with header h.
func (in *Interested) Matches(h *squeak.Header) bool {
	if in.MinBlockHeight != Unbounded && h.BlockHeight < in.MinBlockHeight {
		return false
	}
	if in.MaxBlockHeight != Unbounded && h.BlockHeight > in.MaxBlockHeight {
		return false
	}
	if in.ReplyTo != squeak.ZeroHash && in.ReplyTo != h.HashReplySqk {
		return false
	}
	if len(in.Address) == 0 {
		return true
	}

	want, ok := in.pubKeyHash()
	if !ok {
		return false
	}
	got, err := signing.PubKeyHashFromScript(h.ScriptPubKey)
	if err != nil {
		return false
	}
	return want == got
}

func (in *Interested) Serialize(w io.Writer) error {
	if err := encoding.WriteVarBytes(w, in.Address); err != nil {
		return err
	}
	if err := encoding.WriteInt32(w, in.MinBlockHeight); err != nil {
		return err
	}
	if err := encoding.WriteInt32(w, in.MaxBlockHeight); err != nil {
		return err
	}
	_, err := w.Write(in.ReplyTo[:])
	return err
}

func (in *Interested) Deserialize(r io.Reader) error {
	var (
		nin Interested
		err error
	)
	if nin.Address, err = encoding.ReadVarBytes(r, maxAddressLength, "address"); err != nil {
		return err
	}
	if nin.MinBlockHeight, err = encoding.ReadInt32(r); err != nil {
		return fmt.Errorf("gossip: reading min block height: %w", err)
	}
	if nin.MaxBlockHeight, err = encoding.ReadInt32(r); err != nil {
		return fmt.Errorf("gossip: reading max block height: %w", err)
	}
	if err = encoding.ReadFixed(r, nin.ReplyTo[:], "replyTo"); err != nil {
		return err
	}
	*in = nin
	return nil
}

// Matches is true if any filter matches h.
func (l *Locator) Matches(h *squeak.Header) bool {
	for i := range l.Interested {
		if l.Interested[i].Matches(h) {
			return true
		}
	}
	return false
}

func (l *Locator) Equal(o *Locator) bool {
	if len(l.Interested) != len(o.Interested) {
		return false
	}
	for i := range l.Interested {
		if !l.Interested[i].Equal(&o.Interested[i]) {
			return false
		}
	}
	return true
}

func (l *Locator) Serialize(w io.Writer) error {
	if len(l.Interested) > MaxInterested {
		return fmt.Errorf("gossip: too many filters in locator (%d > %d)", len(l.Interested), MaxInterested)
	}
	if err := encoding.WriteVarInt(w, uint64(len(l.Interested))); err != nil {
		return err
	}
	for i := range l.Interested {
		if err := l.Interested[i].Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (l *Locator) Deserialize(r io.Reader) error {
	n, err := encoding.ReadVarInt(r)
	if err != nil {
		return fmt.Errorf("gossip: reading filter count: %w", err)
	}
	if n > MaxInterested {
		return fmt.Errorf("gossip: too many filters in locator (%d > %d)", n, MaxInterested)
	}

	var nl Locator
	if n > 0 {
		nl.Interested = make([]Interested, n)
	}
	for i := range nl.Interested {
		if err := nl.Interested[i].Deserialize(r); err != nil {
			return fmt.Errorf("gossip: filter #%d: %w", i, err)
		}
	}
	*l = nl
	return nil
}

func (l *Locator) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := l.Serialize(&buf)
	return buf.Bytes(), err
}

func (l *Locator) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	if err := l.Deserialize(rd); err != nil {
		return err
	}
	if rd.Len() != 0 {
		return fmt.Errorf("gossip: %d trailing bytes after locator", rd.Len())
	}
	return nil
}
