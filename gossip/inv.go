// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// Package gossip holds the inventory and locator structures peers exchange to
// announce and request squeaks. Framing and transport are up to the caller.
package gossip

import (
	"bytes"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/squeaknode/go-squeak/internal/encoding"
)

// MaxInvPerMsg is the largest number of inventory vectors in one InvList
const MaxInvPerMsg = 50000

type InvType uint32

const (
	InvTypeError InvType = iota
	InvTypeSqueak
	InvTypeSecretKey
)

var invTypeNames = map[InvType]string{
	InvTypeError:     "Error",
	InvTypeSqueak:    "Squeak",
	InvTypeSecretKey: "SecretKey",
}

func (it InvType) String() string {
	if name, ok := invTypeNames[it]; ok {
		return name
	}
	return fmt.Sprintf("Unknown InvType (%d)", uint32(it))
}

// Inv announces a single object by its type and hash.
type Inv struct {
	Type InvType
	Hash chainhash.Hash
}

func NewInv(typ InvType, hash chainhash.Hash) Inv {
	return Inv{Type: typ, Hash: hash}
}

func (inv Inv) String() string {
	return fmt.Sprintf("%s:%s", inv.Type, inv.Hash)
}

func (inv Inv) Serialize(w io.Writer) error {
	if err := encoding.WriteUint32(w, uint32(inv.Type)); err != nil {
		return err
	}
	_, err := w.Write(inv.Hash[:])
	return err
}

func (inv *Inv) Deserialize(r io.Reader) error {
	typ, err := encoding.ReadUint32(r)
	if err != nil {
		return fmt.Errorf("gossip: reading inv type: %w", err)
	}
	var hash chainhash.Hash
	if err := encoding.ReadFixed(r, hash[:], "inv hash"); err != nil {
		return fmt.Errorf("gossip: %w", err)
	}
	inv.Type = InvType(typ)
	inv.Hash = hash
	return nil
}

// InvList is the payload of inventory announcements and data requests.
type InvList []Inv

func (l InvList) Serialize(w io.Writer) error {
	if len(l) > MaxInvPerMsg {
		return fmt.Errorf("gossip: too many inventory vectors (%d > %d)", len(l), MaxInvPerMsg)
	}
	if err := encoding.WriteVarInt(w, uint64(len(l))); err != nil {
		return err
	}
	for _, inv := range l {
		if err := inv.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (l *InvList) Deserialize(r io.Reader) error {
	n, err := encoding.ReadVarInt(r)
	if err != nil {
		return fmt.Errorf("gossip: reading inv count: %w", err)
	}
	if n > MaxInvPerMsg {
		return fmt.Errorf("gossip: too many inventory vectors (%d > %d)", n, MaxInvPerMsg)
	}

	list := make(InvList, n)
	for i := range list {
		if err := list[i].Deserialize(r); err != nil {
			return fmt.Errorf("gossip: inv #%d: %w", i, err)
		}
	}
	*l = list
	return nil
}

func (l InvList) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := l.Serialize(&buf)
	return buf.Bytes(), err
}

func (l *InvList) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)
	if err := l.Deserialize(rd); err != nil {
		return err
	}
	if rd.Len() != 0 {
		return fmt.Errorf("gossip: %d trailing bytes after inventory", rd.Len())
	}
	return nil
}
