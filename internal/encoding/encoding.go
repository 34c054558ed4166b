// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

// Package encoding implements the little-endian, CompactSize-prefixed wire
// primitives every squeak structure is serialized with.
package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxVarBytes bounds any length prefixed field read from the wire.
const MaxVarBytes = 1 << 20

// ErrNonCanonicalVarInt is returned if a varint was not encoded in its shortest form.
var ErrNonCanonicalVarInt = errors.New("encoding: non-canonical varint")

// WriteUint32 writes v as four little-endian bytes.
func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint32 reads four little-endian bytes.
func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, eofIsUnexpected(err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func WriteInt32(w io.Writer, v int32) error {
	return WriteUint32(w, uint32(v))
}

func ReadInt32(r io.Reader) (int32, error) {
	v, err := ReadUint32(r)
	return int32(v), err
}

// WriteVarInt writes v as a CompactSize integer.
func WriteVarInt(w io.Writer, v uint64) error {
	var buf [9]byte
	var n int
	switch {
	case v < 0xfd:
		buf[0] = byte(v)
		n = 1
	case v <= 0xffff:
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(v))
		n = 3
	case v <= 0xffffffff:
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(v))
		n = 5
	default:
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], v)
		n = 9
	}
	_, err := w.Write(buf[:n])
	return err
}

// ReadVarInt reads a CompactSize integer and rejects encodings that are not minimal.
func ReadVarInt(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}

	var (
		v   uint64
		min uint64
		buf [8]byte
	)
	switch prefix[0] {
	case 0xff:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, eofIsUnexpected(err)
		}
		v = binary.LittleEndian.Uint64(buf[:8])
		min = 0x100000000
	case 0xfe:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, eofIsUnexpected(err)
		}
		v = uint64(binary.LittleEndian.Uint32(buf[:4]))
		min = 0x10000
	case 0xfd:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, eofIsUnexpected(err)
		}
		v = uint64(binary.LittleEndian.Uint16(buf[:2]))
		min = 0xfd
	default:
		return uint64(prefix[0]), nil
	}

	if v < min {
		return 0, fmt.Errorf("%w: %d encoded with prefix 0x%x", ErrNonCanonicalVarInt, v, prefix[0])
	}
	return v, nil
}

// WriteVarBytes writes a varint length followed by b.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadVarBytes reads a length prefixed byte string of at most maxAllowed bytes.
// An empty string is returned as nil.
func ReadVarBytes(r io.Reader, maxAllowed uint64, field string) ([]byte, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("encoding: reading length of %s: %w", field, eofIsUnexpected(err))
	}
	if n > maxAllowed {
		return nil, fmt.Errorf("encoding: %s is %d bytes long, larger than the allowed %d", field, n, maxAllowed)
	}
	if n == 0 {
		return nil, nil
	}

	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("encoding: reading %s: %w", field, eofIsUnexpected(err))
	}
	return b, nil
}

// ReadFixed fills buf completely or fails with io.ErrUnexpectedEOF.
func ReadFixed(r io.Reader, buf []byte, field string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("encoding: reading %s: %w", field, eofIsUnexpected(err))
	}
	return nil
}

func eofIsUnexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
