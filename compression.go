// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// LZMA lump envelope layout: magic, uncompressed size, compressed size, properties, payload.
const (
	lzmaMagic         = "LZMA"
	lzmaPropsSize     = 5
	lzmaHeaderSize    = 4 + 4 + 4 + lzmaPropsSize // 17
	lzmaClassicHeader = lzmaPropsSize + 8         // props + uint64 size used by the .lzma stream format
)

// lzmaEnvelope is the parsed header of a compressed lump.
type lzmaEnvelope struct {
	uncompressedSize uint32
	compressedSize   uint32
	props            [lzmaPropsSize]byte
}

// hasLZMAMagic reports whether data starts with the lump compression magic.
func hasLZMAMagic(data []byte) bool {
	return len(data) >= lzmaHeaderSize && string(data[:4]) == lzmaMagic
}

// parseLZMAEnvelope validates magic first and only then trusts the size fields.
func parseLZMAEnvelope(data []byte) (lzmaEnvelope, error) {
	var env lzmaEnvelope
	if len(data) < lzmaHeaderSize {
		return env, fmt.Errorf("%w: short header (%d bytes)", ErrInvalidCompressedLump, len(data))
	}

	if string(data[:4]) != lzmaMagic {
		return env, fmt.Errorf("%w: bad magic %q", ErrInvalidCompressedLump, data[:4])
	}

	env.uncompressedSize = binary.LittleEndian.Uint32(data[4:8])
	env.compressedSize = binary.LittleEndian.Uint32(data[8:12])
	copy(env.props[:], data[12:lzmaHeaderSize])

	if uint64(env.compressedSize) > uint64(len(data)-lzmaHeaderSize) {
		return env, fmt.Errorf("%w: payload truncated (%d of %d bytes)",
			ErrInvalidCompressedLump, len(data)-lzmaHeaderSize, env.compressedSize)
	}

	if env.uncompressedSize > maxInt32 {
		return env, fmt.Errorf("%w: uncompressed size %d", ErrSizeOverflow, env.uncompressedSize)
	}

	return env, nil
}

// decompressLump decodes one LZMA envelope into uncompressed bytes.
func decompressLump(data []byte) ([]byte, error) {
	env, err := parseLZMAEnvelope(data)
	if err != nil {
		return nil, err
	}

	payload := data[lzmaHeaderSize : lzmaHeaderSize+int(env.compressedSize)]
	out, err := decodeLZMA(env.props, payload, int64(env.uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCompressedLump, err)
	}

	return out, nil
}

// compressLump encodes data into an LZMA envelope.
// It returns ErrIncompressible when the envelope is not smaller than data;
// callers then store data raw.
func compressLump(data []byte) ([]byte, error) {
	if len(data) > maxInt32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrSizeOverflow, len(data))
	}

	props, payload, err := encodeLZMA(data, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompressible, err)
	}

	total := lzmaHeaderSize + len(payload)
	if total >= len(data) {
		return nil, fmt.Errorf("%w: %d >= %d bytes", ErrIncompressible, total, len(data))
	}

	out := make([]byte, total)
	copy(out, lzmaMagic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(payload)))
	copy(out[12:lzmaHeaderSize], props[:])
	copy(out[lzmaHeaderSize:], payload)

	return out, nil
}

// decodeLZMA decodes raw LZMA payload with given properties.
// size < 0 means unknown size; the stream must then end with an EOS marker.
func decodeLZMA(props [lzmaPropsSize]byte, payload []byte, size int64) ([]byte, error) {
	var hdr [lzmaClassicHeader]byte
	copy(hdr[:], props[:])
	binary.LittleEndian.PutUint64(hdr[lzmaPropsSize:], uint64(size))

	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(hdr[:]), bytes.NewReader(payload)))
	if err != nil {
		return nil, fmt.Errorf("lzma header: %w", err)
	}

	if size < 0 {
		return io.ReadAll(r)
	}

	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("lzma payload: %w", err)
	}

	return out, nil
}

// encodeLZMA compresses data and splits classic stream header into properties and payload.
// With eos set the stream is terminated by an end marker instead of a known size.
func encodeLZMA(data []byte, eos bool) ([lzmaPropsSize]byte, []byte, error) {
	var props [lzmaPropsSize]byte

	cfg := lzma.WriterConfig{EOSMarker: eos}
	if !eos {
		cfg.SizeInHeader = true
		cfg.Size = int64(len(data))
	}

	var buf bytes.Buffer
	buf.Grow(len(data)/2 + lzmaClassicHeader)

	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return props, nil, fmt.Errorf("lzma writer: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return props, nil, fmt.Errorf("lzma write: %w", err)
	}

	if err := w.Close(); err != nil {
		return props, nil, fmt.Errorf("lzma close: %w", err)
	}

	out := buf.Bytes()
	if len(out) < lzmaClassicHeader {
		return props, nil, fmt.Errorf("lzma stream too short: %d bytes", len(out))
	}

	copy(props[:], out[:lzmaPropsSize])

	return props, out[lzmaClassicHeader:], nil
}
