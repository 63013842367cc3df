// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"fmt"
	"log/slog"
)

// Lump is one decoded section of a BSP file.
//
// The set of implementations is closed and fixed by the file format:
// *RawLump, *TexDataLump, *TexInfoLump, *StringTableLump, *StringDataLump,
// *EntityLump, *GameLump and *PakfileLump. A lump carries no offset; its
// position is decided by the directory writer on save.
type Lump interface {
	// Type returns directory row of the lump.
	Type() LumpType
	// Version returns per-lump format version (distinct from file version).
	Version() int32
	// SetVersion overrides per-lump format version.
	SetVersion(v int32)
	// Compressed reports whether the lump is (or will stay) LZMA compressed
	// when saved with CompressionUnchanged.
	Compressed() bool
	// Len returns logical uncompressed byte length.
	Len() int64
	// Empty reports whether the lump has no payload.
	Empty() bool

	base() *lumpBase
	decode(in *lumpInput) error
	encode(enc *lumpEncoder) ([]byte, error)
}

// lumpBase holds attributes common to all lump variants.
type lumpBase struct {
	typ        LumpType
	version    int32
	compressed bool
}

// Type returns directory row of the lump.
func (b *lumpBase) Type() LumpType { return b.typ }

// Version returns per-lump format version.
func (b *lumpBase) Version() int32 { return b.version }

// SetVersion overrides per-lump format version.
func (b *lumpBase) SetVersion(v int32) { b.version = v }

// Compressed reports whether the lump keeps LZMA compression on unchanged saves.
func (b *lumpBase) Compressed() bool { return b.compressed }

// SetCompressed changes compression used on CompressionUnchanged saves.
func (b *lumpBase) SetCompressed(v bool) { b.compressed = v }

func (b *lumpBase) base() *lumpBase { return b }

// lumpInput carries one directory row and its stored bytes to a decoder.
type lumpInput struct {
	log     *slog.Logger
	source  DataSource
	entry   DirectoryEntry
	preload bool
	strict  bool
}

// bytes reads the stored window and removes top-level compression.
func (in *lumpInput) bytes() ([]byte, error) {
	raw, err := in.source.ReadAll()
	if err != nil {
		return nil, err
	}

	if !in.entry.Compressed() {
		return raw, nil
	}

	out, err := decompressLump(raw)
	if err != nil {
		return nil, err
	}

	if int64(len(out)) != in.entry.UncompressedLength() {
		in.log.Warn("decompressed lump size differs from directory",
			"lump", in.entry.Type, "directory", in.entry.UncompressedLength(), "actual", len(out))
	}

	return out, nil
}

// lumpEncoder carries save state to lump encoders.
type lumpEncoder struct {
	log      *slog.Logger
	progress *progressTracker
	mode     CompressionMode
	// offset is absolute payload position; valid only during the sequential write phase.
	offset int64
}

// RawLump is an opaque lump: bytes with no structural meaning to this package.
// When loaded from a file it stays backed by that file until read or replaced.
type RawLump struct {
	lumpBase
	data   []byte
	source DataSource
	length int64
	loaded bool
	// storedCompressed tells whether source holds an LZMA envelope.
	// The embedded compressed flag only selects the output on save.
	storedCompressed bool
}

// NewRawLump returns in-memory opaque lump of type t.
func NewRawLump(t LumpType, data []byte) *RawLump {
	return &RawLump{
		lumpBase: lumpBase{typ: t},
		data:     data,
		length:   int64(len(data)),
		loaded:   true,
	}
}

// Len returns logical uncompressed byte length.
func (l *RawLump) Len() int64 { return l.length }

// Empty reports whether the lump has no payload.
func (l *RawLump) Empty() bool { return l.length == 0 }

// Source returns the backing window; invalid when the lump lives in memory.
func (l *RawLump) Source() DataSource {
	if l.loaded {
		return DataSource{}
	}

	return l.source
}

// Data returns uncompressed payload, reading backing storage when needed.
// The result is cached; callers must not modify it, use SetData instead.
func (l *RawLump) Data() ([]byte, error) {
	if l.loaded {
		return l.data, nil
	}

	if l.length == 0 {
		return nil, nil
	}

	stored, err := l.source.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s lump: %w", l.typ, err)
	}

	if l.storedCompressed {
		stored, err = decompressLump(stored)
		if err != nil {
			return nil, fmt.Errorf("decompress %s lump: %w", l.typ, err)
		}
	}

	l.data = stored
	l.loaded = true

	return l.data, nil
}

// SetData replaces payload and detaches the lump from backing storage.
func (l *RawLump) SetData(data []byte) {
	l.data = data
	l.length = int64(len(data))
	l.loaded = true
	l.source = DataSource{}
	l.storedCompressed = false
}

// storedSource returns backing window of stored bytes and whether they are
// an LZMA envelope; ok is false when the payload was materialized or replaced.
func (l *RawLump) storedSource() (src DataSource, compressed bool, ok bool) {
	if l.loaded || !l.source.Valid() {
		return DataSource{}, false, false
	}

	return l.source, l.storedCompressed, true
}

// repoint attaches lump to a new backing window and drops cached payload.
func (l *RawLump) repoint(src DataSource, compressed bool, length int64) {
	l.source = src
	l.compressed = compressed
	l.storedCompressed = compressed
	l.length = length
	l.data = nil
	l.loaded = false
}

func (l *RawLump) decode(in *lumpInput) error {
	l.source = in.source
	l.storedCompressed = in.entry.Compressed()
	l.length = in.entry.UncompressedLength()
	l.loaded = false

	if in.preload {
		if _, err := l.Data(); err != nil {
			return err
		}
		l.source = DataSource{}
	}

	return nil
}

func (l *RawLump) encode(*lumpEncoder) ([]byte, error) {
	return l.Data()
}
