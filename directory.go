// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

// DirectoryEntry is one row of the BSP lump directory.
type DirectoryEntry struct {
	Type    LumpType `json:"type" yaml:"type"`
	Offset  int64    `json:"offset" yaml:"offset"`
	Length  int64    `json:"length" yaml:"length"`
	Version int32    `json:"version" yaml:"version"`
	// FourCC holds the uncompressed length for compressed lumps and zero otherwise.
	FourCC int32 `json:"fourcc" yaml:"fourcc"`
}

// Compressed reports whether the stored bytes are an LZMA envelope.
func (e DirectoryEntry) Compressed() bool { return e.FourCC != 0 }

// UncompressedLength returns logical payload length.
func (e DirectoryEntry) UncompressedLength() int64 {
	if e.Compressed() {
		return int64(e.FourCC)
	}

	return e.Length
}

// Empty reports whether the row stores no bytes.
func (e DirectoryEntry) Empty() bool { return e.Length == 0 }

// End returns the first byte after stored data.
func (e DirectoryEntry) End() int64 { return e.Offset + e.Length }

// Directory is the decoded BSP header.
type Directory struct {
	Version  int32                     `json:"version" yaml:"version"`
	Revision int32                     `json:"revision" yaml:"revision"`
	Entries  [LumpCount]DirectoryEntry `json:"entries" yaml:"entries"`
}

// readDirectory decodes the fixed-size header from the start of ra.
func readDirectory(ra io.ReaderAt, size int64) (Directory, error) {
	var dir Directory
	if size < headerSize {
		return dir, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidHeader, size, headerSize)
	}

	buf := make([]byte, headerSize)
	if _, err := ra.ReadAt(buf, 0); err != nil {
		return dir, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	if !bytes.Equal(buf[:4], []byte(headerMagic)) {
		return dir, fmt.Errorf("%w: magic %q", ErrInvalidHeader, buf[:4])
	}

	dir.Version = getInt32(buf[4:])
	for i := range dir.Entries {
		row := buf[8+i*directoryRowSize:]
		dir.Entries[i] = DirectoryEntry{
			Type:    LumpType(i),
			Offset:  int64(binary.LittleEndian.Uint32(row[0:])),
			Length:  int64(binary.LittleEndian.Uint32(row[4:])),
			Version: getInt32(row[8:]),
			FourCC:  getInt32(row[12:]),
		}
	}
	dir.Revision = getInt32(buf[headerSize-4:])

	return dir, nil
}

// marshal encodes header rows in type order.
func (d *Directory) marshal() ([]byte, error) {
	buf := make([]byte, headerSize)
	copy(buf, headerMagic)
	putInt32(buf[4:], d.Version)

	for i, e := range d.Entries {
		if e.Offset < 0 || e.Offset > maxInt32 || e.Length < 0 || e.Length > maxInt32 {
			return nil, fmt.Errorf("%w: lump %s at %d+%d", ErrSizeOverflow, e.Type, e.Offset, e.Length)
		}

		row := buf[8+i*directoryRowSize:]
		binary.LittleEndian.PutUint32(row[0:], uint32(e.Offset))
		binary.LittleEndian.PutUint32(row[4:], uint32(e.Length))
		putInt32(row[8:], e.Version)
		putInt32(row[12:], e.FourCC)
	}

	putInt32(buf[headerSize-4:], d.Revision)

	return buf, nil
}

// physicalOrder returns lump types sorted by file offset, ties by type.
// The result always contains each type exactly once.
func (d *Directory) physicalOrder() ([]LumpType, error) {
	rows := slices.Clone(d.Entries[:])
	slices.SortStableFunc(rows, func(a, b DirectoryEntry) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		default:
			return int(a.Type) - int(b.Type)
		}
	})

	order := make([]LumpType, len(rows))
	var seen [LumpCount]bool
	for i, r := range rows {
		if !r.Type.Valid() || seen[r.Type] {
			return nil, fmt.Errorf("%w: type %d repeated or invalid", ErrDirectoryMismatch, int(r.Type))
		}
		seen[r.Type] = true
		order[i] = r.Type
	}

	return order, nil
}

// inferGameLumpLength replaces the declared game lump length with the distance
// to the next stored lump. Compilers are known to write bogus values there.
func (d *Directory) inferGameLumpLength(log *slog.Logger) {
	game := &d.Entries[LumpGameLump]
	if game.Offset == 0 && game.Length == 0 {
		log.Warn("game lump has zero offset and length")
		return
	}

	next := int64(-1)
	for _, e := range d.Entries {
		if e.Offset == 0 || e.Offset <= game.Offset {
			continue
		}
		if next < 0 || e.Offset < next {
			next = e.Offset
		}
	}

	if next < 0 {
		log.Warn("no lump follows the game lump, keeping declared length", "length", game.Length)
		return
	}

	inferred := next - game.Offset
	if inferred != game.Length {
		log.Debug("game lump length inferred from next lump", "declared", game.Length, "inferred", inferred)
	}

	if inferred < 4 {
		log.Warn("inferred game lump length is too small for a sub-directory", "length", inferred)
	}

	game.Length = inferred
}

// checkRanges verifies rows against file size and reports overlaps and gaps.
func (d *Directory) checkRanges(order []LumpType, size int64, log *slog.Logger) error {
	var prev *DirectoryEntry
	for _, t := range order {
		e := &d.Entries[t]
		if e.Empty() {
			continue
		}

		if e.Offset < headerSize || e.End() > size {
			if t == LumpGameLump && e.Offset >= headerSize && e.Offset <= size {
				log.Warn("game lump reaches past end of file, clamped", "offset", e.Offset, "length", e.Length, "size", size)
				e.Length = size - e.Offset
			} else {
				return fmt.Errorf("%w: %s at %d+%d, file size %d", ErrLumpOutOfRange, t, e.Offset, e.Length, size)
			}
		}

		if prev != nil {
			switch {
			case prev.End() > e.Offset && prev.Type == LumpGameLump:
				log.Debug("game lump overlaps next lump, declared length is bogus",
					"next", t, "overlap", prev.End()-e.Offset)
			case prev.End() > e.Offset:
				log.Warn("lumps overlap", "lump", prev.Type, "next", t, "overlap", prev.End()-e.Offset)
			case prev.End() < e.Offset:
				log.Debug("gap between lumps", "lump", prev.Type, "next", t, "gap", e.Offset-prev.End())
			}
		}

		// A lump nested inside prev keeps prev as the furthest reaching one.
		if prev == nil || e.End() >= prev.End() {
			prev = e
		}
	}

	return nil
}
