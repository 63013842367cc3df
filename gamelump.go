// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

const (
	// gameLumpRowSize is one sub-directory row: id, flags, version, offset, length.
	gameLumpRowSize = 16
	// gameLumpFlagCompressed marks an LZMA enveloped entry payload.
	gameLumpFlagCompressed uint16 = 1
)

// GameLumpEntry is one sub-lump of the game lump.
type GameLumpEntry struct {
	data  []byte
	props *StaticPropLump

	ID      GameLumpID `json:"id" yaml:"id"`
	Flags   uint16     `json:"flags" yaml:"flags"`
	Version uint16     `json:"version" yaml:"version"`
}

// NewGameLumpEntry returns raw game lump entry.
func NewGameLumpEntry(id GameLumpID, version uint16, data []byte) *GameLumpEntry {
	return &GameLumpEntry{ID: id, Version: version, data: data}
}

// NewStaticPropsEntry returns sprp entry holding decoded props.
func NewStaticPropsEntry(props *StaticPropLump) *GameLumpEntry {
	return &GameLumpEntry{ID: GameLumpStaticProps, Version: props.Version, props: props}
}

// Compressed reports whether the entry was stored (or will be kept) compressed.
func (e *GameLumpEntry) Compressed() bool { return e.Flags&gameLumpFlagCompressed != 0 }

// SetCompressed toggles compression used on CompressionUnchanged saves.
func (e *GameLumpEntry) SetCompressed(v bool) {
	if v {
		e.Flags |= gameLumpFlagCompressed
	} else {
		e.Flags &^= gameLumpFlagCompressed
	}
}

// StaticProps returns decoded static props; nil for other ids or undecodable payloads.
func (e *GameLumpEntry) StaticProps() *StaticPropLump { return e.props }

// Data returns uncompressed payload, encoding static props when decoded.
func (e *GameLumpEntry) Data(log *slog.Logger) ([]byte, error) {
	if e.props == nil {
		return e.data, nil
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return e.props.marshal(log)
}

// SetData replaces payload and drops decoded static props.
func (e *GameLumpEntry) SetData(data []byte) {
	e.data = data
	e.props = nil
}

// GameLump is the container of versioned sub-lumps with absolute offsets.
type GameLump struct {
	lumpBase
	entries []*GameLumpEntry
	size    int64
}

// NewGameLump returns empty game lump.
func NewGameLump() *GameLump {
	return &GameLump{lumpBase: lumpBase{typ: LumpGameLump}}
}

// Len returns length recorded by the last load or save.
func (l *GameLump) Len() int64 { return l.size }

// Empty reports whether the game lump has no entries.
func (l *GameLump) Empty() bool { return len(l.entries) == 0 }

// Entries returns entries in file order.
func (l *GameLump) Entries() []*GameLumpEntry { return l.entries }

// Entry returns entry with id.
func (l *GameLump) Entry(id GameLumpID) (*GameLumpEntry, bool) {
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}

	return nil, false
}

// StaticProps returns decoded sprp entry.
func (l *GameLump) StaticProps() (*StaticPropLump, bool) {
	e, ok := l.Entry(GameLumpStaticProps)
	if !ok || e.props == nil {
		return nil, false
	}

	return e.props, true
}

// Add appends entry or replaces the entry with the same id.
func (l *GameLump) Add(e *GameLumpEntry) error {
	if e == nil || e.ID == 0 {
		return fmt.Errorf("%w: entry id must be nonzero", ErrInvalidGameLump)
	}

	for i, cur := range l.entries {
		if cur.ID == e.ID {
			l.entries[i] = e
			return nil
		}
	}

	l.entries = append(l.entries, e)
	return nil
}

// Remove deletes entry with id and reports whether it existed.
func (l *GameLump) Remove(id GameLumpID) bool {
	n := len(l.entries)
	l.entries = slices.DeleteFunc(l.entries, func(e *GameLumpEntry) bool { return e.ID == id })

	return len(l.entries) != n
}

func (l *GameLump) decode(in *lumpInput) error {
	region, err := in.bytes()
	if err != nil {
		return err
	}

	entries, err := parseGameLump(region, in.entry.Offset, in.log)
	if err != nil {
		return err
	}

	l.entries = entries
	l.size = int64(len(region))

	return nil
}

// parseGameLump reads sub-directory and payloads of a game lump region
// that starts at absolute file offset base.
func parseGameLump(region []byte, base int64, log *slog.Logger) ([]*GameLumpEntry, error) {
	if len(region) < 4 {
		return nil, fmt.Errorf("%w: %d byte region", ErrInvalidGameLump, len(region))
	}

	count := int64(int32(binary.LittleEndian.Uint32(region)))
	if count < 0 || 4+count*gameLumpRowSize > int64(len(region)) {
		return nil, fmt.Errorf("%w: %d rows do not fit %d bytes", ErrInvalidGameLump, count, len(region))
	}

	type row struct {
		id      GameLumpID
		flags   uint16
		version uint16
		offset  int64
		length  int64
	}

	rows := make([]row, count)
	for i := range rows {
		b := region[4+i*gameLumpRowSize:]
		rows[i] = row{
			id:      GameLumpID(binary.LittleEndian.Uint32(b[0:])),
			flags:   binary.LittleEndian.Uint16(b[4:]),
			version: binary.LittleEndian.Uint16(b[6:]),
			offset:  int64(getInt32(b[8:])),
			length:  int64(getInt32(b[12:])),
		}
	}

	end := base + int64(len(region))
	seen := make(map[GameLumpID]struct{}, len(rows))
	out := make([]*GameLumpEntry, 0, len(rows))

	for i, r := range rows {
		if r.id == 0 && r.length == 0 {
			continue
		}

		if _, dup := seen[r.id]; dup {
			log.Warn("duplicate game lump entry skipped", "id", r.id)
			continue
		}
		seen[r.id] = struct{}{}

		stored := r.length
		compressed := r.flags&gameLumpFlagCompressed != 0
		if compressed {
			stored = end - r.offset
			if i+1 < len(rows) {
				if delta := rows[i+1].offset - r.offset; delta >= 0 {
					stored = delta
				}
			}
		}

		if r.offset < base || stored < 0 || r.offset+stored > end {
			return nil, fmt.Errorf("%w: entry %s range %d+%d outside %d..%d",
				ErrInvalidGameLump, r.id, r.offset, stored, base, end)
		}

		payload := region[r.offset-base : r.offset-base+stored]
		if compressed && stored > 0 {
			raw, err := decompressLump(payload)
			if err != nil {
				return nil, fmt.Errorf("game lump entry %s: %w", r.id, err)
			}
			if int64(len(raw)) != r.length {
				log.Warn("decompressed game lump entry size differs from directory",
					"id", r.id, "directory", r.length, "actual", len(raw))
			}
			payload = raw
		} else {
			payload = append([]byte(nil), payload...)
		}

		e := &GameLumpEntry{ID: r.id, Flags: r.flags, Version: r.version, data: payload}
		if r.id == GameLumpStaticProps {
			props, err := parseStaticProps(payload, r.version, log)
			if err != nil {
				log.Warn("static props kept as raw bytes", "version", r.version, "error", err)
			} else {
				e.props = props
				e.data = nil
			}
		}

		out = append(out, e)
	}

	return out, nil
}

func (l *GameLump) encode(enc *lumpEncoder) ([]byte, error) {
	out, err := encodeGameLump(l.entries, enc.offset, enc.mode, enc.log)
	if err != nil {
		return nil, err
	}

	l.size = int64(len(out))
	return out, nil
}

// encodeGameLump writes sub-directory and payloads for a lump placed at base.
// Flags bit 0 follows actual compression; length field is the uncompressed size.
func encodeGameLump(entries []*GameLumpEntry, base int64, mode CompressionMode, log *slog.Logger) ([]byte, error) {
	rows := len(entries)
	if rows > 0 && entries[rows-1].ID != 0 {
		rows++
	}

	headerLen := 4 + rows*gameLumpRowSize
	out := make([]byte, headerLen)
	binary.LittleEndian.PutUint32(out, uint32(rows))

	for i, e := range entries {
		data, err := e.Data(log)
		if err != nil {
			return nil, fmt.Errorf("game lump entry %s: %w", e.ID, err)
		}

		if len(data) > maxInt32 {
			return nil, fmt.Errorf("%w: game lump entry %s", ErrSizeOverflow, e.ID)
		}

		flags := e.Flags &^ gameLumpFlagCompressed
		stored := data
		if mode.compress(e.Compressed()) && len(data) > 0 {
			packed, err := compressLump(data)
			switch {
			case err == nil:
				stored = packed
				flags |= gameLumpFlagCompressed
			case errors.Is(err, ErrIncompressible):
				log.Debug("game lump entry stored raw", "id", e.ID, "error", err)
			default:
				return nil, fmt.Errorf("game lump entry %s: %w", e.ID, err)
			}
		}

		offset := base + int64(len(out))
		if offset > maxInt32 {
			return nil, fmt.Errorf("%w: game lump entry %s offset %d", ErrSizeOverflow, e.ID, offset)
		}

		putGameLumpRow(out[4+i*gameLumpRowSize:], e.ID, flags, e.Version, int32(offset), int32(len(data)))
		out = append(out, stored...)
	}

	if rows > len(entries) {
		end := base + int64(len(out))
		if end > maxInt32 {
			return nil, fmt.Errorf("%w: game lump end %d", ErrSizeOverflow, end)
		}
		putGameLumpRow(out[4+len(entries)*gameLumpRowSize:], 0, 0, 0, int32(end), 0)
	}

	return out, nil
}

func putGameLumpRow(b []byte, id GameLumpID, flags, version uint16, offset, length int32) {
	binary.LittleEndian.PutUint32(b[0:], uint32(id))
	binary.LittleEndian.PutUint16(b[4:], flags)
	binary.LittleEndian.PutUint16(b[6:], version)
	putInt32(b[8:], offset)
	putInt32(b[12:], length)
}
