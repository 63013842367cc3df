// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"log/slog"
	"os"
	"sync"
)

// DefaultVersion is the BSP version written by Source 2013 compilers.
const DefaultVersion = 20

// File is an in-memory BSP map. Unmanaged lumps may stay backed by the
// source file until read, so the file must remain open while in use.
type File struct {
	logger *slog.Logger
	// backing is set when File owns the source opened via Open or SaveFile.
	backing *fileHandle
	path    string
	lumps   [LumpCount]Lump
	order   []LumpType
	dir     Directory
	// mu serializes load, save and close.
	mu sync.Mutex

	// Version is the BSP format version from the header.
	Version int32
	// Revision is the map revision from the header.
	Revision int32

	closed bool
}

// New returns a file with every lump empty, in type order.
func New(version int32) *File {
	f := &File{Version: version}
	for i := range f.lumps {
		f.lumps[i] = newLump(LumpType(i))
	}
	f.order = typeOrder()

	return f
}

// typeOrder returns all lump types in id order.
func typeOrder() []LumpType {
	order := make([]LumpType, LumpCount)
	for i := range order {
		order[i] = LumpType(i)
	}

	return order
}

// Close releases the backing file when owned.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true
	if f.backing != nil {
		return f.backing.close()
	}

	return nil
}

// Path returns the file path the map was opened from or last saved to.
func (f *File) Path() string { return f.path }

// Directory returns the header as read on load or written by the last save.
func (f *File) Directory() Directory { return f.dir }

// Order returns lump types in physical write order.
func (f *File) Order() []LumpType {
	out := make([]LumpType, len(f.order))
	copy(out, f.order)

	return out
}

// SetOrder overrides physical write order; order must list each type once.
func (f *File) SetOrder(order []LumpType) error {
	var seen [LumpCount]bool
	if len(order) != LumpCount {
		return ErrDirectoryMismatch
	}

	for _, t := range order {
		if !t.Valid() || seen[t] {
			return ErrDirectoryMismatch
		}
		seen[t] = true
	}

	f.order = append(f.order[:0], order...)
	return nil
}

// Lump returns lump stored at row t, nil when t is invalid.
func (f *File) Lump(t LumpType) Lump {
	if !t.Valid() {
		return nil
	}

	return f.lumps[t]
}

// SetLump replaces lump at its type row; the variant must match the row.
func (f *File) SetLump(l Lump) error {
	if l == nil {
		return ErrInvalidLumpType
	}

	if err := checkLumpVariant(l.Type(), l); err != nil {
		return err
	}

	f.lumps[l.Type()] = l
	return nil
}

// Entities returns the entity lump.
func (f *File) Entities() *EntityLump { return f.lumps[LumpEntities].(*EntityLump) }

// TexData returns the texdata lump.
func (f *File) TexData() *TexDataLump { return f.lumps[LumpTexData].(*TexDataLump) }

// TexInfo returns the texinfo lump.
func (f *File) TexInfo() *TexInfoLump { return f.lumps[LumpTexInfo].(*TexInfoLump) }

// StringTable returns the texdata string table lump.
func (f *File) StringTable() *StringTableLump {
	return f.lumps[LumpTexDataStringTable].(*StringTableLump)
}

// StringData returns the texdata string data lump.
func (f *File) StringData() *StringDataLump {
	return f.lumps[LumpTexDataStringData].(*StringDataLump)
}

// GameLump returns the game lump.
func (f *File) GameLump() *GameLump { return f.lumps[LumpGameLump].(*GameLump) }

// Pakfile returns the pakfile lump.
func (f *File) Pakfile() *PakfileLump { return f.lumps[LumpPakfile].(*PakfileLump) }

// log returns configured logger or a discarding one.
func (f *File) log() *slog.Logger {
	if f.logger != nil {
		return f.logger
	}

	return slog.New(slog.DiscardHandler)
}

// fileHandle is a swappable OS file shared by every lazy lump of a File.
type fileHandle struct {
	file *os.File
	mu   sync.RWMutex
}

// ReadAt reads from the current file.
func (h *fileHandle) ReadAt(p []byte, off int64) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.file == nil {
		return 0, ErrClosed
	}

	return h.file.ReadAt(p, off)
}

// swap replaces the current file without closing it.
func (h *fileHandle) swap(file *os.File) {
	h.mu.Lock()
	h.file = file
	h.mu.Unlock()
}

// close closes and detaches the current file.
func (h *fileHandle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return nil
	}

	err := h.file.Close()
	h.file = nil

	return err
}
