// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"
)

// PakfileEntry is one file stored in the embedded zip.
// Payload is read from the archive on first access.
type PakfileEntry struct {
	modTime  time.Time
	file     *zip.File
	mu       sync.Mutex
	key      string
	data     []byte
	method   uint16
	loaded   bool
	modified bool
}

// Key returns zip path with "/" separators.
func (e *PakfileEntry) Key() string { return e.key }

// Method returns zip compression method the entry was read with.
func (e *PakfileEntry) Method() uint16 { return e.method }

// ModTime returns entry modification time.
func (e *PakfileEntry) ModTime() time.Time { return e.modTime }

// Modified reports whether key or payload changed since load or last save.
func (e *PakfileEntry) Modified() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.modified
}

// Size returns uncompressed payload size.
func (e *PakfileEntry) Size() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded || e.file == nil {
		return int64(len(e.data))
	}

	return int64(e.file.UncompressedSize64)
}

// CompressedSize returns stored size inside the zip; zero for new entries.
func (e *PakfileEntry) CompressedSize() int64 {
	if e.file == nil {
		return 0
	}

	return int64(e.file.CompressedSize64)
}

// Data returns uncompressed payload; callers must not modify it.
func (e *PakfileEntry) Data() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded || e.file == nil {
		return e.data, nil
	}

	data, err := readZipEntry(e.file)
	if err != nil {
		return nil, fmt.Errorf("pakfile entry %q: %w", e.key, err)
	}

	e.data = data
	e.loaded = true

	return e.data, nil
}

// SetData replaces payload and marks entry modified.
func (e *PakfileEntry) SetData(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.data = data
	e.loaded = true
	e.modified = true
	e.modTime = time.Now()
}

// Digest returns content digest of the uncompressed payload.
func (e *PakfileEntry) Digest() (digest.Digest, error) {
	data, err := e.Data()
	if err != nil {
		return "", err
	}

	return digest.FromBytes(data), nil
}

// PakfileLump is the zip archive of embedded map assets.
type PakfileLump struct {
	lumpBase
	zr      *zip.Reader
	raw     []byte
	entries []*PakfileEntry

	// anyLZMA is set when at least one loaded entry uses LZMA.
	anyLZMA bool
	// corrupt keeps unreadable archives as opaque bytes.
	corrupt bool
	// dirty tracks removed entries, which leave no modified entry behind.
	dirty bool
}

// NewPakfileLump returns empty pakfile lump.
func NewPakfileLump() *PakfileLump {
	return &PakfileLump{lumpBase: lumpBase{typ: LumpPakfile}}
}

// Len returns archive size as last loaded or saved.
func (l *PakfileLump) Len() int64 { return int64(len(l.raw)) }

// Empty reports whether the pakfile has no entries and no stored archive.
func (l *PakfileLump) Empty() bool { return len(l.entries) == 0 && len(l.raw) == 0 }

// IsCompressed reports whether entries are LZMA compressed, which
// marks an engine branch that supports LZMA pakfiles.
func (l *PakfileLump) IsCompressed() bool { return l.anyLZMA }

// Corrupt reports whether the stored archive could not be parsed.
func (l *PakfileLump) Corrupt() bool { return l.corrupt }

// RawBytes returns stored archive bytes; callers must not modify them.
func (l *PakfileLump) RawBytes() []byte { return l.raw }

// Entries returns entries in archive order.
func (l *PakfileLump) Entries() []*PakfileEntry { return l.entries }

// Entry returns entry by key, ignoring case and separator style.
func (l *PakfileLump) Entry(key string) (*PakfileEntry, bool) {
	i := l.index(key)
	if i < 0 {
		return nil, false
	}

	return l.entries[i], true
}

// Modified reports whether archive differs from stored bytes.
func (l *PakfileLump) Modified() bool {
	if l.dirty {
		return true
	}

	for _, e := range l.entries {
		if e.Modified() {
			return true
		}
	}

	return false
}

// Add creates entry or replaces payload of an existing one.
func (l *PakfileLump) Add(key string, data []byte) (*PakfileEntry, error) {
	norm, err := normalizePakfileKey(key)
	if err != nil {
		return nil, err
	}

	if e, ok := l.Entry(norm); ok {
		e.SetData(data)
		return e, nil
	}

	e := &PakfileEntry{
		key:      norm,
		data:     data,
		loaded:   true,
		modified: true,
		modTime:  time.Now(),
	}
	l.entries = append(l.entries, e)

	return e, nil
}

// Remove deletes entry and reports whether it existed.
func (l *PakfileLump) Remove(key string) bool {
	i := l.index(key)
	if i < 0 {
		return false
	}

	l.entries = slices.Delete(l.entries, i, i+1)
	l.dirty = true

	return true
}

// Rename changes entry key; target key must not exist.
func (l *PakfileLump) Rename(oldKey, newKey string) error {
	i := l.index(oldKey)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, oldKey)
	}

	norm, err := normalizePakfileKey(newKey)
	if err != nil {
		return err
	}

	if j := l.index(norm); j >= 0 && j != i {
		return fmt.Errorf("%w: %q", ErrDuplicateEntryPath, norm)
	}

	e := l.entries[i]
	e.mu.Lock()
	e.key = norm
	e.modified = true
	e.mu.Unlock()

	return nil
}

func (l *PakfileLump) index(key string) int {
	for i, e := range l.entries {
		if samePath(e.key, key) {
			return i
		}
	}

	return -1
}

func (l *PakfileLump) decode(in *lumpInput) error {
	raw, err := in.bytes()
	if err != nil {
		return err
	}

	l.reset(raw)
	if l.corrupt {
		in.log.Warn("pakfile is not a readable zip, kept as opaque bytes", "size", len(raw))
	}

	return nil
}

// reset parses raw archive bytes and replaces entry list.
func (l *PakfileLump) reset(raw []byte) {
	l.raw = raw
	l.zr = nil
	l.entries = nil
	l.anyLZMA = false
	l.corrupt = false
	l.dirty = false

	if len(raw) == 0 {
		return
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		l.corrupt = true
		return
	}

	l.zr = zr
	l.entries = make([]*PakfileEntry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.Method == zipMethodLZMA {
			l.anyLZMA = true
		}

		l.entries = append(l.entries, &PakfileEntry{
			key:     f.Name,
			file:    f,
			method:  f.Method,
			modTime: f.Modified,
		})
	}
}

func (l *PakfileLump) encode(enc *lumpEncoder) ([]byte, error) {
	share := 0.0
	if enc.progress != nil {
		share = enc.progress.shares.pakfile
	}

	if l.corrupt || !l.Modified() && (enc.mode != CompressionCompressed || l.anyLZMA) {
		if l.anyLZMA && enc.mode == CompressionUncompressed {
			enc.log.Debug("pakfile unmodified and already compressed, copied as is")
		}

		enc.progress.advance(StagePakfile, LumpPakfile, share, "copying pakfile")
		return l.raw, nil
	}

	return l.rebuild(enc, share)
}

// commit adopts saved archive bytes as the new stored state.
func (l *PakfileLump) commit(raw []byte) {
	if l.corrupt {
		return
	}

	l.reset(raw)
}
