// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ReadDirectory opens a BSP and returns only its lump directory without decoding lumps.
// The game lump length is inferred the same way Open does it.
func ReadDirectory(path string) (Directory, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return Directory{}, err
	}
	defer func() { _ = f.Close() }()

	return ReadDirectoryFromReaderAt(f, size)
}

// ReadDirectoryFromReaderAt reads the lump directory from a random-access source.
func ReadDirectoryFromReaderAt(ra io.ReaderAt, size int64) (Directory, error) {
	if ra == nil {
		return Directory{}, ErrNilReader
	}

	dir, err := readDirectory(ra, size)
	if err != nil {
		return Directory{}, err
	}

	dir.inferGameLumpLength(slog.New(slog.DiscardHandler))

	return dir, nil
}

// ListLumps returns non-empty directory rows in physical file order.
func ListLumps(path string) ([]DirectoryEntry, error) {
	dir, err := ReadDirectory(path)
	if err != nil {
		return nil, err
	}

	order, err := dir.physicalOrder()
	if err != nil {
		return nil, err
	}

	out := make([]DirectoryEntry, 0, len(order))
	for _, t := range order {
		if dir.Entries[t].Empty() {
			continue
		}

		out = append(out, dir.Entries[t])
	}

	return out, nil
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open BSP: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
