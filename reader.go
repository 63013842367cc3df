// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Open opens a BSP file by path and decodes its lumps.
// The returned File keeps the OS file open for lazy lumps until Close.
func Open(ctx context.Context, path string, opts LoadOptions) (*File, error) {
	fh, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	handle := &fileHandle{file: fh}
	f, err := Load(ctx, handle, size, opts)
	if err != nil {
		_ = fh.Close()
		return nil, err
	}

	f.backing = handle
	f.path = path

	return f, nil
}

// Load decodes a BSP from ra of known size. Lazy lumps keep reading ra,
// so it must stay valid while the File is used.
func Load(ctx context.Context, ra io.ReaderAt, size int64, opts LoadOptions) (*File, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	progress := newProgressTracker(opts.OnProgress, readShares)

	dir, err := readDirectory(ra, size)
	if err != nil {
		return nil, err
	}

	dir.inferGameLumpLength(log)

	order, err := dir.physicalOrder()
	if err != nil {
		return nil, err
	}

	if err := dir.checkRanges(order, size, log); err != nil {
		return nil, err
	}

	progress.advance(StageHeader, -1, readShares.header, "read header")

	f := New(dir.Version)
	f.Revision = dir.Revision
	f.logger = opts.Logger
	f.order = order
	f.dir = dir

	f.mu.Lock()
	defer f.mu.Unlock()

	step := readShares.lumps / float64(LumpCount-1)
	for _, t := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := dir.Entries[t]
		l := f.lumps[t]
		b := l.base()
		b.version = entry.Version
		b.compressed = entry.Compressed()

		if !entry.Empty() {
			in := &lumpInput{
				log:     log.With("lump", t.String()),
				source:  NewDataSource(ra, entry.Offset, entry.Length),
				entry:   entry,
				preload: opts.Preload,
				strict:  opts.StrictEntities,
			}

			if err := l.decode(in); err != nil {
				return nil, fmt.Errorf("decode %s lump: %w", t, err)
			}
		}

		if t == LumpPakfile {
			progress.advance(StagePakfile, t, readShares.pakfile, "read pakfile")
		} else {
			progress.advance(StageLumps, t, step, "read "+t.String())
		}
	}

	resolveTexDataNames(f.TexData(), f.StringTable(), f.StringData(), log)
	progress.finish("loaded")

	return f, nil
}
