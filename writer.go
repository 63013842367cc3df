// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// saveWriteBuffer is the buffered writer size used by Save.
const saveWriteBuffer = 1 << 20

var (
	// saveWriterPool reuses buffered writers between Save calls.
	saveWriterPool = sync.Pool{
		New: func() any {
			return bufio.NewWriterSize(io.Discard, saveWriteBuffer)
		},
	}
	// zeroPad is the source of alignment padding.
	zeroPad [physLevelAlign]byte
)

// placement is one lump prepared for the sequential write phase.
type placement struct {
	// source streams stored bytes untouched from the backing file.
	source DataSource
	data   []byte
	fourCC int32
	// inline lumps are encoded during the write phase because they depend on their offset.
	inline bool
	// compressed reports the envelope state of written bytes.
	compressed bool
}

// saveResult carries written directory and pakfile bytes for post-save commit.
type saveResult struct {
	pakfile []byte
	dir     Directory
	wrote   [LumpCount]bool
}

// Save writes the map to w. The header is written last, so w must support seeking back to the start.
func (f *File) Save(ctx context.Context, w io.WriteSeeker, opts SaveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	res, err := f.save(ctx, w, opts)
	if err != nil {
		return err
	}

	f.commit(res, nil)
	return nil
}

// save encodes and writes every lump; the File is not modified on error
// except for the rebuilt texdata string tables.
func (f *File) save(ctx context.Context, w io.WriteSeeker, opts SaveOptions) (*saveResult, error) {
	if w == nil {
		return nil, ErrNilWriter
	}

	if f.closed {
		return nil, ErrClosed
	}

	opts.applyDefaults()
	if !opts.Compression.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompressionMode, opts.Compression)
	}

	log := opts.Logger
	if log == nil {
		log = f.log()
	}

	progress := newProgressTracker(opts.OnProgress, writeShares)

	if _, err := w.Seek(headerSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek past header: %w", err)
	}

	rebuildTexDataStrings(f.TexData(), f.StringTable(), f.StringData())
	progress.advance(StageHeader, -1, writeShares.header, "rebuilt texdata strings")

	places, err := f.prepare(ctx, opts, log)
	if err != nil {
		return nil, err
	}

	bw := saveWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
	bw.Reset(w)
	defer func() {
		bw.Reset(io.Discard)
		saveWriterPool.Put(bw)
	}()

	res := &saveResult{dir: Directory{Version: f.Version, Revision: f.Revision}}
	pos := int64(headerSize)
	step := writeShares.lumps / float64(LumpCount-1)

	for _, t := range f.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l := f.lumps[t]
		entry := DirectoryEntry{Type: t, Version: l.Version()}
		p := places[t]

		if p != nil {
			if pad := (t.alignment() - pos%t.alignment()) % t.alignment(); pad > 0 {
				if _, err := bw.Write(zeroPad[:pad]); err != nil {
					return nil, fmt.Errorf("pad before %s lump: %w", t, err)
				}
				pos += pad
			}

			if p.inline {
				enc := &lumpEncoder{log: log.With("lump", t.String()), progress: progress, mode: opts.Compression, offset: pos}
				data, err := l.encode(enc)
				if err != nil {
					return nil, fmt.Errorf("encode %s lump: %w", t, err)
				}
				p.data = data
				if t == LumpPakfile {
					res.pakfile = data
				}
			}

			n, err := p.writeTo(bw)
			if err != nil {
				return nil, fmt.Errorf("write %s lump: %w", t, err)
			}

			if n > 0 {
				entry.Offset = pos
				entry.Length = n
				entry.FourCC = p.fourCC
				res.wrote[t] = true
			}
			pos += n
		}

		if pos > maxInt32 {
			return nil, fmt.Errorf("%w: file reaches %d bytes at %s lump", ErrSizeOverflow, pos, t)
		}

		res.dir.Entries[t] = entry
		if t != LumpPakfile {
			progress.advance(StageLumps, t, step, "wrote "+t.String())
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("flush lumps: %w", err)
	}

	header, err := res.dir.marshal()
	if err != nil {
		return nil, err
	}

	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to header: %w", err)
	}

	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	if _, err := w.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to end: %w", err)
	}

	progress.finish("saved")
	return res, nil
}

// prepare encodes offset-independent lumps in parallel.
// Entries are nil for empty lumps.
func (f *File) prepare(ctx context.Context, opts SaveOptions, log *slog.Logger) ([LumpCount]*placement, error) {
	var places [LumpCount]*placement

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxWorkers)

	for _, t := range f.order {
		l := f.lumps[t]
		if l.Empty() {
			continue
		}

		p := &placement{}
		places[t] = p

		if !t.compressible() {
			p.inline = true
			continue
		}

		compress := opts.Compression.compress(l.Compressed())
		if raw, ok := l.(*RawLump); ok {
			if src, stored, ok := raw.storedSource(); ok && stored == compress {
				p.source = src
				p.compressed = compress
				if compress {
					p.fourCC = int32(raw.Len())
				}
				continue
			}
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			enc := &lumpEncoder{log: log.With("lump", t.String()), mode: opts.Compression}
			data, err := l.encode(enc)
			if err != nil {
				return fmt.Errorf("encode %s lump: %w", t, err)
			}

			if len(data) > maxInt32 {
				return fmt.Errorf("%w: %s lump is %d bytes", ErrSizeOverflow, t, len(data))
			}

			p.data = data
			if !compress || len(data) == 0 {
				return nil
			}

			packed, err := compressLump(data)
			switch {
			case err == nil:
				p.data = packed
				p.fourCC = int32(len(data))
				p.compressed = true
			case errors.Is(err, ErrIncompressible):
				enc.log.Debug("lump stored raw", "error", err)
			default:
				enc.log.Warn("lump compression failed, stored raw", "error", err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return places, err
	}

	return places, nil
}

// writeTo writes prepared bytes or streams the stored source.
func (p *placement) writeTo(w io.Writer) (int64, error) {
	if p.source.Valid() {
		return p.source.WriteTo(w)
	}

	n, err := w.Write(p.data)
	return int64(n), err
}

// commit adopts saved state: pakfile bytes, compression flags and, when
// backing is set, the new file window of every opaque lump.
func (f *File) commit(res *saveResult, backing io.ReaderAt) {
	f.dir = res.dir

	for t, l := range f.lumps {
		entry := res.dir.Entries[t]
		if res.wrote[t] {
			l.base().compressed = entry.Compressed()
		}

		raw, ok := l.(*RawLump)
		if !ok || backing == nil {
			continue
		}

		if res.wrote[t] {
			raw.repoint(NewDataSource(backing, entry.Offset, entry.Length), entry.Compressed(), entry.UncompressedLength())
		}
	}

	if res.pakfile != nil {
		f.Pakfile().commit(res.pakfile)
	}
}
