// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"fmt"
	"io"
	"sync"
)

const (
	// copyBufferSize is the temporary buffer used by streaming lump copies.
	copyBufferSize = 64 * 1024
)

var (
	// copyBufferPool reuses lump copy buffers between saves.
	copyBufferPool = sync.Pool{
		New: func() any {
			return new([copyBufferSize]byte)
		},
	}
)

// DataSource is a window of backing storage a lazy lump reads from.
// It is replaced wholesale when the backing file changes; lumps never reopen files.
type DataSource struct {
	ra     io.ReaderAt
	offset int64
	length int64
}

// NewDataSource returns a window of length bytes at offset in ra.
func NewDataSource(ra io.ReaderAt, offset, length int64) DataSource {
	return DataSource{ra: ra, offset: offset, length: length}
}

// Valid reports whether the source is attached to storage.
func (s DataSource) Valid() bool {
	return s.ra != nil
}

// Offset returns the absolute start of the window.
func (s DataSource) Offset() int64 {
	return s.offset
}

// Len returns the window size in bytes.
func (s DataSource) Len() int64 {
	return s.length
}

// Open returns a reader positioned at the start of the window.
func (s DataSource) Open() (*io.SectionReader, error) {
	if s.ra == nil {
		return nil, ErrNilReader
	}

	return io.NewSectionReader(s.ra, s.offset, s.length), nil
}

// ReadAll reads the whole window into memory.
func (s DataSource) ReadAll() ([]byte, error) {
	if s.ra == nil {
		return nil, ErrNilReader
	}

	if s.length < 0 || s.length > maxInt32 {
		return nil, fmt.Errorf("%w: window of %d bytes", ErrSizeOverflow, s.length)
	}

	out := make([]byte, s.length)
	n, err := s.ra.ReadAt(out, s.offset)
	if err != nil && !(err == io.EOF && int64(n) == s.length) {
		return nil, fmt.Errorf("read %d bytes at %d: %w", s.length, s.offset, err)
	}

	return out, nil
}

// WriteTo streams the window into w using a pooled buffer.
func (s DataSource) WriteTo(w io.Writer) (int64, error) {
	if w == nil {
		return 0, ErrNilWriter
	}

	sr, err := s.Open()
	if err != nil {
		return 0, err
	}

	buf, release := acquireCopyBuffer()
	defer release()

	n, err := io.CopyBuffer(w, sr, buf)
	if err != nil {
		return n, err
	}

	if n != s.length {
		return n, fmt.Errorf("%w: copied %d of %d bytes", io.ErrUnexpectedEOF, n, s.length)
	}

	return n, nil
}

// acquireCopyBuffer returns reusable copy buffer and release callback.
func acquireCopyBuffer() ([]byte, func()) {
	arr := copyBufferPool.Get().(*[copyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	buf := arr[:]

	return buf, func() {
		copyBufferPool.Put(arr)
	}
}
