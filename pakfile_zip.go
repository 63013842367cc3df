// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zip"
)

const (
	// zipMethodLZMA is the APPNOTE method id for LZMA.
	zipMethodLZMA uint16 = 14
	// zipFlagLZMAEOS marks an LZMA stream terminated by an end marker.
	zipFlagLZMAEOS uint16 = 0x2
	// zipLZMAHeaderSize is version (2) + props size (2) + props (5).
	zipLZMAHeaderSize = 4 + lzmaPropsSize
)

// zipLZMAVersion is the LZMA SDK version written before props.
var zipLZMAVersion = [2]byte{9, 20}

// readZipEntry returns uncompressed entry payload.
// LZMA entries are decoded here; other methods use registered decompressors.
func readZipEntry(f *zip.File) ([]byte, error) {
	if f.Method != zipMethodLZMA {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPakfile, err)
		}
		defer func() { _ = rc.Close() }()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPakfile, err)
		}

		return data, nil
	}

	rr, err := f.OpenRaw()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPakfile, err)
	}

	stored, err := io.ReadAll(rr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPakfile, err)
	}

	if len(stored) < zipLZMAHeaderSize {
		return nil, fmt.Errorf("%w: short LZMA entry header", ErrInvalidPakfile)
	}

	propsSize := int(binary.LittleEndian.Uint16(stored[2:4]))
	if propsSize != lzmaPropsSize {
		return nil, fmt.Errorf("%w: LZMA props size %d", ErrInvalidPakfile, propsSize)
	}

	var props [lzmaPropsSize]byte
	copy(props[:], stored[4:zipLZMAHeaderSize])

	size := int64(f.UncompressedSize64)
	if f.Flags&zipFlagLZMAEOS != 0 {
		size = -1
	}

	data, err := decodeLZMA(props, stored[zipLZMAHeaderSize:], size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPakfile, err)
	}

	if uint64(len(data)) != f.UncompressedSize64 {
		return nil, fmt.Errorf("%w: LZMA entry size %d, header says %d", ErrInvalidPakfile, len(data), f.UncompressedSize64)
	}

	if crc32.ChecksumIEEE(data) != f.CRC32 {
		return nil, fmt.Errorf("%w: LZMA entry checksum mismatch", ErrInvalidPakfile)
	}

	return data, nil
}

// rebuild writes a fresh stored-level zip following the compression mode.
func (l *PakfileLump) rebuild(enc *lumpEncoder, share float64) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	step := share
	if len(l.entries) > 0 {
		step = share / float64(len(l.entries))
	}

	for i, e := range l.entries {
		if err := l.writeEntry(zw, e, enc.mode); err != nil {
			_ = zw.Close()
			return nil, err
		}

		enc.progress.advance(StagePakfile, LumpPakfile, step,
			fmt.Sprintf("packing %s (%d/%d)", e.key, i+1, len(l.entries)))
	}

	if len(l.entries) == 0 {
		enc.progress.advance(StagePakfile, LumpPakfile, share, "packing empty pakfile")
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPakfile, err)
	}

	return buf.Bytes(), nil
}

// writeEntry copies an unchanged entry or encodes its payload.
func (l *PakfileLump) writeEntry(zw *zip.Writer, e *PakfileEntry, mode CompressionMode) error {
	modified := e.Modified()

	var lzma bool
	switch mode {
	case CompressionCompressed:
		lzma = true
	case CompressionUncompressed:
	default:
		if !modified && e.file != nil {
			if err := zw.Copy(e.file); err != nil {
				return fmt.Errorf("copy pakfile entry %q: %w", e.key, err)
			}
			return nil
		}
		lzma = l.anyLZMA
	}

	if !modified && e.file != nil {
		if want := zipMethodFor(lzma); e.file.Method == want {
			if err := zw.Copy(e.file); err != nil {
				return fmt.Errorf("copy pakfile entry %q: %w", e.key, err)
			}
			return nil
		}
	}

	data, err := e.Data()
	if err != nil {
		return err
	}

	fh := &zip.FileHeader{
		Name:               e.key,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	}
	fh.SetModTime(e.modTime)

	payload := [][]byte{data}
	if lzma && len(data) > 0 {
		props, stream, err := encodeLZMA(data, true)
		if err == nil && zipLZMAHeaderSize+len(stream) < len(data) {
			var hdr [zipLZMAHeaderSize]byte
			copy(hdr[:2], zipLZMAVersion[:])
			binary.LittleEndian.PutUint16(hdr[2:4], lzmaPropsSize)
			copy(hdr[4:], props[:])

			fh.Method = zipMethodLZMA
			fh.Flags |= zipFlagLZMAEOS
			fh.CompressedSize64 = uint64(zipLZMAHeaderSize + len(stream))
			payload = [][]byte{hdr[:], stream}
		}
	}

	w, err := zw.CreateRaw(fh)
	if err != nil {
		return fmt.Errorf("create pakfile entry %q: %w", e.key, err)
	}

	for _, part := range payload {
		if _, err := w.Write(part); err != nil {
			return fmt.Errorf("write pakfile entry %q: %w", e.key, err)
		}
	}

	return nil
}

func zipMethodFor(lzma bool) uint16 {
	if lzma {
		return zipMethodLZMA
	}

	return zip.Store
}
