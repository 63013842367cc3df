// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import "errors"

// Sentinel errors for BSP operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the file is missing the VBSP magic or the header is truncated.
	ErrInvalidHeader = errors.New("invalid BSP file: missing or bad header")
	// ErrDirectoryMismatch means the sorted lump list no longer matches the parsed directory.
	ErrDirectoryMismatch = errors.New("lump directory mismatch")
	// ErrLumpOutOfRange means a directory row points outside of the source.
	ErrLumpOutOfRange = errors.New("lump range outside of file")
	// ErrInvalidLumpType means the lump type id is outside 0..63.
	ErrInvalidLumpType = errors.New("invalid lump type")
	// ErrInvalidCompressedLump means an LZMA lump envelope is malformed.
	ErrInvalidCompressedLump = errors.New("invalid compressed lump")
	// ErrIncompressible means compression did not shrink the payload; data is kept raw.
	ErrIncompressible = errors.New("payload is incompressible")
	// ErrInvalidGameLump means the game lump sub-directory cannot be parsed.
	ErrInvalidGameLump = errors.New("invalid game lump")
	// ErrInvalidStaticProps means the static prop game lump does not match its version layout.
	ErrInvalidStaticProps = errors.New("invalid static prop lump")
	// ErrInvalidPakfile means the pakfile lump is not a readable zip archive.
	ErrInvalidPakfile = errors.New("invalid pakfile archive")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrClosed means the file or its backing storage is already closed.
	ErrClosed = errors.New("file or backing storage already closed")
	// ErrSizeOverflow means a lump or offset exceeds the int32 range of the format.
	ErrSizeOverflow = errors.New("size exceeds int32 BSP limit")
	// ErrEntryNotFound means the pakfile entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidEntryPath means a pakfile entry path is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrDuplicateEntryPath means two pakfile entries resolve to the same path (case-insensitive).
	ErrDuplicateEntryPath = errors.New("duplicate entry path")
	// ErrInvalidRules means one or more path rules are invalid.
	ErrInvalidRules = errors.New("invalid path rules")
	// ErrInvalidExtractPath means pakfile entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrExtractPathOutsideRoot means resolved extraction path escapes destination root.
	ErrExtractPathOutsideRoot = errors.New("extract path escapes destination root")
	// ErrBackup means the backup copy could not be created before saving.
	ErrBackup = errors.New("backup failed")
	// ErrSwap means the saved file could not replace the file backing lazy lumps.
	ErrSwap = errors.New("atomic file swap failed")
	// ErrUnknownCompressionMode means SaveOptions.Compression holds an unknown value.
	ErrUnknownCompressionMode = errors.New("unknown compression mode")
)
