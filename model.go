// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"log/slog"
	"runtime"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	// LumpCount is the fixed number of rows in the BSP directory.
	LumpCount = 64

	headerMagic = "VBSP"
	// directoryRowSize covers offset, length, version and fourCC.
	directoryRowSize = 16
	headerSize       = 4 + 4 + LumpCount*directoryRowSize + 4
	lumpAlign        = 4
	physLevelAlign   = 16
	maxInt32         = 1<<31 - 1
)

// CompressionMode selects per-lump compression applied on save.
type CompressionMode string

// Save compression modes.
const (
	// CompressionUnchanged keeps every lump as it was loaded.
	CompressionUnchanged CompressionMode = "unchanged"
	// CompressionCompressed compresses every compressible lump and game lump entry.
	CompressionCompressed CompressionMode = "compressed"
	// CompressionUncompressed stores every lump raw.
	CompressionUncompressed CompressionMode = "uncompressed"
)

// BackupMode controls how SaveFile preserves the previous file.
type BackupMode string

// Backup modes for SaveFile.
const (
	// BackupNone overwrites without a backup.
	BackupNone BackupMode = "none"
	// BackupTimestamp copies the old file to `<name>_backup<unixms>.bsp`.
	BackupTimestamp BackupMode = "timestamp"
	// BackupRotate keeps `<file>.bak` generations, see SaveFileOptions.BackupKeep.
	BackupRotate BackupMode = "rotate"
)

// RefactorSurface names one kind of data the refactor engine can rewrite.
type RefactorSurface string

// Refactor surfaces.
const (
	SurfaceEntity     RefactorSurface = "entity"
	SurfacePakfile    RefactorSurface = "pakfile"
	SurfaceTexData    RefactorSurface = "texdata"
	SurfaceStaticProp RefactorSurface = "staticprop"
)

// AllRefactorSurfaces lists every surface in evaluation order.
var AllRefactorSurfaces = []RefactorSurface{
	SurfaceEntity,
	SurfacePakfile,
	SurfaceTexData,
	SurfaceStaticProp,
}

// DefaultTextFileTypes are pakfile entry patterns scanned for path references.
var DefaultTextFileTypes = []string{"*.txt", "*.vmt", "*.vbsp", "*.res", "*.cfg", "*.vsc"}

// LoadOptions configures Open and Load.
type LoadOptions struct {
	// Logger receives warnings about recoverable anomalies. Nil discards.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// OnProgress is called between lumps.
	OnProgress ProgressFunc `json:"-" yaml:"-"`
	// Preload reads unmanaged lumps into memory instead of keeping them file-backed.
	Preload bool `json:"preload,omitempty" yaml:"preload,omitempty"`
	// StrictEntities fails the load on the first malformed entity block.
	StrictEntities bool `json:"strict_entities,omitempty" yaml:"strict_entities,omitempty"`
}

// SaveOptions configures Save.
type SaveOptions struct {
	// Logger receives save diagnostics. Nil discards.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// OnProgress is called between lumps.
	OnProgress ProgressFunc `json:"-" yaml:"-"`
	// Compression selects compression for every lump. Default is CompressionUnchanged.
	Compression CompressionMode `json:"compression,omitempty" yaml:"compression,omitempty"`
	// MaxWorkers bounds parallel lump encoding (zero means GOMAXPROCS, negative means one worker).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
}

// SaveFileOptions configures SaveFile.
type SaveFileOptions struct {
	// SaveOptions are applied to the lump writer.
	SaveOptions SaveOptions `json:"save_options,omitzero" yaml:"save_options,omitzero"`
	// Backup selects how the previous file is preserved. Default is BackupNone.
	Backup BackupMode `json:"backup,omitempty" yaml:"backup,omitempty"`
	// BackupKeep controls rotated backup generations for BackupRotate.
	// 1 keeps only `<file>.bak`, N keeps `.bak` + `.bak.1..N-1`.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
}

// RefactorOptions configures UpdatePathReferences.
type RefactorOptions struct {
	// Logger receives replacement reports. Nil falls back to the file logger.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// Surfaces limits rewritten surfaces; empty means all.
	Surfaces []RefactorSurface `json:"surfaces,omitempty" yaml:"surfaces,omitempty"`
	// PakfileRules select pakfile entries scanned as text. Empty means DefaultTextFileTypes.
	PakfileRules []pathrules.Rule `json:"pakfile_rules,omitempty" yaml:"pakfile_rules,omitempty"`
	// PakfileMatcherOptions control pakfile rule matching.
	PakfileMatcherOptions pathrules.MatcherOptions `json:"pakfile_matcher_options,omitzero" yaml:"pakfile_matcher_options,omitzero"`
}

// ExtractOptions configures ExtractPakfile.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(key string, written int64, outputPath string) `json:"-" yaml:"-"`
	// Rules limit extracted entries; empty means all.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// RawNames disables default path sanitization during extract.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
	// Overwrite replaces existing files; otherwise existing files fail the extraction.
	Overwrite bool `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`
}

// applyDefaults fills zero-valued save options with defaults.
func (opts *SaveOptions) applyDefaults() {
	if opts.Compression == "" {
		opts.Compression = CompressionUnchanged
	}

	if opts.MaxWorkers == 0 {
		opts.MaxWorkers = runtime.GOMAXPROCS(0)
	}

	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
}

// applyDefaults fills zero-valued save-file options with defaults.
func (opts *SaveFileOptions) applyDefaults() {
	opts.SaveOptions.applyDefaults()

	if opts.Backup == "" {
		opts.Backup = BackupNone
	}

	if opts.BackupKeep < 1 {
		opts.BackupKeep = 1
	}
}

// applyDefaults fills zero-valued refactor options with defaults.
func (opts *RefactorOptions) applyDefaults() {
	if len(opts.Surfaces) == 0 {
		opts.Surfaces = AllRefactorSurfaces
	}

	if len(opts.PakfileRules) == 0 {
		opts.PakfileRules = includeRules(DefaultTextFileTypes...)
	}

	if opts.PakfileMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.PakfileMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.PakfileMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.PakfileMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = runtime.GOMAXPROCS(0)
	}

	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
}

// wants reports whether surface is enabled in opts.
func (opts *RefactorOptions) wants(surface RefactorSurface) bool {
	for _, s := range opts.Surfaces {
		if s == surface {
			return true
		}
	}

	return false
}

// compress resolves mode against current lump state.
func (m CompressionMode) compress(current bool) bool {
	switch m {
	case CompressionCompressed:
		return true
	case CompressionUncompressed:
		return false
	default:
		return current
	}
}

// valid reports whether m is one of the known modes.
func (m CompressionMode) valid() bool {
	switch m {
	case CompressionUnchanged, CompressionCompressed, CompressionUncompressed:
		return true
	default:
		return false
	}
}
