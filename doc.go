// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

/*
Package vbsp reads, edits and writes Source engine BSP map containers
(the "VBSP" format). A File holds all 64 lumps; a small set is decoded
into typed values (entities, texdata, string table, game lump, pakfile),
every other lump is kept as an opaque byte range that stays on disk
until it is read or rewritten.

Loading rules (summary):
  - the game lump length is inferred from the offset of the next lump;
  - lumps are decoded in physical file order, overlaps are warnings;
  - malformed entity blocks are skipped with a warning unless
    LoadOptions.StrictEntities is set;
  - LZMA lumps are decoded lazily by the lump that needs them.

# Reading

	f, err := vbsp.Open(ctx, "de_example.bsp", vbsp.LoadOptions{Logger: slog.Default()})
	if err != nil {
	    return err
	}
	defer f.Close()

	for _, e := range f.Entities().FindByClass("prop_dynamic") {
	    model, _ := e.Get("model")
	    _ = model
	}

For metadata-only scans, read the directory without decoding lumps:

	dir, err := vbsp.ReadDirectory("de_example.bsp")
	if err != nil {
	    return err
	}
	_ = dir.Entries[vbsp.LumpPakfile].Length

# Writing

Save writes lumps in their original physical order, header last:

	err := f.Save(ctx, out, vbsp.SaveOptions{Compression: vbsp.CompressionCompressed})

SaveFile writes through a temporary file and swaps it in place, so the
source may be overwritten while lazy lumps still read from it:

	err := f.SaveFile(ctx, "de_example.bsp", vbsp.SaveFileOptions{
	    Backup:     vbsp.BackupRotate,
	    BackupKeep: 2,
	})

# Refactoring

Rename an asset path across entities, pakfile text files, texture
names and static prop models:

	surfaces, err := f.UpdatePathReferences("materials/old/wall", "materials/new/wall", vbsp.RefactorOptions{})

Rename a map, moving its map-specific pakfile entries:

	renames, err := f.ProcessMapRename("de_example", "de_example_v2", vbsp.RefactorOptions{})

# Extracting

	err := f.ExtractPakfile(ctx, "out/", vbsp.ExtractOptions{
	    Rules: []pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "materials/**"}},
	})
*/
package vbsp
