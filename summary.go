// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"encoding/json"
	"fmt"
	"io"
)

// Summary is a JSON-friendly overview of a loaded BSP.
type Summary struct {
	Path        string            `json:"path,omitempty" yaml:"path,omitempty"`
	Lumps       []LumpSummary     `json:"lumps" yaml:"lumps"`
	GameLumps   []GameLumpSummary `json:"game_lumps,omitempty" yaml:"game_lumps,omitempty"`
	Pakfile     PakfileSummary    `json:"pakfile" yaml:"pakfile"`
	Version     int32             `json:"version" yaml:"version"`
	Revision    int32             `json:"revision" yaml:"revision"`
	EntityCount int               `json:"entity_count" yaml:"entity_count"`
	StaticProps int               `json:"static_props,omitempty" yaml:"static_props,omitempty"`
}

// LumpSummary describes one stored lump in physical order.
type LumpSummary struct {
	Type               string `json:"type" yaml:"type"`
	ID                 int    `json:"id" yaml:"id"`
	Offset             int64  `json:"offset" yaml:"offset"`
	Length             int64  `json:"length" yaml:"length"`
	UncompressedLength int64  `json:"uncompressed_length" yaml:"uncompressed_length"`
	Version            int32  `json:"version" yaml:"version"`
	Compressed         bool   `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// GameLumpSummary describes one game lump sub-entry.
type GameLumpSummary struct {
	ID         string `json:"id" yaml:"id"`
	Size       int    `json:"size" yaml:"size"`
	Version    uint16 `json:"version" yaml:"version"`
	Flags      uint16 `json:"flags,omitempty" yaml:"flags,omitempty"`
	Compressed bool   `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// PakfileSummary describes the embedded zip archive.
type PakfileSummary struct {
	Entries    []PakfileEntrySummary `json:"entries,omitempty" yaml:"entries,omitempty"`
	Size       int64                 `json:"size" yaml:"size"`
	Compressed bool                  `json:"compressed,omitempty" yaml:"compressed,omitempty"`
	Corrupt    bool                  `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`
}

// PakfileEntrySummary describes one pakfile entry.
type PakfileEntrySummary struct {
	Key            string `json:"key" yaml:"key"`
	Digest         string `json:"digest,omitempty" yaml:"digest,omitempty"`
	Size           int64  `json:"size" yaml:"size"`
	CompressedSize int64  `json:"compressed_size" yaml:"compressed_size"`
	Method         uint16 `json:"method" yaml:"method"`
}

// Summary collects lump table, entity count, game lump and pakfile listings.
// Digests reads every pakfile entry to compute content digests.
func (f *File) Summary(digests bool) (Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Summary{}, ErrClosed
	}

	s := Summary{
		Path:        f.path,
		Version:     f.Version,
		Revision:    f.Revision,
		EntityCount: len(f.Entities().Entities),
	}

	for _, t := range f.order {
		e := f.dir.Entries[t]
		if e.Empty() {
			continue
		}

		s.Lumps = append(s.Lumps, LumpSummary{
			Type:               t.String(),
			ID:                 int(t),
			Offset:             e.Offset,
			Length:             e.Length,
			UncompressedLength: e.UncompressedLength(),
			Version:            e.Version,
			Compressed:         e.Compressed(),
		})
	}

	for _, e := range f.GameLump().Entries() {
		data, err := e.Data(f.log())
		if err != nil {
			return Summary{}, fmt.Errorf("game lump %s: %w", e.ID, err)
		}

		s.GameLumps = append(s.GameLumps, GameLumpSummary{
			ID:         e.ID.String(),
			Size:       len(data),
			Version:    e.Version,
			Flags:      e.Flags,
			Compressed: e.Compressed(),
		})

		if props := e.StaticProps(); props != nil {
			s.StaticProps += len(props.Props)
		}
	}

	pak := f.Pakfile()
	s.Pakfile = PakfileSummary{
		Size:       pak.Len(),
		Compressed: pak.IsCompressed(),
		Corrupt:    pak.Corrupt(),
	}

	for _, e := range pak.Entries() {
		es := PakfileEntrySummary{
			Key:            e.Key(),
			Size:           e.Size(),
			CompressedSize: e.CompressedSize(),
			Method:         e.Method(),
		}

		if digests {
			d, err := e.Digest()
			if err != nil {
				return Summary{}, err
			}

			es.Digest = d.String()
		}

		s.Pakfile.Entries = append(s.Pakfile.Entries, es)
	}

	return s, nil
}

// WriteJSON writes the summary as indented JSON.
func (s Summary) WriteJSON(w io.Writer) error {
	if w == nil {
		return ErrNilWriter
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(s)
}
