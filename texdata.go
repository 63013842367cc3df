// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"bytes"
	"log/slog"
)

// StringDataLump is the flat blob of NUL-terminated texture names.
// Its content is derived from TexData names on every save.
type StringDataLump struct {
	lumpBase
	data []byte
}

// NewStringDataLump returns string data lump holding data.
func NewStringDataLump(data []byte) *StringDataLump {
	return &StringDataLump{
		lumpBase: lumpBase{typ: LumpTexDataStringData},
		data:     data,
	}
}

// Bytes returns raw blob; callers must not modify it.
func (l *StringDataLump) Bytes() []byte { return l.data }

// Len returns logical uncompressed byte length.
func (l *StringDataLump) Len() int64 { return int64(len(l.data)) }

// Empty reports whether the blob is empty.
func (l *StringDataLump) Empty() bool { return len(l.data) == 0 }

// StringAt returns NUL-terminated string starting at offset.
// ok is false when offset is out of range; terminated is false when no NUL follows.
func (l *StringDataLump) StringAt(offset int32) (s string, terminated bool, ok bool) {
	if offset < 0 || int(offset) >= len(l.data) {
		return "", false, false
	}

	tail := l.data[offset:]
	end := bytes.IndexByte(tail, 0)
	if end < 0 {
		return string(tail), false, true
	}

	return string(tail[:end]), true, true
}

func (l *StringDataLump) decode(in *lumpInput) error {
	data, err := in.bytes()
	if err != nil {
		return err
	}

	l.data = data
	return nil
}

func (l *StringDataLump) encode(*lumpEncoder) ([]byte, error) {
	return l.data, nil
}

// resolveTexDataNames fills TexData.Name from string table and data lumps.
func resolveTexDataNames(texData *TexDataLump, table *StringTableLump, data *StringDataLump, log *slog.Logger) {
	for i := range texData.Records {
		rec := &texData.Records[i]
		if rec.NameIndex < 0 || int(rec.NameIndex) >= len(table.Records) {
			log.Warn("texdata name index outside string table", "texdata", i, "index", rec.NameIndex)
			continue
		}

		offset := table.Records[rec.NameIndex]
		name, terminated, ok := data.StringAt(offset)
		if !ok {
			log.Warn("texdata string offset outside string data", "texdata", i, "offset", offset)
			continue
		}

		if !terminated {
			log.Warn("texdata name is missing NUL terminator", "texdata", i, "name", name)
		}

		rec.Name = name
	}
}

// rebuildTexDataStrings regenerates string table and data from TexData names.
// Each texdata gets its own table slot in texdata order; the previous table
// and blob are replaced wholesale.
func rebuildTexDataStrings(texData *TexDataLump, table *StringTableLump, data *StringDataLump) {
	size := 0
	for i := range texData.Records {
		size += len(texData.Records[i].Name) + 1
	}

	blob := make([]byte, 0, size)
	offsets := make([]int32, len(texData.Records))
	for i := range texData.Records {
		rec := &texData.Records[i]
		offsets[i] = int32(len(blob))
		rec.NameIndex = int32(i)
		blob = append(blob, rec.Name...)
		blob = append(blob, 0)
	}

	table.Records = offsets
	data.data = blob
}
