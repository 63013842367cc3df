// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"encoding/binary"
	"math"
)

// RecordLump is a lump made of fixed-size little-endian records.
type RecordLump[T any] struct {
	lumpBase
	read  func(b []byte) T
	write func(b []byte, v T)

	// Records are decoded items in file order.
	Records []T

	size int
}

// newRecordLump builds a record lump with codec functions for one record.
func newRecordLump[T any](t LumpType, size int, read func([]byte) T, write func([]byte, T)) *RecordLump[T] {
	return &RecordLump[T]{
		lumpBase: lumpBase{typ: t},
		size:     size,
		read:     read,
		write:    write,
	}
}

// RecordSize returns the byte size of one record.
func (l *RecordLump[T]) RecordSize() int { return l.size }

// Len returns logical uncompressed byte length.
func (l *RecordLump[T]) Len() int64 { return int64(len(l.Records)) * int64(l.size) }

// Empty reports whether the lump has no records.
func (l *RecordLump[T]) Empty() bool { return len(l.Records) == 0 }

func (l *RecordLump[T]) decode(in *lumpInput) error {
	data, err := in.bytes()
	if err != nil {
		return err
	}

	count := len(data) / l.size
	if rem := len(data) % l.size; rem != 0 {
		in.log.Warn("lump length is not a multiple of record size, trailing bytes dropped",
			"lump", l.typ, "length", len(data), "record_size", l.size, "remainder", rem)
	}

	l.Records = make([]T, count)
	for i := range l.Records {
		l.Records[i] = l.read(data[i*l.size : (i+1)*l.size])
	}

	return nil
}

func (l *RecordLump[T]) encode(*lumpEncoder) ([]byte, error) {
	out := make([]byte, len(l.Records)*l.size)
	for i, rec := range l.Records {
		l.write(out[i*l.size:(i+1)*l.size], rec)
	}

	return out, nil
}

// Fixed record sizes.
const (
	texDataRecordSize     = 32
	texInfoRecordSize     = 72
	stringTableRecordSize = 4
)

// TexData describes one texture used by faces.
type TexData struct {
	// Name is the material path without "materials/" prefix and ".vmt" extension.
	// It is resolved from string table on load and written back on save.
	Name string `json:"name" yaml:"name"`
	// Reflectivity is the average RGB color of the texture.
	Reflectivity [3]float32 `json:"reflectivity" yaml:"reflectivity"`
	// NameIndex is the string table index stored in file.
	// It is reassigned on every save.
	NameIndex int32 `json:"name_index" yaml:"name_index"`
	Width     int32 `json:"width" yaml:"width"`
	Height    int32 `json:"height" yaml:"height"`
	ViewWidth int32 `json:"view_width" yaml:"view_width"`
	// ViewHeight is the view height of the source texture.
	ViewHeight int32 `json:"view_height" yaml:"view_height"`
}

// TexInfo maps texture space onto a face.
type TexInfo struct {
	TextureVecs  [2][4]float32 `json:"texture_vecs" yaml:"texture_vecs"`
	LightmapVecs [2][4]float32 `json:"lightmap_vecs" yaml:"lightmap_vecs"`
	Flags        int32         `json:"flags" yaml:"flags"`
	TexData      int32         `json:"texdata" yaml:"texdata"`
}

// TexDataLump holds TexData records.
type TexDataLump = RecordLump[TexData]

// TexInfoLump holds TexInfo records.
type TexInfoLump = RecordLump[TexInfo]

// StringTableLump holds offsets of texture names in the string data lump.
type StringTableLump = RecordLump[int32]

// NewTexDataLump returns empty texdata lump.
func NewTexDataLump() *TexDataLump {
	return newRecordLump(LumpTexData, texDataRecordSize, readTexData, writeTexData)
}

// NewTexInfoLump returns empty texinfo lump.
func NewTexInfoLump() *TexInfoLump {
	return newRecordLump(LumpTexInfo, texInfoRecordSize, readTexInfo, writeTexInfo)
}

// NewStringTableLump returns empty texdata string table lump.
func NewStringTableLump() *StringTableLump {
	return newRecordLump(LumpTexDataStringTable, stringTableRecordSize,
		func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) },
		func(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) },
	)
}

func readTexData(b []byte) TexData {
	return TexData{
		Reflectivity: [3]float32{getFloat32(b[0:]), getFloat32(b[4:]), getFloat32(b[8:])},
		NameIndex:    getInt32(b[12:]),
		Width:        getInt32(b[16:]),
		Height:       getInt32(b[20:]),
		ViewWidth:    getInt32(b[24:]),
		ViewHeight:   getInt32(b[28:]),
	}
}

func writeTexData(b []byte, v TexData) {
	for i, f := range v.Reflectivity {
		putFloat32(b[i*4:], f)
	}

	putInt32(b[12:], v.NameIndex)
	putInt32(b[16:], v.Width)
	putInt32(b[20:], v.Height)
	putInt32(b[24:], v.ViewWidth)
	putInt32(b[28:], v.ViewHeight)
}

func readTexInfo(b []byte) TexInfo {
	var v TexInfo
	for i := range 2 {
		for j := range 4 {
			v.TextureVecs[i][j] = getFloat32(b[(i*4+j)*4:])
			v.LightmapVecs[i][j] = getFloat32(b[32+(i*4+j)*4:])
		}
	}

	v.Flags = getInt32(b[64:])
	v.TexData = getInt32(b[68:])

	return v
}

func writeTexInfo(b []byte, v TexInfo) {
	for i := range 2 {
		for j := range 4 {
			putFloat32(b[(i*4+j)*4:], v.TextureVecs[i][j])
			putFloat32(b[32+(i*4+j)*4:], v.LightmapVecs[i][j])
		}
	}

	putInt32(b[64:], v.Flags)
	putInt32(b[68:], v.TexData)
}

func getInt32(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }

func putInt32(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) }

func getFloat32(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }

func putFloat32(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }
