// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
)

const (
	// staticPropNameSize is the fixed size of a model dictionary entry.
	staticPropNameSize = 128
	// staticPropV7sSize is the record size of the out-of-tree 7* layout.
	staticPropV7sSize = 72
	// staticPropWideLeafVersion is the first version with uint32 leaf indices.
	staticPropWideLeafVersion = 12
)

// staticPropRecordSizes maps prop lump version to record size.
var staticPropRecordSizes = map[uint16]int{
	4:  56,
	5:  60,
	6:  64,
	7:  68,
	8:  68,
	9:  72,
	10: 76,
	11: 80,
	12: 80,
	13: 88,
}

// StaticProp is one prop record kept as raw bytes of the version layout.
type StaticProp struct {
	Raw []byte `json:"-" yaml:"-"`
}

// Origin returns world position.
func (p StaticProp) Origin() [3]float32 {
	return [3]float32{getFloat32(p.Raw[0:]), getFloat32(p.Raw[4:]), getFloat32(p.Raw[8:])}
}

// Angles returns pitch, yaw and roll.
func (p StaticProp) Angles() [3]float32 {
	return [3]float32{getFloat32(p.Raw[12:]), getFloat32(p.Raw[16:]), getFloat32(p.Raw[20:])}
}

// ModelIndex returns the model dictionary index.
func (p StaticProp) ModelIndex() uint16 {
	return binary.LittleEndian.Uint16(p.Raw[24:])
}

// SetModelIndex changes the model dictionary index.
func (p StaticProp) SetModelIndex(i uint16) {
	binary.LittleEndian.PutUint16(p.Raw[24:], i)
}

// StaticPropLump is the decoded sprp game lump entry.
type StaticPropLump struct {
	// Names are model paths referenced by ModelIndex.
	Names []string `json:"names" yaml:"names"`
	// Leaves are BSP leaf indices referenced by props.
	Leaves []uint32 `json:"leaves" yaml:"leaves"`
	// Props are raw prop records.
	Props []StaticProp `json:"-" yaml:"-"`

	// Version is the game lump entry version the layout follows.
	Version uint16 `json:"version" yaml:"version"`

	recordSize int
}

// RecordSize returns byte size of one prop record.
func (l *StaticPropLump) RecordSize() int { return l.recordSize }

// ModelName returns dictionary name used by prop i.
func (l *StaticPropLump) ModelName(i int) (string, bool) {
	if i < 0 || i >= len(l.Props) {
		return "", false
	}

	idx := int(l.Props[i].ModelIndex())
	if idx >= len(l.Names) {
		return "", false
	}

	return l.Names[idx], true
}

// parseStaticProps decodes sprp payload of the given version.
func parseStaticProps(data []byte, version uint16, log *slog.Logger) (*StaticPropLump, error) {
	size, ok := staticPropRecordSizes[version]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidStaticProps, version)
	}

	r := &byteCursor{data: data}
	out := &StaticPropLump{Version: version}

	nameCount, err := r.count("model dictionary", staticPropNameSize)
	if err != nil {
		return nil, err
	}

	out.Names = make([]string, nameCount)
	for i := range out.Names {
		raw, err := r.take(staticPropNameSize)
		if err != nil {
			return nil, err
		}

		if end := bytes.IndexByte(raw, 0); end >= 0 {
			raw = raw[:end]
		}
		out.Names[i] = string(raw)
	}

	leafSize := 2
	if version >= staticPropWideLeafVersion {
		leafSize = 4
	}

	leafCount, err := r.count("leaf list", leafSize)
	if err != nil {
		return nil, err
	}

	out.Leaves = make([]uint32, leafCount)
	for i := range out.Leaves {
		raw, err := r.take(leafSize)
		if err != nil {
			return nil, err
		}

		if leafSize == 4 {
			out.Leaves[i] = binary.LittleEndian.Uint32(raw)
		} else {
			out.Leaves[i] = uint32(binary.LittleEndian.Uint16(raw))
		}
	}

	propCount, err := r.count("prop list", 0)
	if err != nil {
		return nil, err
	}

	rest := len(data) - r.pos
	if (version == 7 || version == 10) && propCount > 0 && rest%size != 0 && rest%staticPropV7sSize == 0 {
		log.Warn("static prop records do not fit version layout, using 7* layout",
			"version", version, "size", size, "fallback", staticPropV7sSize)
		size = staticPropV7sSize
	}

	if int64(propCount)*int64(size) != int64(rest) {
		return nil, fmt.Errorf("%w: %d props of %d bytes do not fill %d bytes",
			ErrInvalidStaticProps, propCount, size, rest)
	}

	out.recordSize = size
	out.Props = make([]StaticProp, propCount)
	for i := range out.Props {
		raw, _ := r.take(size)
		out.Props[i] = StaticProp{Raw: bytes.Clone(raw)}
	}

	return out, nil
}

// marshal writes dictionary, leaves and records.
func (l *StaticPropLump) marshal(log *slog.Logger) ([]byte, error) {
	size := l.recordSize
	if size == 0 {
		size = staticPropRecordSizes[l.Version]
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidStaticProps, l.Version)
	}

	leafSize := 2
	if l.Version >= staticPropWideLeafVersion {
		leafSize = 4
	}

	total := 12 + len(l.Names)*staticPropNameSize + len(l.Leaves)*leafSize + len(l.Props)*size
	out := make([]byte, 0, total)

	out = binary.LittleEndian.AppendUint32(out, uint32(len(l.Names)))
	for _, name := range l.Names {
		var field [staticPropNameSize]byte
		if len(name) >= staticPropNameSize {
			log.Warn("static prop model name too long, truncated", "name", name, "limit", staticPropNameSize-1)
			name = name[:staticPropNameSize-1]
		}
		copy(field[:], name)
		out = append(out, field[:]...)
	}

	out = binary.LittleEndian.AppendUint32(out, uint32(len(l.Leaves)))
	for _, leaf := range l.Leaves {
		if leafSize == 4 {
			out = binary.LittleEndian.AppendUint32(out, leaf)
		} else {
			out = binary.LittleEndian.AppendUint16(out, uint16(leaf))
		}
	}

	out = binary.LittleEndian.AppendUint32(out, uint32(len(l.Props)))
	for i, p := range l.Props {
		if len(p.Raw) != size {
			return nil, fmt.Errorf("%w: prop %d has %d bytes, want %d", ErrInvalidStaticProps, i, len(p.Raw), size)
		}
		out = append(out, p.Raw...)
	}

	return out, nil
}

// byteCursor reads counted sections of a little-endian buffer.
type byteCursor struct {
	data []byte
	pos  int
}

// take returns next n bytes.
func (c *byteCursor) take(n int) ([]byte, error) {
	if n < 0 || len(c.data)-c.pos < n {
		return nil, fmt.Errorf("%w: need %d bytes at %d, have %d", ErrInvalidStaticProps, n, c.pos, len(c.data)-c.pos)
	}

	out := c.data[c.pos : c.pos+n]
	c.pos += n

	return out, nil
}

// count reads an int32 element count and checks that elem-sized items fit.
func (c *byteCursor) count(what string, elem int) (int, error) {
	raw, err := c.take(4)
	if err != nil {
		return 0, fmt.Errorf("%s count: %w", what, err)
	}

	n := int32(binary.LittleEndian.Uint32(raw))
	if n < 0 {
		return 0, fmt.Errorf("%w: negative %s count %d", ErrInvalidStaticProps, what, n)
	}

	if elem > 0 && int64(n)*int64(elem) > int64(len(c.data)-c.pos) {
		return 0, fmt.Errorf("%w: %s count %d exceeds data", ErrInvalidStaticProps, what, n)
	}

	return int(n), nil
}
