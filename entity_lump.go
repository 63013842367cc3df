// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Entity scanner errors.
var (
	errClosedUnopened   = errors.New("closed unopened section")
	errOpenedUnclosed   = errors.New("opened unclosed section")
	errStringUnopened   = errors.New("string in unopened section")
	errUnterminatedLast = errors.New("unterminated entity at end of lump")
)

// EntityLump is the text lump with map entities.
type EntityLump struct {
	lumpBase

	// Entities are kept in file order.
	Entities []*Entity
}

// NewEntityLump returns empty entity lump.
func NewEntityLump() *EntityLump {
	return &EntityLump{lumpBase: lumpBase{typ: LumpEntities}}
}

// Len returns encoded byte length.
func (l *EntityLump) Len() int64 {
	out, err := l.marshal()
	if err != nil {
		return 0
	}

	return int64(len(out))
}

// Empty reports whether lump has no entities.
func (l *EntityLump) Empty() bool { return len(l.Entities) == 0 }

// FindByClass returns entities with classname equal to class.
func (l *EntityLump) FindByClass(class string) []*Entity {
	var out []*Entity
	for _, ent := range l.Entities {
		if ent.ClassName() == class {
			out = append(out, ent)
		}
	}

	return out
}

func (l *EntityLump) decode(in *lumpInput) error {
	data, err := in.bytes()
	if err != nil {
		return err
	}

	ents, err := parseEntities(data, in.log, in.strict)
	if err != nil {
		return err
	}

	l.Entities = ents
	return nil
}

func (l *EntityLump) encode(*lumpEncoder) ([]byte, error) {
	return l.marshal()
}

// marshal writes entities as `{` / `"key" "value"` lines / `}` blocks ending with NUL.
func (l *EntityLump) marshal() ([]byte, error) {
	var buf bytes.Buffer
	for _, ent := range l.Entities {
		buf.WriteString("{\n")
		for i := range ent.Properties {
			p := &ent.Properties[i]
			buf.WriteByte('"')
			buf.WriteString(p.Key)
			buf.WriteString("\" \"")
			buf.WriteString(p.ValueString())
			buf.WriteString("\"\n")
		}
		buf.WriteString("}\n")
	}

	out, err := latin1Encode(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encode entities: %w", err)
	}

	return append(out, 0), nil
}

// entityScanner is the state machine for entity text.
type entityScanner struct {
	log    *slog.Logger
	data   []byte
	pos    int
	parsed int
}

// parseEntities reads every entity block from data.
// Malformed blocks are reported and skipped unless strict is set.
func parseEntities(data []byte, log *slog.Logger, strict bool) ([]*Entity, error) {
	sc := &entityScanner{log: log, data: data}
	var out []*Entity

	for {
		ent, done, err := sc.next()
		if errors.Is(err, errUnterminatedLast) {
			log.Warn("entity lump ends inside an entity, block dropped", "entity", sc.parsed)
			return out, nil
		}

		if err != nil {
			if strict {
				return nil, fmt.Errorf("entity %d at byte %d: %w", sc.parsed, sc.pos, err)
			}

			log.Error("failed to parse entity, saving may lose data",
				"entity", sc.parsed, "offset", sc.pos, "error", err)

			if !errors.Is(err, errClosedUnopened) {
				sc.skipEntity()
			}

			continue
		}

		if ent != nil {
			out = append(out, ent)
			sc.parsed++
		}

		if done {
			return out, nil
		}
	}
}

// next scans one entity. done is set on NUL or end of data.
func (sc *entityScanner) next() (ent *Entity, done bool, err error) {
	var (
		props     []EntityProperty
		str       []byte
		key       string
		haveKey   bool
		inSection bool
		inString  bool
	)

	for sc.pos < len(sc.data) {
		c := sc.data[sc.pos]
		sc.pos++

		if c == 0 {
			if inSection {
				return nil, true, errUnterminatedLast
			}
			return nil, true, nil
		}

		if inString {
			if c != '"' {
				str = append(str, c)
				continue
			}

			inString = false
			text := latin1Decode(str)
			str = str[:0]

			if !haveKey {
				key, haveKey = text, true
				continue
			}

			prop := NewEntityProperty(key, text)
			if key == "" && !prop.IsIO() {
				sc.log.Warn("entity property with empty key", "entity", sc.parsed, "value", text)
			}

			props = append(props, prop)
			haveKey = false
			continue
		}

		switch c {
		case '{':
			if inSection {
				return nil, false, errOpenedUnclosed
			}
			inSection = true

		case '}':
			if !inSection {
				return nil, false, errClosedUnopened
			}
			return newEntity(props, sc.log.With("entity", sc.parsed)), false, nil

		case '"':
			if !inSection {
				return nil, false, errStringUnopened
			}
			inString = true
		}
	}

	if inSection {
		return nil, true, errUnterminatedLast
	}

	return nil, true, nil
}

// skipEntity advances past the next '}' or stops before NUL.
func (sc *entityScanner) skipEntity() {
	for sc.pos < len(sc.data) {
		switch sc.data[sc.pos] {
		case '}':
			sc.pos++
			return
		case 0:
			return
		}
		sc.pos++
	}

	sc.log.Error("end of malformed entity not found", "entity", sc.parsed)
}

var latin1 = charmap.ISO8859_1

// latin1Decode converts single-byte text to UTF-8.
func latin1Decode(b []byte) string {
	out, err := latin1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}

	return string(out)
}

// latin1Encode converts UTF-8 text to single-byte text, replacing unmappable runes.
func latin1Encode(b []byte) ([]byte, error) {
	return encoding.ReplaceUnsupported(latin1.NewEncoder()).Bytes(b)
}
