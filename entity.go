// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"log/slog"
	"strconv"
	"strings"
)

const (
	// ioSeparatorESC separates I/O fields in newer compilers.
	ioSeparatorESC = '\x1b'
	// ioSeparatorComma separates I/O fields in older compilers.
	ioSeparatorComma = ','
	// ioFieldCount is the number of fields in an I/O connection.
	ioFieldCount = 5
	// classnameKey is the entity class property key.
	classnameKey = "classname"
)

// EntityIO is an output connection stored as an entity property value.
type EntityIO struct {
	Target      string  `json:"target" yaml:"target"`
	Input       string  `json:"input" yaml:"input"`
	Parameter   string  `json:"parameter" yaml:"parameter"`
	Delay       float32 `json:"delay" yaml:"delay"`
	TimesToFire int32   `json:"times_to_fire" yaml:"times_to_fire"`
	// Separator is the field separator used in file, ',' or ESC (0x1b).
	Separator byte `json:"separator" yaml:"separator"`
}

// ParseEntityIO parses value as an I/O connection.
// It requires exactly five fields separated by ESC or ',' with numeric delay and fire count.
func ParseEntityIO(value string) (*EntityIO, bool) {
	sep := byte(ioSeparatorComma)
	if strings.IndexByte(value, ioSeparatorESC) >= 0 {
		sep = ioSeparatorESC
	}

	fields := strings.Split(value, string(sep))
	if len(fields) != ioFieldCount {
		return nil, false
	}

	delay, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 32)
	if err != nil {
		return nil, false
	}

	times, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 32)
	if err != nil {
		return nil, false
	}

	return &EntityIO{
		Target:      fields[0],
		Input:       fields[1],
		Parameter:   fields[2],
		Delay:       float32(delay),
		TimesToFire: int32(times),
		Separator:   sep,
	}, true
}

// String formats the connection with its original separator.
func (c EntityIO) String() string {
	sep := c.Separator
	if sep == 0 {
		sep = ioSeparatorComma
	}

	var b strings.Builder
	b.WriteString(c.Target)
	b.WriteByte(sep)
	b.WriteString(c.Input)
	b.WriteByte(sep)
	b.WriteString(c.Parameter)
	b.WriteByte(sep)
	b.WriteString(strconv.FormatFloat(float64(c.Delay), 'f', -1, 32))
	b.WriteByte(sep)
	b.WriteString(strconv.FormatInt(int64(c.TimesToFire), 10))

	return b.String()
}

// EntityProperty is one key/value pair of an entity.
// IO is set for output connections; Value holds plain string values.
type EntityProperty struct {
	IO    *EntityIO `json:"io,omitempty" yaml:"io,omitempty"`
	Key   string    `json:"key" yaml:"key"`
	Value string    `json:"value,omitempty" yaml:"value,omitempty"`
}

// NewEntityProperty builds a property, detecting I/O connections.
func NewEntityProperty(key, value string) EntityProperty {
	if conn, ok := ParseEntityIO(value); ok {
		return EntityProperty{Key: key, IO: conn}
	}

	return EntityProperty{Key: key, Value: value}
}

// IsIO reports whether the property is an output connection.
func (p *EntityProperty) IsIO() bool { return p.IO != nil }

// ValueString returns value as written in the entity lump.
func (p *EntityProperty) ValueString() string {
	if p.IO != nil {
		return p.IO.String()
	}

	return p.Value
}

// SetValue replaces value and re-detects I/O connections.
func (p *EntityProperty) SetValue(value string) {
	*p = NewEntityProperty(p.Key, value)
}

// Entity is an ordered list of properties.
type Entity struct {
	Properties []EntityProperty `json:"properties" yaml:"properties"`
}

// newEntity builds entity from parsed pairs and reports class anomalies.
func newEntity(props []EntityProperty, log *slog.Logger) *Entity {
	ent := &Entity{Properties: props}

	classnames := 0
	for i := range props {
		if props[i].Key == classnameKey && !props[i].IsIO() {
			classnames++
		}
	}

	switch {
	case classnames == 0:
		log.Warn("entity has no classname", "properties", len(props))
	case classnames > 1:
		log.Warn("entity has duplicate classname keys, using first", "classname", ent.ClassName())
	}

	return ent
}

// ClassName returns first classname value, empty when missing.
func (e *Entity) ClassName() string {
	v, _ := e.Get(classnameKey)
	return v
}

// Get returns first value stored under key.
func (e *Entity) Get(key string) (string, bool) {
	for i := range e.Properties {
		if e.Properties[i].Key == key {
			return e.Properties[i].ValueString(), true
		}
	}

	return "", false
}

// Set replaces first value stored under key or appends a new property.
func (e *Entity) Set(key, value string) {
	for i := range e.Properties {
		if e.Properties[i].Key == key {
			e.Properties[i].SetValue(value)
			return
		}
	}

	e.Properties = append(e.Properties, NewEntityProperty(key, value))
}

// Delete removes every property stored under key and reports removed count.
func (e *Entity) Delete(key string) int {
	kept := e.Properties[:0]
	for _, p := range e.Properties {
		if p.Key != key {
			kept = append(kept, p)
		}
	}

	removed := len(e.Properties) - len(kept)
	e.Properties = kept

	return removed
}

// Name returns a short label for logs: targetname, then classname.
func (e *Entity) Name() string {
	if v, ok := e.Get("targetname"); ok && v != "" {
		return v
	}

	if v := e.ClassName(); v != "" {
		return v
	}

	return "<unnamed>"
}
