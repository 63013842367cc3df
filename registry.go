// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import "fmt"

// newLump allocates the lump variant that owns type t.
func newLump(t LumpType) Lump {
	switch t {
	case LumpEntities:
		return NewEntityLump()
	case LumpTexData:
		return NewTexDataLump()
	case LumpTexInfo:
		return NewTexInfoLump()
	case LumpTexDataStringTable:
		return NewStringTableLump()
	case LumpTexDataStringData:
		return NewStringDataLump(nil)
	case LumpGameLump:
		return NewGameLump()
	case LumpPakfile:
		return NewPakfileLump()
	default:
		return NewRawLump(t, nil)
	}
}

// sameVariant reports whether l is the variant the registry allocates for t.
func sameVariant(t LumpType, l Lump) bool {
	switch t {
	case LumpEntities:
		_, ok := l.(*EntityLump)
		return ok
	case LumpTexData:
		_, ok := l.(*TexDataLump)
		return ok
	case LumpTexInfo:
		_, ok := l.(*TexInfoLump)
		return ok
	case LumpTexDataStringTable:
		_, ok := l.(*StringTableLump)
		return ok
	case LumpTexDataStringData:
		_, ok := l.(*StringDataLump)
		return ok
	case LumpGameLump:
		_, ok := l.(*GameLump)
		return ok
	case LumpPakfile:
		_, ok := l.(*PakfileLump)
		return ok
	default:
		_, ok := l.(*RawLump)
		return ok
	}
}

// checkLumpVariant validates lump placement at row t.
func checkLumpVariant(t LumpType, l Lump) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLumpType, int(t))
	}

	if l == nil || l.Type() != t || !sameVariant(t, l) {
		return fmt.Errorf("%w: lump does not fit row %s", ErrInvalidLumpType, t)
	}

	return nil
}
