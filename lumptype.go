// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vbsp

package vbsp

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// LumpType is the index of a lump in the 64-row BSP directory.
type LumpType int

// Lump type ids. The row index in the directory is the type id.
const (
	LumpEntities LumpType = iota
	LumpPlanes
	LumpTexData
	LumpVertexes
	LumpVisibility
	LumpNodes
	LumpTexInfo
	LumpFaces
	LumpLighting
	LumpOcclusion
	LumpLeafs
	LumpFaceIDs
	LumpEdges
	LumpSurfEdges
	LumpModels
	LumpWorldLights
	LumpLeafFaces
	LumpLeafBrushes
	LumpBrushes
	LumpBrushSides
	LumpAreas
	LumpAreaPortals
	LumpUnused0
	LumpUnused1
	LumpUnused2
	LumpUnused3
	LumpDispInfo
	LumpOriginalFaces
	LumpPhysDisp
	LumpPhysCollide
	LumpVertNormals
	LumpVertNormalIndices
	LumpDispLightmapAlphas
	LumpDispVerts
	LumpDispLightmapSamplePositions
	LumpGameLump
	LumpLeafWaterData
	LumpPrimitives
	LumpPrimVerts
	LumpPrimIndices
	LumpPakfile
	LumpClipPortalVerts
	LumpCubemaps
	LumpTexDataStringData
	LumpTexDataStringTable
	LumpOverlays
	LumpLeafMinDistToWater
	LumpFaceMacroTextureInfo
	LumpDispTris
	LumpPhysCollideSurface
	LumpWaterOverlays
	LumpLeafAmbientIndexHDR
	LumpLeafAmbientIndex
	LumpLightingHDR
	LumpWorldLightsHDR
	LumpLeafAmbientLightingHDR
	LumpLeafAmbientLighting
	LumpXZipPakfile
	LumpFacesHDR
	LumpMapFlags
	LumpOverlayFades
	LumpOverlaySystemLevels
	LumpPhysLevel
	LumpDispMultiBlend
)

var lumpTypeNames = [LumpCount]string{
	"entities", "planes", "texdata", "vertexes", "visibility", "nodes", "texinfo", "faces",
	"lighting", "occlusion", "leafs", "faceids", "edges", "surfedges", "models", "worldlights",
	"leaffaces", "leafbrushes", "brushes", "brushsides", "areas", "areaportals", "unused0", "unused1",
	"unused2", "unused3", "dispinfo", "originalfaces", "physdisp", "physcollide", "vertnormals", "vertnormalindices",
	"displightmapalphas", "dispverts", "displightmapsamplepositions", "gamelump", "leafwaterdata", "primitives", "primverts", "primindices",
	"pakfile", "clipportalverts", "cubemaps", "texdatastringdata", "texdatastringtable", "overlays", "leafmindisttowater", "facemacrotextureinfo",
	"disptris", "physcollidesurface", "wateroverlays", "leafambientindexhdr", "leafambientindex", "lightinghdr", "worldlightshdr", "leafambientlightinghdr",
	"leafambientlighting", "xzippakfile", "faceshdr", "mapflags", "overlayfades", "overlaysystemlevels", "physlevel", "dispmultiblend",
}

// Valid reports whether t addresses one of the 64 directory rows.
func (t LumpType) Valid() bool {
	return t >= 0 && t < LumpCount
}

// String returns lower-case lump name, or "lump<N>" for out of range ids.
func (t LumpType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("lump%d", int(t))
	}

	return lumpTypeNames[t]
}

// ParseLumpType resolves lump name (case-insensitive) or decimal id.
func ParseLumpType(raw string) (LumpType, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, n := range lumpTypeNames {
		if n == name {
			return LumpType(i), nil
		}
	}

	if id, err := strconv.Atoi(name); err == nil && LumpType(id).Valid() {
		return LumpType(id), nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidLumpType, raw)
}

// alignment returns write alignment for lump payload start.
func (t LumpType) alignment() int64 {
	if t == LumpPhysLevel {
		return physLevelAlign
	}

	return lumpAlign
}

// compressible reports whether the lump may use the top-level LZMA envelope.
// The game lump compresses its children and the pakfile compresses zip entries instead.
func (t LumpType) compressible() bool {
	return t != LumpGameLump && t != LumpPakfile
}

// GameLumpID is the four-character id of a game lump sub-entry.
type GameLumpID uint32

// Known game lump ids.
const (
	GameLumpStaticProps           GameLumpID = 0x73707270 // sprp
	GameLumpDetailProps           GameLumpID = 0x64707270 // dprp
	GameLumpDetailPropLighting    GameLumpID = 0x64706c74 // dplt
	GameLumpDetailPropLightingHDR GameLumpID = 0x64706c68 // dplh
	GameLumpPropMaterialTint      GameLumpID = 0x706d7469 // pmti
)

// String returns the four-character code, big-endian as written in Valve tools.
func (id GameLumpID) String() string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(id))
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(id))
		}
	}

	return string(b[:])
}
