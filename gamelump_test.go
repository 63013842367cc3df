package vbsp

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameLumpEncodeParseRoundTrip(t *testing.T) {
	t.Parallel()

	discard := slog.New(slog.DiscardHandler)
	const base = 4096

	payloads := map[GameLumpID][]byte{
		GameLumpDetailProps:        bytes.Repeat([]byte("detail"), 300),
		GameLumpDetailPropLighting: bytes.Repeat([]byte{0x10, 0x20}, 500),
		GameLumpPropMaterialTint:   {1, 2, 3},
	}

	entries := []*GameLumpEntry{
		NewGameLumpEntry(GameLumpDetailProps, 4, payloads[GameLumpDetailProps]),
		NewGameLumpEntry(GameLumpDetailPropLighting, 0, payloads[GameLumpDetailPropLighting]),
		NewGameLumpEntry(GameLumpPropMaterialTint, 1, payloads[GameLumpPropMaterialTint]),
	}

	for _, mode := range []CompressionMode{CompressionUncompressed, CompressionCompressed} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			region, err := encodeGameLump(entries, base, mode, discard)
			require.NoError(t, err)

			// three entries plus the terminator row.
			require.Equal(t, uint32(4), binary.LittleEndian.Uint32(region))
			sentinel := region[4+3*gameLumpRowSize:]
			assert.Zero(t, binary.LittleEndian.Uint32(sentinel[0:]))
			assert.Equal(t, int32(base+len(region)), getInt32(sentinel[8:]))
			assert.Zero(t, getInt32(sentinel[12:]))

			got, err := parseGameLump(region, base, discard)
			require.NoError(t, err)
			require.Len(t, got, 3)

			for i, e := range got {
				assert.Equal(t, entries[i].ID, e.ID)
				assert.Equal(t, entries[i].Version, e.Version)

				data, err := e.Data(nil)
				require.NoError(t, err)
				assert.Equal(t, payloads[e.ID], data)
			}

			compressed := mode == CompressionCompressed
			assert.Equal(t, compressed, got[0].Compressed())
			assert.Equal(t, compressed, got[1].Compressed())
			assert.False(t, got[2].Compressed(), "tiny payload is stored raw")
		})
	}
}

func TestGameLumpUnchangedModeFollowsEntryFlags(t *testing.T) {
	t.Parallel()

	discard := slog.New(slog.DiscardHandler)
	e := NewGameLumpEntry(GameLumpDetailProps, 4, bytes.Repeat([]byte{0}, 2048))
	e.SetCompressed(true)
	plain := NewGameLumpEntry(GameLumpDetailPropLighting, 0, bytes.Repeat([]byte{0}, 2048))

	region, err := encodeGameLump([]*GameLumpEntry{e, plain}, 0, CompressionUnchanged, discard)
	require.NoError(t, err)

	got, err := parseGameLump(region, 0, discard)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Compressed())
	assert.False(t, got[1].Compressed())

	e.SetCompressed(false)
	assert.False(t, e.Compressed())
}

func TestParseGameLumpSkipsDuplicates(t *testing.T) {
	t.Parallel()

	region := make([]byte, 4+2*gameLumpRowSize)
	binary.LittleEndian.PutUint32(region, 2)
	offset := int32(len(region))
	putGameLumpRow(region[4:], GameLumpDetailProps, 0, 4, offset, 2)
	putGameLumpRow(region[4+gameLumpRowSize:], GameLumpDetailProps, 0, 4, offset, 2)
	region = append(region, 9, 9)

	rec, log := newLogRecorder()
	got, err := parseGameLump(region, 0, log)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, rec.count(slog.LevelWarn, "duplicate game lump entry"))
}

func TestParseGameLumpErrors(t *testing.T) {
	t.Parallel()

	discard := slog.New(slog.DiscardHandler)

	tooMany := make([]byte, 8)
	binary.LittleEndian.PutUint32(tooMany, 100)

	outside := make([]byte, 4+gameLumpRowSize)
	binary.LittleEndian.PutUint32(outside, 1)
	putGameLumpRow(outside[4:], GameLumpDetailProps, 0, 4, 1000, 16)

	before := make([]byte, 4+gameLumpRowSize)
	binary.LittleEndian.PutUint32(before, 1)
	putGameLumpRow(before[4:], GameLumpDetailProps, 0, 4, 10, 4)

	testCases := []struct {
		name   string
		region []byte
		base   int64
	}{
		{name: "short", region: []byte{1, 0}},
		{name: "negative count", region: []byte{0xff, 0xff, 0xff, 0xff}},
		{name: "rows overflow", region: tooMany},
		{name: "payload outside", region: outside},
		{name: "payload before base", region: before, base: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := parseGameLump(tc.region, tc.base, discard)
			require.ErrorIs(t, err, ErrInvalidGameLump)
		})
	}
}

func TestGameLumpAddRemove(t *testing.T) {
	t.Parallel()

	l := NewGameLump()
	require.ErrorIs(t, l.Add(nil), ErrInvalidGameLump)
	require.ErrorIs(t, l.Add(NewGameLumpEntry(0, 0, nil)), ErrInvalidGameLump)

	require.NoError(t, l.Add(NewGameLumpEntry(GameLumpDetailProps, 4, []byte{1})))
	require.NoError(t, l.Add(NewGameLumpEntry(GameLumpDetailProps, 5, []byte{2})))
	require.Len(t, l.Entries(), 1)

	e, ok := l.Entry(GameLumpDetailProps)
	require.True(t, ok)
	assert.Equal(t, uint16(5), e.Version)

	_, ok = l.StaticProps()
	assert.False(t, ok)

	assert.True(t, l.Remove(GameLumpDetailProps))
	assert.False(t, l.Remove(GameLumpDetailProps))
	assert.True(t, l.Empty())
}

func TestGameLumpIDString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sprp", GameLumpStaticProps.String())
	assert.Equal(t, "dprp", GameLumpDetailProps.String())
	assert.Equal(t, "0x00000001", GameLumpID(1).String())
}
