package vbsp

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildTexDataStrings(t *testing.T) {
	t.Parallel()

	texData := NewTexDataLump()
	texData.Records = []TexData{
		{Name: "brick/wall01", NameIndex: 9},
		{Name: "brick/wall01", NameIndex: 3},
		{Name: "glass/window"},
	}
	table := NewStringTableLump()
	table.Records = []int32{100, 200}
	data := NewStringDataLump([]byte("stale"))

	rebuildTexDataStrings(texData, table, data)

	assert.Equal(t, []int32{0, 13, 26}, table.Records)
	assert.Equal(t, "brick/wall01\x00brick/wall01\x00glass/window\x00", string(data.Bytes()))
	for i, rec := range texData.Records {
		assert.Equal(t, int32(i), rec.NameIndex)
	}

	for i := range texData.Records {
		texData.Records[i].Name = ""
	}
	resolveTexDataNames(texData, table, data, slog.New(slog.DiscardHandler))
	assert.Equal(t, "glass/window", texData.Records[2].Name)
}

func TestResolveTexDataNamesWarnings(t *testing.T) {
	t.Parallel()

	texData := NewTexDataLump()
	texData.Records = []TexData{{NameIndex: 5}, {NameIndex: 0}, {NameIndex: 1}}
	table := NewStringTableLump()
	table.Records = []int32{0, 50}
	data := NewStringDataLump([]byte("dev/unterminated"))

	rec, log := newLogRecorder()
	resolveTexDataNames(texData, table, data, log)

	assert.Equal(t, 1, rec.count(slog.LevelWarn, "outside string table"))
	assert.Equal(t, 1, rec.count(slog.LevelWarn, "outside string data"))
	assert.Equal(t, 1, rec.count(slog.LevelWarn, "missing NUL"))
	assert.Equal(t, "dev/unterminated", texData.Records[1].Name)
}

func TestRecordLumpTrailingBytes(t *testing.T) {
	t.Parallel()

	raw := make([]byte, texInfoRecordSize*2+5)
	putInt32(raw[68:], 3)
	putFloat32(raw[texInfoRecordSize:], 1.5)

	data := buildRawBSP(t, DefaultVersion, rawLump{typ: LumpTexInfo, data: raw})

	rec, log := newLogRecorder()
	f := loadBytes(t, data, LoadOptions{Logger: log})

	records := f.TexInfo().Records
	require.Len(t, records, 2)
	assert.Equal(t, int32(3), records[0].TexData)
	assert.InDelta(t, 1.5, records[1].TextureVecs[0][0], 1e-6)
	assert.Equal(t, 1, rec.count(slog.LevelWarn, "not a multiple of record size"))
	assert.Equal(t, int64(texInfoRecordSize*2), f.TexInfo().Len())
}
