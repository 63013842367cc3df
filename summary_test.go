package vbsp

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSummary(t *testing.T) {
	t.Parallel()

	f := loadBytes(t, saveBytes(t, testMap(t), SaveOptions{}), LoadOptions{})

	s, err := f.Summary(true)
	require.NoError(t, err)

	assert.Equal(t, int32(DefaultVersion), s.Version)
	assert.Equal(t, 2, s.EntityCount)
	assert.Equal(t, 2, s.StaticProps)

	require.Len(t, s.GameLumps, 2)
	assert.Equal(t, "sprp", s.GameLumps[0].ID)
	assert.Equal(t, "dprp", s.GameLumps[1].ID)
	assert.Equal(t, 4096, s.GameLumps[1].Size)

	require.NotEmpty(t, s.Lumps)
	for i := 1; i < len(s.Lumps); i++ {
		assert.Less(t, s.Lumps[i-1].Offset, s.Lumps[i].Offset)
	}

	require.Len(t, s.Pakfile.Entries, 2)
	e, ok := f.Pakfile().Entry(s.Pakfile.Entries[1].Key)
	require.True(t, ok)
	assert.Equal(t, digest.FromBytes(mustData(t, e)).String(), s.Pakfile.Entries[1].Digest)
	assert.Equal(t, f.Pakfile().Len(), s.Pakfile.Size)

	var buf bytes.Buffer
	require.NoError(t, s.WriteJSON(&buf))

	var decoded Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s, decoded)

	require.ErrorIs(t, s.WriteJSON(nil), ErrNilWriter)
}

func TestFileSummaryWithoutDigests(t *testing.T) {
	t.Parallel()

	s, err := testMap(t).Summary(false)
	require.NoError(t, err)

	assert.Empty(t, s.Lumps, "unsaved map has no directory")
	for _, e := range s.Pakfile.Entries {
		assert.Empty(t, e.Digest)
	}
}
