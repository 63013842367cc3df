package vbsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "slash", in: "/", want: ""},
		{name: "clean", in: "materials/brick/wall01.vmt", want: "materials/brick/wall01.vmt"},
		{name: "windows", in: `.\materials\brick\`, want: "materials/brick"},
		{name: "dot segments", in: "./a/../b//c.txt", want: "b/c.txt"},
		{name: "spaces", in: "  sound/a.wav  ", want: "sound/a.wav"},
		{name: "climb out", in: `..\..\models\prop.mdl`, want: "models/prop.mdl"},
		{name: "double slash", in: "//scripts//vscripts/", want: "scripts/vscripts"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, NormalizePath(tc.in))
		})
	}
}

func TestNormalizePakfileKey(t *testing.T) {
	t.Parallel()

	got, err := normalizePakfileKey(`\Materials\Brick\wall01.vmt`)
	require.NoError(t, err)
	assert.Equal(t, "Materials/Brick/wall01.vmt", got)

	for _, in := range []string{"", "  ", "/", "./"} {
		_, err := normalizePakfileKey(in)
		require.ErrorIs(t, err, ErrInvalidEntryPath, "%q", in)
	}
}

func TestSlashPattern(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/materials/**/*.vmt", slashPattern(`\materials\**\*.vmt`))
	assert.Equal(t, "sound/", slashPattern(" ./sound/ "))
	assert.Empty(t, slashPattern("  "))
}

func TestSamePath(t *testing.T) {
	t.Parallel()

	assert.True(t, samePath(`MATERIALS\brick\Wall01.VMT`, "materials/brick/wall01.vmt"))
	assert.True(t, samePath("./sound/a.wav", "sound/a.wav"))
	assert.False(t, samePath("sound/a.wav", "sound/b.wav"))
	assert.True(t, hasPathSeparator(`a\b`))
	assert.False(t, hasPathSeparator("a.b"))
}
