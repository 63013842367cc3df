package vbsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessMapRename(t *testing.T) {
	t.Parallel()

	f := New(DefaultVersion)
	f.Entities().Entities = []*Entity{{Properties: []EntityProperty{
		NewEntityProperty("classname", "func_water_analog"),
		NewEntityProperty("material", "maps/de_test/water.vmt"),
	}}}
	f.TexData().Records = []TexData{{Name: "maps/de_test/water"}, {Name: "concrete/floor01"}}

	pak := f.Pakfile()
	for _, e := range [][2]string{
		{"materials/maps/de_test/water.vmt", "\"Water\"\n{\n}\n"},
		{"materials/other/glass.vmt", "\"UnlitGeneric\"\n{\n\t\"$envmap\" \"maps/de_test/water\"\n}\n"},
		{"scripts/soundscapes_de_test.txt", "\"de_test.Ambient\"\n{\n}\n"},
		{"maps/de_test_level_sounds.txt", "\"level\"\n{\n}\n"},
		{"maps/de_test_particles.txt", "particles_manifest\n{\n}\n"},
		{"materials/maps/de_other/water.vmt", "\"Water\"\n{\n}\n"},
	} {
		_, err := pak.Add(e[0], []byte(e[1]))
		require.NoError(t, err)
	}

	renames, err := f.ProcessMapRename("maps/de_test.bsp", "de_renamed.bsp", RefactorOptions{})
	require.NoError(t, err)

	assert.Equal(t, []MapRename{
		{
			OldKey:   "materials/maps/de_test/water.vmt",
			NewKey:   "materials/maps/de_renamed/water.vmt",
			Surfaces: []RefactorSurface{SurfaceEntity, SurfacePakfile, SurfaceTexData},
		},
		{OldKey: "scripts/soundscapes_de_test.txt", NewKey: "scripts/soundscapes_de_renamed.txt"},
		{OldKey: "maps/de_test_level_sounds.txt", NewKey: "maps/de_renamed_level_sounds.txt"},
		{OldKey: "maps/de_test_particles.txt", NewKey: "maps/de_renamed_particles.txt"},
	}, renames)

	v, _ := f.Entities().Entities[0].Get("material")
	assert.Equal(t, "maps/de_renamed/water.vmt", v)
	assert.Equal(t, "maps/de_renamed/water", f.TexData().Records[0].Name)

	glass, ok := pak.Entry("materials/other/glass.vmt")
	require.True(t, ok)
	assert.Contains(t, string(mustData(t, glass)), `"$envmap" "maps/de_renamed/water"`)

	_, ok = pak.Entry("materials/maps/de_other/water.vmt")
	assert.True(t, ok)
}

func TestProcessMapRenameNoop(t *testing.T) {
	t.Parallel()

	f := New(DefaultVersion)
	_, err := f.Pakfile().Add("scripts/soundscapes_de_test.txt", []byte("x"))
	require.NoError(t, err)

	for _, names := range [][2]string{
		{"de_test", "DE_TEST.bsp"},
		{"", "de_renamed"},
		{"de_missing", "de_renamed"},
	} {
		renames, err := f.ProcessMapRename(names[0], names[1], RefactorOptions{})
		require.NoError(t, err)
		assert.Empty(t, renames, "%v", names)
	}

	_, ok := f.Pakfile().Entry("scripts/soundscapes_de_test.txt")
	assert.True(t, ok)
}
