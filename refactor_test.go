package vbsp

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entityMap returns a map holding one entity with the given properties.
func entityMap(props ...EntityProperty) *File {
	f := New(DefaultVersion)
	f.Entities().Entities = []*Entity{{Properties: props}}

	return f
}

func propValue(t *testing.T, f *File, key string) string {
	t.Helper()

	v, ok := f.Entities().Entities[0].Get(key)
	require.True(t, ok, key)

	return v
}

func TestUpdatePathReferencesEntityExactMatch(t *testing.T) {
	t.Parallel()

	f := entityMap(NewEntityProperty("model", "models/test/example.mdl"))

	got, err := f.UpdatePathReferences("models/test/example.mdl", "models/test/renamed.mdl", RefactorOptions{})
	require.NoError(t, err)
	assert.Equal(t, []RefactorSurface{SurfaceEntity}, got)
	assert.Equal(t, "models/test/renamed.mdl", propValue(t, f, "model"))
}

func TestUpdatePathReferencesRootOmission(t *testing.T) {
	t.Parallel()

	f := entityMap(
		NewEntityProperty("message", "test/sound.wav"),
		NewEntityProperty("noise", `SOUND\Test\Sound.wav`),
		NewEntityProperty("other", "test/sound.wav.bak"),
	)

	got, err := f.UpdatePathReferences("sound/test/sound.wav", "sound/test/renamed.wav", RefactorOptions{})
	require.NoError(t, err)
	assert.Equal(t, []RefactorSurface{SurfaceEntity}, got)
	assert.Equal(t, "test/renamed.wav", propValue(t, f, "message"))
	assert.Equal(t, "sound/test/renamed.wav", propValue(t, f, "noise"))
	assert.Equal(t, "test/sound.wav.bak", propValue(t, f, "other"))
}

func TestUpdatePathReferencesRefusesCrossRoot(t *testing.T) {
	t.Parallel()

	f := entityMap(NewEntityProperty("model", "models/test/example.mdl"))

	rec, log := newLogRecorder()
	got, err := f.UpdatePathReferences("models/test/example.mdl", "materials/test/example.vtf", RefactorOptions{Logger: log})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "models/test/example.mdl", propValue(t, f, "model"))
	assert.Equal(t, 1, rec.count(slog.LevelWarn, "between root directories"))
}

func TestUpdatePathReferencesPakfileExtensionOmission(t *testing.T) {
	t.Parallel()

	f := New(DefaultVersion)
	_, err := f.Pakfile().Add("materials/test/foo.vmt", []byte("\"LightmappedGeneric\"\n{\n\t\"$basetexture\" \"test/foo\"\n}\n"))
	require.NoError(t, err)
	_, err = f.Pakfile().Add("materials/test/foo.vtf", []byte("test/foo"))
	require.NoError(t, err)

	got, err := f.UpdatePathReferences("materials/test/foo.vtf", "materials/test/bar.vtf", RefactorOptions{})
	require.NoError(t, err)
	assert.Equal(t, []RefactorSurface{SurfacePakfile}, got)

	e, ok := f.Pakfile().Entry("materials/test/foo.vmt")
	require.True(t, ok)
	data, err := e.Data()
	require.NoError(t, err)
	assert.Equal(t, "\"LightmappedGeneric\"\n{\n\t\"$basetexture\" \"test/bar\"\n}\n", string(data))

	vtf, ok := f.Pakfile().Entry("materials/test/foo.vtf")
	require.True(t, ok)
	assert.Equal(t, "test/foo", string(mustData(t, vtf)), "only text types are scanned")
}

func mustData(t *testing.T, e *PakfileEntry) []byte {
	t.Helper()

	data, err := e.Data()
	require.NoError(t, err)

	return data
}

func TestUpdatePathReferencesTexData(t *testing.T) {
	t.Parallel()

	f := testMap(t)

	got, err := f.UpdatePathReferences("materials/concrete/floor01.vmt", "materials/concrete/floor02.vmt", RefactorOptions{})
	require.NoError(t, err)
	assert.Equal(t, []RefactorSurface{SurfacePakfile, SurfaceTexData}, got)
	assert.Equal(t, "concrete/floor02", f.TexData().Records[0].Name)
	assert.Equal(t, "tools/toolsnodraw", f.TexData().Records[1].Name)

	e, ok := f.Pakfile().Entry("materials/concrete/floor01.vmt")
	require.True(t, ok, "entry keys are not renamed")
	assert.Contains(t, string(mustData(t, e)), `"$basetexture" "concrete/floor02"`)
}

func TestUpdatePathReferencesStaticProps(t *testing.T) {
	t.Parallel()

	f := testMap(t)

	got, err := f.UpdatePathReferences("models/test/crate.mdl", "models/props/crate.mdl", RefactorOptions{})
	require.NoError(t, err)
	assert.Equal(t, []RefactorSurface{SurfaceStaticProp}, got)

	props, ok := f.GameLump().StaticProps()
	require.True(t, ok)
	assert.Equal(t, []string{"models/test/example.mdl", "models/props/crate.mdl"}, props.Names)

	g := loadBytes(t, saveBytes(t, f, SaveOptions{}), LoadOptions{})
	props, ok = g.GameLump().StaticProps()
	require.True(t, ok)
	name, ok := props.ModelName(1)
	require.True(t, ok)
	assert.Equal(t, "models/props/crate.mdl", name)
}

func TestUpdatePathReferencesSurfaceFilter(t *testing.T) {
	t.Parallel()

	f := testMap(t)

	got, err := f.UpdatePathReferences("models/test/example.mdl", "models/test/renamed.mdl", RefactorOptions{
		Surfaces: []RefactorSurface{SurfaceEntity},
	})
	require.NoError(t, err)
	assert.Equal(t, []RefactorSurface{SurfaceEntity}, got)

	props, ok := f.GameLump().StaticProps()
	require.True(t, ok)
	assert.Equal(t, "models/test/example.mdl", props.Names[0])

	got, err = f.UpdatePathReferences("models/test/example.mdl", "models/test/renamed.mdl", RefactorOptions{})
	require.NoError(t, err)
	assert.Equal(t, []RefactorSurface{SurfaceStaticProp}, got)
}

func TestUpdatePathReferencesNeedsSeparator(t *testing.T) {
	t.Parallel()

	f := entityMap(NewEntityProperty("model", "example.mdl"))

	got, err := f.UpdatePathReferences("example.mdl", "renamed.mdl", RefactorOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "example.mdl", propValue(t, f, "model"))
}

func TestUpdatePathReferencesSkipsIOConnections(t *testing.T) {
	t.Parallel()

	f := entityMap(
		NewEntityProperty("OnTrigger", "scripts/test/run.nut,Kill,,0,-1"),
		NewEntityProperty("vscripts", "scripts/test/run.nut"),
	)

	got, err := f.UpdatePathReferences("scripts/test/run.nut", "scripts/test/start.nut", RefactorOptions{})
	require.NoError(t, err)
	assert.Equal(t, []RefactorSurface{SurfaceEntity}, got)
	assert.Equal(t, "scripts/test/start.nut", propValue(t, f, "vscripts"))

	conn := f.Entities().Entities[0].Properties[0].IO
	require.NotNil(t, conn)
	assert.Equal(t, "scripts/test/run.nut", conn.Target)
}

func TestReplacePathReferences(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		text    string
		want    string
		changes int
	}{
		{name: "quoted", text: `"$surfaceprop" "foo/bar"`, want: `"$surfaceprop" "x/y"`, changes: 1},
		{name: "backslash", text: `"foo\bar"`, want: `"x/y"`, changes: 1},
		{name: "case", text: "FOO/BAR next", want: "x/y next", changes: 1},
		{name: "directory prefix", text: "foo/bar/sub", want: "x/y/sub", changes: 1},
		{name: "braces", text: "{foo/bar}", want: "{x/y}", changes: 1},
		{name: "repeated", text: "foo/bar\tfoo/bar", want: "x/y\tx/y", changes: 2},
		{name: "longer name", text: "foo/barbaz", want: "foo/barbaz"},
		{name: "nested", text: "baz/foo/bar", want: "baz/foo/bar"},
		{name: "unterminated quote", text: `"foo/bar`, want: `"foo/bar`},
		{name: "quote then space", text: `"foo/bar "`, want: `"foo/bar "`},
		{name: "empty", text: "", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, changes := replacePathReferences([]rune(tc.text), "foo/bar", "x/y", "foo/bar", nil)
			assert.Equal(t, tc.want, string(got))
			assert.Equal(t, tc.changes, changes)
		})
	}
}

func TestReplacePathReferencesIgnorableExtension(t *testing.T) {
	t.Parallel()

	exts := ignorableExtensions[".vmt"]
	text := []rune(`"$basetexture" "test/foo" "$bumpmap" "test/foo.vtf" "$detail" "test/foo_normal"`)

	got, changes := replacePathReferences(text, "test/foo.vtf", "test/bar.vtf", "test/foo.vtf", exts)
	assert.Equal(t, 2, changes)
	assert.Equal(t, `"$basetexture" "test/bar" "$bumpmap" "test/bar.vtf" "$detail" "test/foo_normal"`, string(got))

	got, changes = replacePathReferences(text, "test/foo.vtf", "test/bar.vtf", "test/foo.vtf", nil)
	assert.Equal(t, 1, changes)
	assert.Equal(t, `"$basetexture" "test/foo" "$bumpmap" "test/bar.vtf" "$detail" "test/foo_normal"`, string(got))
}

func TestCrossesRoot(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		old, new string
		want     bool
	}{
		{old: "models/a/b.mdl", new: "models/c/d.mdl"},
		{old: `MODELS\a\b.mdl`, new: "models/c.mdl"},
		{old: "models/a/b.mdl", new: "materials/a/b.vmt", want: true},
		{old: "models/a/b.mdl", new: "modelsx/a/b.mdl", want: true},
		{old: "maps/a/b.txt", new: "other/a/b.txt"},
	}

	for _, tc := range testCases {
		p, ok := splitRefactorPaths(tc.old, tc.new)
		require.True(t, ok, tc.old)
		assert.Equal(t, tc.want, p.crossesRoot(), "%s -> %s", tc.old, tc.new)
	}
}
