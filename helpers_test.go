package vbsp

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// rawLump describes one lump of a hand-built BSP.
type rawLump struct {
	typ  LumpType
	data []byte
	// length overrides the directory length when non-zero.
	length int64
	// fourCC is written as is.
	fourCC int32
	// version is the per-lump version.
	version int32
}

// buildRawBSP lays lumps out in the given order right after the header,
// each aligned to 4 bytes, and returns file bytes.
func buildRawBSP(t *testing.T, version int32, lumps ...rawLump) []byte {
	t.Helper()

	buf := make([]byte, headerSize)
	copy(buf, headerMagic)
	binary.LittleEndian.PutUint32(buf[4:], uint32(version))

	for _, l := range lumps {
		for len(buf)%4 != 0 {
			buf = append(buf, 0)
		}

		offset := len(buf)
		buf = append(buf, l.data...)

		length := int64(len(l.data))
		if l.length != 0 {
			length = l.length
		}

		row := buf[8+int(l.typ)*directoryRowSize:]
		binary.LittleEndian.PutUint32(row[0:], uint32(offset))
		binary.LittleEndian.PutUint32(row[4:], uint32(length))
		binary.LittleEndian.PutUint32(row[8:], uint32(l.version))
		binary.LittleEndian.PutUint32(row[12:], uint32(l.fourCC))
	}

	binary.LittleEndian.PutUint32(buf[headerSize-4:], 7)
	return buf
}

// loadBytes decodes a BSP held in memory.
func loadBytes(t *testing.T, data []byte, opts LoadOptions) *File {
	t.Helper()

	f, err := Load(context.Background(), bytes.NewReader(data), int64(len(data)), opts)
	require.NoError(t, err)

	return f
}

// saveBytes writes f into memory and returns file bytes.
func saveBytes(t *testing.T, f *File, opts SaveOptions) []byte {
	t.Helper()

	var buf writeSeekBuffer
	require.NoError(t, f.Save(context.Background(), &buf, opts))

	return buf.Bytes()
}

// writeFile stores data in a temp dir and returns its path.
func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))

	return p
}

// buildZip returns a stored zip archive with entries in the given order.
func buildZip(t *testing.T, entries ...[2]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e[0], Method: zip.Store})
		require.NoError(t, err)
		_, err = w.Write([]byte(e[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

// entityText renders entities as they appear in the lump, including the final NUL.
func entityText(blocks ...string) []byte {
	var buf bytes.Buffer
	for _, b := range blocks {
		buf.WriteString(b)
		buf.WriteByte('\n')
	}
	buf.WriteByte(0)

	return buf.Bytes()
}

// testMap builds a small map covering every typed lump.
func testMap(t *testing.T) *File {
	t.Helper()

	f := New(DefaultVersion)

	ents := f.Entities()
	ents.Entities = []*Entity{
		{Properties: []EntityProperty{
			NewEntityProperty("classname", "worldspawn"),
			NewEntityProperty("skyname", "sky_day01_01"),
		}},
		{Properties: []EntityProperty{
			NewEntityProperty("classname", "prop_dynamic"),
			NewEntityProperty("model", "models/test/example.mdl"),
			NewEntityProperty("OnUser1", "door\x1bOpen\x1b\x1b0.5\x1b-1"),
		}},
	}

	f.TexData().Records = []TexData{
		{Name: "concrete/floor01", Width: 512, Height: 512, ViewWidth: 512, ViewHeight: 512},
		{Name: "tools/toolsnodraw", Width: 64, Height: 64, ViewWidth: 64, ViewHeight: 64},
	}
	f.TexInfo().Records = []TexInfo{{Flags: 1, TexData: 0}, {Flags: 0x80, TexData: 1}}

	props := &StaticPropLump{
		Version: 10,
		Names:   []string{"models/test/example.mdl", "models/test/crate.mdl"},
		Leaves:  []uint32{1, 2, 3},
		Props:   []StaticProp{{Raw: make([]byte, 76)}, {Raw: make([]byte, 76)}},
	}
	props.Props[1].SetModelIndex(1)
	require.NoError(t, f.GameLump().Add(NewStaticPropsEntry(props)))
	require.NoError(t, f.GameLump().Add(NewGameLumpEntry(GameLumpDetailProps, 4, make([]byte, 4096))))

	f.lumps[LumpVertexes] = NewRawLump(LumpVertexes, bytes.Repeat([]byte("vertex--"), 64))
	f.lumps[LumpPhysLevel] = NewRawLump(LumpPhysLevel, []byte("physics"))

	_, err := f.Pakfile().Add("materials/concrete/floor01.vmt", []byte("\"LightmappedGeneric\"\n{\n\t\"$basetexture\" \"concrete/floor01\"\n}\n"))
	require.NoError(t, err)
	_, err = f.Pakfile().Add("scripts/soundscapes_test.txt", []byte("\"test.Ambient\"\n{\n}\n"))
	require.NoError(t, err)

	return f
}

// writeSeekBuffer is an in-memory io.WriteSeeker.
type writeSeekBuffer struct {
	data []byte
	pos  int64
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		b.data = append(b.data, make([]byte, end-int64(len(b.data)))...)
	}

	copy(b.data[b.pos:], p)
	b.pos = end

	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += b.pos
	case io.SeekEnd:
		offset += int64(len(b.data))
	default:
		return 0, os.ErrInvalid
	}

	if offset < 0 {
		return 0, os.ErrInvalid
	}

	b.pos = offset
	return offset, nil
}

// Bytes returns written data.
func (b *writeSeekBuffer) Bytes() []byte { return b.data }

// logRecorder is a slog handler collecting messages by level.
type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func newLogRecorder() (*logRecorder, *slog.Logger) {
	r := &logRecorder{}
	return r, slog.New(r)
}

func (r *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *logRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	return nil
}

func (r *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }

func (r *logRecorder) WithGroup(string) slog.Handler { return r }

// count returns the number of records at level containing msg.
func (r *logRecorder) count(level slog.Level, msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, rec := range r.records {
		if rec.Level == level && bytes.Contains([]byte(rec.Message), []byte(msg)) {
			n++
		}
	}

	return n
}
