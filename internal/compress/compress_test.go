package compress

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixture = map[string][]byte{
	"export/receipts.json":         []byte(`[{"a":1}]`),
	"export/brands.json":           []byte(`[]`),
	"__MACOSX/export/._users.json": []byte("junk"),
	"export/users.json":            []byte(`[{"u":true}]`),
	"export/readme.txt":            []byte("hi"),
}

func TestReadZip_ByBaseName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteZip(&buf, fixture))

	got, err := ReadZip(&buf, "receipts.json", "users.json", "missing.json")
	require.NoError(t, err)

	assert.Len(t, got, 2)
	assert.Equal(t, `[{"a":1}]`, string(got["receipts.json"]))
	assert.Equal(t, `[{"u":true}]`, string(got["users.json"]))
}

func TestReadTar_ByBaseName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTar(&buf, fixture))

	got, err := ReadTar(&buf, "brands.json", "readme.txt")
	require.NoError(t, err)

	assert.Equal(t, `[]`, string(got["brands.json"]))
	assert.Equal(t, "hi", string(got["readme.txt"]))
}

func TestReadArchive_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	var tarBuf bytes.Buffer
	require.NoError(t, WriteTar(&tarBuf, fixture))

	var tgz bytes.Buffer
	gz := gzip.NewWriter(&tgz)
	_, err := gz.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	var zipBuf bytes.Buffer
	require.NoError(t, WriteZip(&zipBuf, fixture))

	paths := map[string][]byte{
		"data.tar":    tarBuf.Bytes(),
		"data.tgz":    tgz.Bytes(),
		"data.tar.gz": tgz.Bytes(),
		"data.ZIP":    zipBuf.Bytes(),
	}
	for name, content := range paths {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, content, 0o644))

		got, err := ReadArchive(p, "receipts.json")
		require.NoError(t, err, name)
		assert.Equal(t, `[{"a":1}]`, string(got["receipts.json"]), name)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.rar"), []byte("x"), 0o644))
	_, err = ReadArchive(filepath.Join(dir, "data.rar"), "receipts.json")
	assert.ErrorIs(t, err, ErrUnsupportedArchive)
}
