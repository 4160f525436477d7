package compress

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// ReadZip reads the whole ZIP archive from r and returns the content of every
// regular file whose base name is in names, keyed by that base name.
// Names not present in the archive are simply absent from the result.
func ReadZip(r io.Reader, names ...string) (map[string][]byte, error) {
	// Read the entire archive into a buffer, zip needs io.ReaderAt
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return nil, fmt.Errorf("open zip archive: %w", err)
	}

	want := nameSet(names)
	out := make(map[string][]byte, len(names))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(f.Name)
		if !want[base] || skipEntry(f.Name) {
			continue
		}
		if _, dup := out[base]; dup {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s from zip: %w", f.Name, err)
		}
		out[base] = data
	}

	return out, nil
}

// WriteZip packs files into a ZIP archive. Used to prepare fixtures.
func WriteZip(w io.Writer, files map[string][]byte) error {
	zw := zip.NewWriter(w)
	for _, name := range sortedKeys(files) {
		f, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := f.Write(files[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// skipEntry filters archive noise such as macOS resource forks.
func skipEntry(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._")
}
