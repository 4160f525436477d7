package compress

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

// ErrUnsupportedArchive is returned for archive names that are neither zip nor tar.
var ErrUnsupportedArchive = errors.New("unsupported archive type")

// ReadTar reads a TAR stream and returns the regular files whose base name is in names.
func ReadTar(r io.Reader, names ...string) (map[string][]byte, error) {
	tr := tar.NewReader(r)
	want := nameSet(names)
	out := make(map[string][]byte, len(names))

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		base := path.Base(header.Name)
		if !want[base] || skipEntry(header.Name) {
			continue
		}
		if _, dup := out[base]; dup {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s from tar: %w", header.Name, err)
		}
		out[base] = data
	}

	return out, nil
}

// WriteTar packs files into an uncompressed TAR stream.
func WriteTar(w io.Writer, files map[string][]byte) error {
	tw := tar.NewWriter(w)
	for _, name := range sortedKeys(files) {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(files[name])),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(files[name]); err != nil {
			return err
		}
	}
	return tw.Close()
}

// ReadArchive opens the archive at p, picking the format from its extension
// (.zip, .tar, .tar.gz, .tgz), and extracts the named members.
func ReadArchive(p string, names ...string) (map[string][]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return ReadZip(f, names...)
	case strings.HasSuffix(lower, ".tar"):
		return ReadTar(f, names...)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		return ReadTar(gz, names...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, p)
	}
}

func sortedKeys(files map[string][]byte) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
