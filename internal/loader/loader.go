// Package loader reads the receipts, brands and users exports from a
// directory or an archive and decodes them into generic JSON documents.
package loader

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/drstein77/receiptanalyzer/internal/compress"
	"go.uber.org/zap"
)

const (
	ReceiptsFile = "receipts.json"
	BrandsFile   = "brands.json"
	UsersFile    = "users.json"
)

// ErrMissingFile is returned when one of the three exports cannot be found.
var ErrMissingFile = errors.New("input file not found")

type Log interface {
	Info(string, ...zap.Field)
}

// Source tells Load where the exports live. Archive wins over Dir when set.
type Source struct {
	Dir     string
	Archive string
}

// Documents holds the decoded records of each export.
type Documents struct {
	Receipts []any
	Brands   []any
	Users    []any
}

// Load locates all three exports first and only then decodes them, so a
// missing file aborts before anything is parsed or written.
func Load(ctx context.Context, src Source, log Log) (*Documents, error) {
	names := []string{ReceiptsFile, BrandsFile, UsersFile}

	var (
		raw map[string][]byte
		err error
	)
	if src.Archive != "" {
		raw, err = fromArchive(src.Archive, names)
	} else {
		raw, err = fromDir(src.Dir, names)
	}
	if err != nil {
		return nil, err
	}

	decoded := make(map[string][]any, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := Decode(bytes.NewReader(raw[name]))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		log.Info("export decoded", zap.String("file", name), zap.Int("records", len(records)))
		decoded[name] = records
	}

	return &Documents{
		Receipts: decoded[ReceiptsFile],
		Brands:   decoded[BrandsFile],
		Users:    decoded[UsersFile],
	}, nil
}

// fromDir reads name, falling back to name.gz.
func fromDir(dir string, names []string) (map[string][]byte, error) {
	if dir == "" {
		dir = "."
	}

	paths := make(map[string]string, len(names))
	for _, name := range names {
		p, err := locate(dir, name)
		if err != nil {
			return nil, err
		}
		paths[name] = p
	}

	out := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := readMaybeGzip(paths[name])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", paths[name], err)
		}
		out[name] = data
	}
	return out, nil
}

func locate(dir, name string) (string, error) {
	for _, candidate := range []string{name, name + ".gz"} {
		p := filepath.Join(dir, candidate)
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissingFile, filepath.Join(dir, name))
}

func readMaybeGzip(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if filepath.Ext(p) != ".gz" {
		return io.ReadAll(f)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

func fromArchive(archive string, names []string) (map[string][]byte, error) {
	if _, err := os.Stat(archive); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, archive)
	}

	raw, err := compress.ReadArchive(archive, names...)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", archive, err)
	}
	for _, name := range names {
		if _, ok := raw[name]; !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingFile, name, archive)
		}
	}
	return raw, nil
}
