package loader

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Decode accepts a JSON array of documents, a single document, or a stream of
// newline-delimited documents. Numbers are kept as json.Number.
func Decode(r io.Reader) ([]any, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return []any{}, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	if first == '[' {
		var records []any
		if err := dec.Decode(&records); err != nil {
			return nil, err
		}
		if err := expectEOF(dec); err != nil {
			return nil, err
		}
		if records == nil {
			records = []any{}
		}
		return records, nil
	}

	records := []any{}
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", len(records)+1, err)
		}
		records = append(records, doc)
	}
	return records, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func expectEOF(dec *json.Decoder) error {
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after top-level array")
		}
		return err
	}
	return nil
}
