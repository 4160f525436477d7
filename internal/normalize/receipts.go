package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	ScannedDateSource = "dateScanned.$date"
	ScannedDate       = "dateScanned"
	ItemList          = "rewardsReceiptItemList"
)

// ErrBadDate is returned when a scanned date cannot be read as epoch milliseconds.
var ErrBadDate = errors.New("scanned date is not an integer")

type Log interface {
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
}

// Receipts applies the receipt rules in place and returns the same table:
// the scanned date moves to a plain column, rows without it are dropped, it is
// coerced to int64 epoch milliseconds, and the item list is serialized to JSON text.
func Receipts(t *Table, log Log) (*Table, error) {
	if !t.RenameColumn(ScannedDateSource, ScannedDate) {
		log.Warn("column not found; check JSON structure", zap.String("column", ScannedDateSource))
	}

	if !t.HasColumn(ScannedDate) {
		log.Warn("no scanned date column, every receipt will be dropped", zap.String("column", ScannedDate))
	}

	kept := t.Rows[:0]
	for i, row := range t.Rows {
		v, ok := row[ScannedDate]
		if !ok || v == nil {
			continue
		}
		ms, err := toEpochMillis(v)
		if err != nil {
			return nil, fmt.Errorf("receipt row %d: %w", i, err)
		}
		row[ScannedDate] = ms
		kept = append(kept, row)
	}
	if dropped := len(t.Rows) - len(kept); dropped > 0 {
		log.Info("dropped receipts without a scanned date", zap.Int("dropped", dropped), zap.Int("kept", len(kept)))
	}
	t.Rows = kept

	if !t.HasColumn(ItemList) {
		log.Warn("column not found, skipping", zap.String("column", ItemList))
		return t, nil
	}
	for i, row := range t.Rows {
		text, err := Stringify(row[ItemList])
		if err != nil {
			return nil, fmt.Errorf("receipt row %d: serialize %s: %w", i, ItemList, err)
		}
		if text == nil {
			delete(row, ItemList)
			continue
		}
		row[ItemList] = *text
	}

	return t, nil
}

// Stringify renders a nested value as JSON text. Strings are returned as is
// and nil stays nil.
func Stringify(v any) (*string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &val, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// keep barcodes and descriptions searchable as written
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	s := strings.TrimSuffix(buf.String(), "\n")
	return &s, nil
}

func toEpochMillis(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case float64:
		return floatMillis(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadDate, val.String())
		}
		return floatMillis(f)
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadDate, val)
		}
		return floatMillis(f)
	default:
		return 0, fmt.Errorf("%w: %v (%T)", ErrBadDate, v, v)
	}
}

func floatMillis(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v", ErrBadDate, f)
	}
	return int64(f), nil
}
