package dbkeeper

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/drstein77/receiptanalyzer/internal/normalize"
)

// columnValue converts a decoded JSON value to what the driver should bind
// for a column of kind k.
func columnValue(k normalize.Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch k {
	case normalize.KindInteger:
		switch n := v.(type) {
		case json.Number:
			return n.Int64()
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		}
	case normalize.KindReal:
		switch n := v.(type) {
		case json.Number:
			return n.Float64()
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case normalize.KindBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case normalize.KindText:
		return textValue(v)
	}

	return nil, fmt.Errorf("cannot store %T as %s", v, k)
}

func textValue(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		s, err := normalize.Stringify(v)
		if err != nil {
			return nil, err
		}
		return *s, nil
	}
}
