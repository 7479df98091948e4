package binder

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gurre/awsop/schema"
)

var errUnsupported = errors.New("unsupported value")

// convert turns a raw input into the canonical Go representation of its
// field type: string, int64, bool, []string, map[string]any, []any or
// time.Time. Byte payloads are handled by the binder itself.
func convert(f schema.Field, raw any) (any, error) {
	switch f.Type {
	case schema.TypeString:
		return toString(raw)
	case schema.TypeInteger:
		return toInt(raw)
	case schema.TypeBoolean:
		return toBool(raw)
	case schema.TypeStringList:
		return toStringList(raw)
	case schema.TypeEnum:
		s, err := toString(raw)
		if err != nil {
			return nil, err
		}
		for _, allowed := range f.Enum {
			if strings.EqualFold(allowed, s) {
				return allowed, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(f.Enum, ", "))
	case schema.TypeObject:
		return toObject(raw)
	case schema.TypeObjectList:
		return toObjectList(raw)
	case schema.TypeTimestamp:
		return toTime(raw)
	default:
		return nil, fmt.Errorf("%w: field type %s", errUnsupported, f.Type)
	}
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.Number:
		return v.String(), nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int32, int64, bool:
		return fmt.Sprint(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: %T", errUnsupported, raw)
	}
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("%w: %T", errUnsupported, raw)
	}
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("%w: %T", errUnsupported, raw)
	}
}

func toStringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, err := toString(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if v == "" {
			return []string{}, nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupported, raw)
	}
}

func toObject(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("failed to decode object: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupported, raw)
	}
}

func toObjectList(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, nil
	case string:
		var out []any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("failed to decode object list: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupported, raw)
	}
}

func toTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return time.Parse(time.RFC3339, strings.TrimSpace(v))
	default:
		return time.Time{}, fmt.Errorf("%w: %T", errUnsupported, raw)
	}
}
