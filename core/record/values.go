package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// timeLayouts are the timestamp formats produced by the supported drivers and JSON notifications.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	DateLayout,
}

// reader decodes columns out of a Record, keeping the first error.
type reader struct {
	rec Record
	err error
}

func (r *reader) fail(col string, err error) {
	if r.err == nil {
		r.err = errors.Wrapf(ErrInvalidRecord, "column %q: %v", col, err)
	}
}

func (r *reader) str(col string) string {
	s, err := toString(r.rec[col])
	if err != nil {
		r.fail(col, err)
	}
	return s
}

func (r *reader) int(col string) int64 {
	i, err := toInt(r.rec[col])
	if err != nil {
		r.fail(col, err)
	}
	return i
}

func (r *reader) float(col string) float64 {
	f, err := toFloat(r.rec[col])
	if err != nil {
		r.fail(col, err)
	}
	return f
}

func (r *reader) bool(col string) bool {
	b, err := toBool(r.rec[col])
	if err != nil {
		r.fail(col, err)
	}
	return b
}

func (r *reader) time(col string) time.Time {
	t, err := toTime(r.rec[col])
	if err != nil {
		r.fail(col, err)
	}
	return t
}

func (r *reader) date(col string) Date {
	t, err := toTime(r.rec[col])
	if err != nil {
		r.fail(col, err)
	}
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (r *reader) nullInt(col string) null.Int64 {
	if r.rec[col] == nil {
		return null.Int64{}
	}
	return null.Int64From(r.int(col))
}

func (r *reader) nullFloat(col string) null.Float64 {
	if r.rec[col] == nil {
		return null.Float64{}
	}
	return null.Float64From(r.float(col))
}

func (r *reader) nullStr(col string) null.String {
	if r.rec[col] == nil {
		return null.String{}
	}
	return null.StringFrom(r.str(col))
}

// list reads a nested list of objects, given either as a list or as JSON text.
func (r *reader) list(col string) []Record {
	recs, err := toRecords(r.rec[col])
	if err != nil {
		r.fail(col, err)
	}
	return recs
}

func toString(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int:
		return strconv.Itoa(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case fmt.Stringer:
		return val.String(), nil
	}
	return "", fmt.Errorf("cannot read %T as string", v)
}

func toInt(v interface{}) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("%v is not an integer", val)
		}
		return int64(val), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
	}
	return 0, fmt.Errorf("cannot read %T as integer", v)
}

func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	case []byte: // postgres NUMERIC
		return strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
	}
	return 0, fmt.Errorf("cannot read %T as number", v)
}

func toBool(v interface{}) (bool, error) {
	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	case int64: // sqlite
		return val != 0, nil
	case int:
		return val != 0, nil
	case float64:
		return val != 0, nil
	case string:
		return strconv.ParseBool(val)
	case []byte:
		return strconv.ParseBool(string(val))
	}
	return false, fmt.Errorf("cannot read %T as boolean", v)
}

func toTime(v interface{}) (time.Time, error) {
	var s string
	switch val := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return val.UTC(), nil
	case Date:
		return val.Time, nil
	case string:
		s = val
	case []byte:
		s = string(val)
	default:
		return time.Time{}, fmt.Errorf("cannot read %T as time", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown time format %q", s)
}

func toRecords(v interface{}) ([]Record, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []Record:
		return val, nil
	case []map[string]interface{}:
		recs := make([]Record, 0, len(val))
		for _, m := range val {
			recs = append(recs, m)
		}
		return recs, nil
	case []interface{}:
		recs := make([]Record, 0, len(val))
		for _, item := range val {
			switch m := item.(type) {
			case map[string]interface{}:
				recs = append(recs, m)
			case Record:
				recs = append(recs, m)
			default:
				return nil, fmt.Errorf("cannot read list item %T as object", item)
			}
		}
		return recs, nil
	case string:
		return decodeJSONRecords([]byte(val))
	case []byte:
		return decodeJSONRecords(val)
	}
	return nil, fmt.Errorf("cannot read %T as list", v)
}

func decodeJSONRecords(data []byte) ([]Record, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var items []interface{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return toRecords(items)
}
