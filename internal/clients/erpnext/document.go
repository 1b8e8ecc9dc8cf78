package erpnext

import (
	"strconv"
	"strings"
	"time"
)

// Document is a loosely-typed ERPNext document payload. The store accepts and
// returns arbitrary key/value maps; typed accessors keep call sites honest
// about the handful of fields each operation actually reads.
type Document map[string]any

// Filters is the filter map sent to the resource list API, e.g.
// {"sales_order": "SO-0001"} or {"voucher_no": ["in", [...]]}.
type Filters map[string]any

func (d Document) Str(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func (d Document) F64(key string) float64 {
	v, ok := d[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (d Document) Int(key string) int {
	return int(d.F64(key))
}

func (d Document) Bool(key string) bool {
	switch t := d[key].(type) {
	case bool:
		return t
	default:
		return d.Int(key) != 0
	}
}

// Docs returns a child table as a slice of Documents.
func (d Document) Docs(key string) []Document {
	v, ok := d[key]
	if !ok || v == nil {
		return nil
	}
	switch rows := v.(type) {
	case []Document:
		return rows
	case []any:
		out := make([]Document, 0, len(rows))
		for _, r := range rows {
			if m, ok := r.(map[string]any); ok {
				out = append(out, Document(m))
			}
		}
		return out
	default:
		return nil
	}
}

// Frappe timestamp layouts, highest precision first.
var timeLayouts = []string{
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (d Document) Time(key string) time.Time {
	s := strings.TrimSpace(d.Str(key))
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
