package service

import (
	"time"

	"github.com/noah-isme/mailbridge/internal/models"
)

// NormalizeRow converts one raw row into the canonical attribute mapping:
// date/time values become ISO-8601 strings and binary values become a fixed
// placeholder token. Normalization is pure; the same raw row always yields
// the same mapping.
func NormalizeRow(row map[string]any) map[string]any {
	data := make(map[string]any, len(row))
	for col, val := range row {
		data[col] = normalizeValue(val)
	}
	return data
}

func normalizeValue(val any) any {
	switch v := val.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339)
	case []byte:
		return models.BinaryPlaceholder
	default:
		return val
	}
}

// RecordKey extracts the primary identity attribute from a normalized row.
// Rows without a resolvable key are excluded from the cycle entirely; the
// second return reports whether one was found.
func RecordKey(data map[string]any, keyColumn string) (any, bool) {
	val, ok := data[keyColumn]
	if !ok || val == nil {
		return nil, false
	}
	if s, ok := val.(string); ok && s == "" {
		return nil, false
	}
	return val, true
}
