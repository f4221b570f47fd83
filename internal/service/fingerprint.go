package service

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Volatile attributes are excluded from the fingerprint input: they change on
// every sync without the record itself changing.
var volatileKeys = map[string]struct{}{
	"lastSyncAt": {},
	"ts":         {},
}

// Fingerprint computes a stable digest over a normalized record. Keys are
// canonicalized by JSON map marshaling (lexicographic order), so semantically
// identical records hash identically regardless of source column order.
func Fingerprint(data map[string]any) (string, error) {
	stable := make(map[string]any, len(data))
	for k, v := range data {
		if _, volatile := volatileKeys[k]; volatile {
			continue
		}
		stable[k] = v
	}

	serialized, err := json.Marshal(stable)
	if err != nil {
		return "", fmt.Errorf("serialize record for fingerprint: %w", err)
	}

	return fmt.Sprintf("%016x", xxhash.Sum64(serialized)), nil
}
