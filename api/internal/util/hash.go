package util

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// JSONHash fingerprints v by its JSON encoding.
func JSONHash(v any) (string, []byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	return SHA256Hex(b), b, nil
}
