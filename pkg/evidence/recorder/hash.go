package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashContent returns the hex-encoded SHA-256 of content, or "" when content
// is empty.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashJSON hashes the JSON encoding of v. encoding/json sorts map keys, so
// equal values always hash the same.
func HashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return HashContent(data), nil
}
