package licensecrypto

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

const (
	KeyPrefix    = "LIC"
	keyBytes     = 20
	keyGroupSize = 4
)

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// groupKey splits raw into dash separated groups of size characters.
func groupKey(prefix, raw string, size int) string {
	parts := []string{prefix}
	for i := 0; i < len(raw); i += size {
		parts = append(parts, raw[i:min(i+size, len(raw))])
	}
	return strings.Join(parts, "-")
}

// GenerateLicenseKey returns a random key like LIC-ABCD-EFGH-... carrying 160 bits.
func GenerateLicenseKey() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random key bytes: %w", err)
	}
	return groupKey(KeyPrefix, keyEncoding.EncodeToString(b), keyGroupSize), nil
}
