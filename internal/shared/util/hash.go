package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey maps a storage key to a fixed-length name safe for file systems and object keys.
// Namespaced keys contain ':' and '/', which neither backend should see raw.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
