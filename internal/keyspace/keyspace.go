// Package keyspace derives numeric entity identifiers for DynamoDB tables.
package keyspace

import (
	"crypto/sha256"
	"encoding/binary"
)

// MaxID is the largest identifier handed out. It is the largest integer a
// JSON number can carry without losing precision in float64 clients.
const MaxID = 1<<53 - 1

// ScatteredID maps a seed to an identifier in [1, MaxID].
// Identifiers are spread across the whole range so consecutive creates do
// not land next to each other in the key space.
func ScatteredID(seed string) int64 {
	h := sha256.Sum256([]byte(seed))
	id := int64(binary.BigEndian.Uint64(h[:8]) & MaxID)
	if id == 0 {
		return 1
	}
	return id
}
