package uuid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	googleuuid "github.com/google/uuid"
)

var (
	mu        sync.Mutex
	lastMilli uint64
	seq       uint16
)

// New generates a new UUIDv7 based on the current timestamp.
// UUIDv7 is time-ordered, which keeps ledger and staging rows
// insertion-ordered when sorted by id and makes ids well suited as
// database primary keys. Ids generated within the same millisecond are
// ordered by a monotonic sequence, so in-process generation order is
// always preserved.
//
// Format (RFC 4122):
// - 48 bits: Unix timestamp in milliseconds
// - 4 bits: version (0111 = 7)
// - 12 bits: monotonic sequence within the millisecond
// - 2 bits: variant (10)
// - 62 bits: random data
func New() string {
	var uuid [16]byte

	if _, err := rand.Read(uuid[8:]); err != nil {
		// Fallback to standard UUIDv4 if random generation fails
		return googleuuid.New().String()
	}

	mu.Lock()
	now := uint64(time.Now().UnixMilli())
	if now <= lastMilli {
		seq++
		if seq >= 1<<12 {
			// Sequence exhausted: borrow from the next millisecond.
			lastMilli++
			seq = 0
		}
		now = lastMilli
	} else {
		lastMilli = now
		seq = 0
	}
	s := seq
	mu.Unlock()

	// Set timestamp (48 bits)
	binary.BigEndian.PutUint64(uuid[0:8], now<<16)

	// Set version (4 bits) to 0111 (7) and the sequence (12 bits)
	binary.BigEndian.PutUint16(uuid[6:8], 0x7000|s)

	// Set variant (2 bits) to 10
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return formatUUID(uuid)
}

// formatUUID formats a 16-byte array as a UUID string
func formatUUID(uuid [16]byte) string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		binary.BigEndian.Uint32(uuid[0:4]),
		binary.BigEndian.Uint16(uuid[4:6]),
		binary.BigEndian.Uint16(uuid[6:8]),
		binary.BigEndian.Uint16(uuid[8:10]),
		uuid[10:16],
	)
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
