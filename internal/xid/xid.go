// Package xid mints prefixed identifiers for ledger records, e.g.
// "sale-1756500000123456789-9f86d081c3a1b2c4". The timestamp keeps ids
// roughly sortable by creation time; the random suffix keeps them
// unique across restarts.
package xid

import (
	"crypto/rand"
	"fmt"
	"time"
)

func New(prefix string) string {
	now := time.Now().UnixNano()
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// Random source failures are rare enough that the timestamp
		// alone is an acceptable id within a single process.
		return fmt.Sprintf("%s-%d", prefix, now)
	}
	return fmt.Sprintf("%s-%d-%x", prefix, now, buf)
}
