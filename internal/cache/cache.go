package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const keyPrefix = "claimwatch:v1:"

// Cache defines the interface for caching rendered reports
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ReportKey identifies one detection run. A report is only reusable when the
// snapshot, the reference date and every threshold match.
func ReportKey(digest string, now time.Time, staleDraftDays, hangingDays int, unresolved []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%d|", digest, now.UTC().Format("2006-01-02"), staleDraftDays, hangingDays)
	b.WriteString(strings.Join(unresolved, ","))

	hash := sha256.Sum256([]byte(b.String()))
	return keyPrefix + hex.EncodeToString(hash[:])
}
