package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const idLength = 16

// JobID derives the job id from tenant, category, a category specific key and
// the submission instant. The timestamp makes ids differ between otherwise
// identical submissions, so this avoids collisions but does not dedupe.
func JobID(tenantID string, category Category, uniquenessKey string, at time.Time) string {
	raw := fmt.Sprintf("%s:%s:%s:%d", tenantID, category, uniquenessKey, at.UnixMilli())
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:idLength]
}
