package device

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinAttributes is the number of client attributes a full-confidence fingerprint needs
const MinAttributes = 15

// Fingerprint is a device hash known for one user.
// (UserID, Hash) is unique and rows live as long as the account.
type Fingerprint struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Hash        string    `json:"fingerprint_hash"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	TrustFlag   bool      `json:"trust_flag"`
}

// NewFingerprint creates a first sighting of hash for user
func NewFingerprint(userID uuid.UUID, hash string, now time.Time) *Fingerprint {
	return &Fingerprint{
		ID:          uuid.New(),
		UserID:      userID,
		Hash:        hash,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
}

// Hash builds a stable composite hash from raw client attributes.
// Keys are lower-cased and sorted so attribute order never matters. Keys
// that collide after normalization keep all their values, sorted.
func Hash(raw map[string]string) string {
	normalized := normalize(raw)
	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		values := normalized[k]
		sort.Strings(values)
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(strings.Join(values, "\x1f")))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Complete reports whether raw carries enough distinct attributes for a confident hash
func Complete(raw map[string]string) bool {
	return len(normalize(raw)) >= MinAttributes
}

func normalize(raw map[string]string) map[string][]string {
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		out[key] = append(out[key], strings.TrimSpace(v))
	}
	return out
}
