// Package integrity computes the content hash stored on the ledger at
// campaign-open time. The same hash is recomputed from mirror data on read;
// a mismatch means the mirror copy of the user-facing fields was altered.
package integrity

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
)

// hashedFields is the exact field set covered by the hash. Funding fields are
// deliberately excluded; they are cross-checked against the ledger directly.
// JSON marshaling of a struct emits fields in declaration order, so the
// encoding is canonical regardless of how callers assembled the data.
type hashedFields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Image       string `json:"image"`
}

// Hash returns the hex-encoded content hash over the user-facing campaign
// fields. The value is written once to the ledger when the campaign opens and
// never changes afterwards, even when metadata is edited (see Verify).
func Hash(title, description, url, image string) string {
	data, err := json.Marshal(hashedFields{
		Title:       title,
		Description: description,
		URL:         url,
		Image:       image,
	})
	if err != nil {
		// Marshaling four strings cannot fail.
		panic(err)
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the mirror's current copy of the campaign fields
// still matches the ledger-stored hash. A mismatch is advisory ("data not
// validated on-chain"), never an error: legitimately edited campaigns also
// fail verification because the ledger hash is fixed at open time.
func Verify(ledgerHash, title, description, url, image string) bool {
	return ledgerHash == Hash(title, description, url, image)
}
