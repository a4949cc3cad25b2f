package engine

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/lukemcguire/siteranker/internal/linkextract"
)

// hashLinks computes a content fingerprint for a page from its extracted
// link list. Re-crawling a page whose fingerprint hasn't changed since the
// last run skips the expensive classify/rank step for its links
// (spec.md §4.6); only the link set, not the surrounding prose, decides
// whether a page "changed" for this purpose.
func hashLinks(links []linkextract.Link) (string, error) {
	encoded, err := json.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("encode links for hashing: %w", err)
	}
	sum := sha3.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
