package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// IDLength is the number of hex characters kept from the identity digest.
const IDLength = 24

const (
	basisCanonical = "canon::"
	basisURL       = "url::"
	basisGUID      = "guid::"
	basisSynthetic = "ts::"
)

// Identity derives the deduplication key for it. The first available basis wins:
// canonical URL, raw URL, provider guid, then lower-cased title and source.
func Identity(it Item) string {
	return digest(identityBasis(it))
}

func identityBasis(it Item) string {
	if u := strings.TrimSpace(it.CanonicalURL); u != "" {
		return basisCanonical + u
	}
	if u := strings.TrimSpace(it.URL); u != "" {
		return basisURL + u
	}
	if g := strings.TrimSpace(it.GUID); g != "" {
		return basisGUID + g
	}
	title := strings.ToLower(strings.TrimSpace(it.Title))
	source := strings.ToLower(strings.TrimSpace(it.Source))
	return basisSynthetic + title + "::" + source
}

func digest(basis string) string {
	sum := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(sum[:])[:IDLength]
}

// EnsureID assigns an identity when it has none and returns the id in use.
// An existing id is never recomputed.
func EnsureID(it *Item) string {
	if strings.TrimSpace(it.ID) == "" {
		it.ID = Identity(*it)
	}
	return it.ID
}
