// Package recordid derives deterministic record identifiers from the
// fields that make a record unique, so re-detections of the same entity
// always produce the same ID.
package recordid

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"launch-radar/internal/domain"
)

// ForAsset computes a deterministic asset ID.
// Formula: base58(SHA256(chain|lower(address)))
func ForAsset(chain domain.Chain, address string) string {
	data := fmt.Sprintf("%s|%s", chain, strings.ToLower(strings.TrimSpace(address)))
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ForNews computes a deterministic news ID from the normalized title, the
// same key the store enforces uniqueness on.
// Formula: base58(SHA256(title_key))
func ForNews(title string) string {
	hash := sha256.Sum256([]byte(domain.NormalizeTitle(title)))
	return base58.Encode(hash[:])
}
