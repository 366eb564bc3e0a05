package normalize

import (
	"encoding/hex"
	"strings"
	"unicode"

	"lukechampine.com/blake3"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

// idHashBytes is the number of BLAKE3 output bytes kept in an ID (128 bits).
const idHashBytes = 16

// ID derives a record identity from its source and natural key. The result is
// "<source-slug>-<hex>" and depends on nothing else.
func ID(source, naturalKey string) string {
	sum := blake3.Sum256([]byte(source + "\x00" + naturalKey))
	return sourceSlug(source) + "-" + hex.EncodeToString(sum[:idHashBytes])
}

// naturalKey prefers name+link; records without their own link fall back to
// name+district, then name+location.
func naturalKey(name, rawLink, district, location string) string {
	second := rawLink
	if second == "" {
		second = district
	}
	if second == "" {
		second = location
	}
	return catalog.Fold(name) + "|" + catalog.Fold(second)
}

func sourceSlug(source string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range catalog.Fold(source) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "src"
	}
	return slug
}
