package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var (
	// Combining marks survive with their base letter, so a decomposed
	// "Cafe\u0301" keeps its accent just like the precomposed "Café".
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s\p{Z}-]`)
	slugCollapse = regexp.MustCompile(`[\s\p{Z}_-]+`)
)

const maxSlugAttempts = 8

// Slugify lower-cases name, drops everything except letters, digits,
// whitespace, underscores and hyphens, and joins the words with single hyphens.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

type slugTakenFunc func(ctx context.Context, slug string, excludeID uint) (bool, error)

// uniqueSlug returns base, or base with a random hex suffix when another row
// (other than excludeID) already owns it.
func uniqueSlug(ctx context.Context, base, fallback string, excludeID uint, taken slugTakenFunc) (string, error) {
	if base == "" {
		base = fallback
	}
	candidate := base
	for i := 0; i < maxSlugAttempts; i++ {
		exists, err := taken(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		suffix, err := randomHex(2)
		if err != nil {
			return "", err
		}
		candidate = base + "-" + suffix
	}
	return "", fmt.Errorf("%w: no free slug for %q", ErrConflict, base)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
