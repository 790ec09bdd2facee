package main

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugNonWordPattern    = regexp.MustCompile(`[^\w\s-]`)
	slugWhitespacePattern = regexp.MustCompile(`\s+`)
	slugHyphenRunPattern  = regexp.MustCompile(`-{2,}`)
)

// slugify turns a display name into a URL-safe slug: lowercase, diacritics
// stripped, non-word characters removed, whitespace and hyphen runs collapsed
// to single hyphens.
func slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		stripped = lowered
	}

	slug := slugNonWordPattern.ReplaceAllString(stripped, "")
	slug = slugWhitespacePattern.ReplaceAllString(slug, "-")
	slug = slugHyphenRunPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// uniqueSlug resolves a slug for a tour name. When the slug already belongs to
// a different tour the current timestamp is appended as a disambiguator.
// excludeID is the id of the tour being renamed, empty for new tours.
func (a *App) uniqueSlug(ctx context.Context, name string, excludeID string) (string, error) {
	slug := slugify(name)
	existing, err := a.getTourBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	if existing == nil || existing.ID == excludeID {
		return slug, nil
	}
	return fmt.Sprintf("%s-%d", slug, time.Now().UnixMilli()), nil
}
