package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	fallbackSlugPrefix     = "article"
	fallbackSuffixLength   = 6
	fallbackSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// whitespace mirrors the set of characters browsers treat as \s.
const whitespace = `\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	slugStripChars = regexp.MustCompile(`[^a-z0-9` + whitespace + `-]`)
	slugWhitespace = regexp.MustCompile(`[` + whitespace + `]+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// SlugLookup is the read side of the article store the resolver queries.
type SlugLookup interface {
	SlugTaken(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
}

// SlugResolver derives URL-safe, store-unique slugs from article titles.
// It only reads; the caller persists the slug together with the article.
type SlugResolver struct {
	lookup SlugLookup
	now    func() time.Time
}

func NewSlugResolver(lookup SlugLookup) *SlugResolver {
	return &SlugResolver{lookup: lookup, now: time.Now}
}

// SetClock overrides the time source used for fallback slugs.
func (r *SlugResolver) SetClock(now func() time.Time) {
	r.now = now
}

// NormalizeSlug lowercases title, drops everything outside [a-z0-9], spaces
// and hyphens, then joins words with single hyphens. The result may be empty.
func NormalizeSlug(title string) string {
	slug := strings.ToLower(title)
	slug = slugStripChars.ReplaceAllString(slug, "")
	slug = slugWhitespace.ReplaceAllString(slug, "-")
	slug = slugHyphens.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Base returns the normalized slug for title, or a synthetic one when the
// title has no usable characters.
func (r *SlugResolver) Base(title string) string {
	if slug := NormalizeSlug(title); slug != "" {
		return slug
	}
	return r.fallback()
}

// Resolve returns the first free slug among base, base-1, base-2, ...
// ignoring the article identified by excludeID.
func (r *SlugResolver) Resolve(ctx context.Context, title string, excludeID *uuid.UUID) (string, error) {
	base := r.Base(title)

	candidate := base
	for n := 1; ; n++ {
		taken, err := r.lookup.SlugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

func (r *SlugResolver) fallback() string {
	suffix := make([]byte, fallbackSuffixLength)
	for i := range suffix {
		suffix[i] = fallbackSuffixAlphabet[rand.IntN(len(fallbackSuffixAlphabet))]
	}
	return fmt.Sprintf("%s-%d-%s", fallbackSlugPrefix, r.now().UnixMilli(), suffix)
}
