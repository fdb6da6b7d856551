package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// SlugMaxLength caps generated slugs.
const SlugMaxLength = 100

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify derives a URL-friendly slug from a listing title: lower-case,
// strip punctuation, collapse whitespace and hyphen runs, cap the length.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > SlugMaxLength {
		slug = slug[:SlugMaxLength]
	}
	return slug
}

// slugProber answers whether a slug is already taken.
type slugProber interface {
	SlugExists(ctx context.Context, slug string, exceptID int64) (bool, error)
}

// uniqueSlug probes storage for the candidate slug and appends -1, -2, ...
// until free. exceptID excludes the listing being updated from the probe.
func uniqueSlug(ctx context.Context, probe slugProber, title string, exceptID int64) (string, error) {
	base := Slugify(title)
	slug := base
	for counter := 1; ; counter++ {
		taken, err := probe.SlugExists(ctx, slug, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}
