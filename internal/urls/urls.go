// Package urls extracts and normalizes candidate URLs from social posts.
package urls

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]\>\"\']+`)

// sourceHosts are domains belonging to the source platform itself; links to
// them are never candidate app URLs.
var sourceHosts = []string{"reddit.com", "redd.it", "imgur.com", "i.redd.it"}

// Extract scans text for URL-shaped substrings, trims trailing punctuation,
// and drops links that point back at the source platform.
func Extract(text string) []string {
	if text == "" {
		return nil
	}

	var cleaned []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if belongsToSource(u) {
			continue
		}
		cleaned = append(cleaned, u)
	}
	return cleaned
}

func belongsToSource(u string) bool {
	for _, host := range sourceHosts {
		if strings.Contains(u, host) {
			return true
		}
	}
	return false
}

// Normalize reduces a URL to a comparable fragment for dedup matching:
// lower-cased host, no scheme, no leading www., no fragment, no tracking
// query parameters, no trailing slash. Returns "" for unparseable input.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(key, "utm_") || key == "ref" {
			q.Del(key)
		}
	}

	out := host + u.Path
	out = strings.TrimSuffix(out, "/")
	if encoded := q.Encode(); encoded != "" {
		out += "?" + encoded
	}
	return out
}
