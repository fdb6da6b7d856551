package types

import "strings"

// Post is one externally-sourced candidate item, typically a social post
// referencing an application. Posts are embedded in their job record and are
// immutable once the job is submitted.
type Post struct {
	Title         string   `json:"title"`
	SelfText      string   `json:"selftext"`
	Permalink     string   `json:"permalink"`
	Score         int      `json:"score"`
	CreatedUTC    float64  `json:"created_utc"`
	ExtractedURLs []string `json:"extracted_urls"`
}

// AbsolutePermalink returns the permalink as a full URL. Reddit feeds often
// carry relative permalinks like /r/SideProject/comments/abc.
func (p *Post) AbsolutePermalink() string {
	if strings.HasPrefix(p.Permalink, "http") {
		return p.Permalink
	}
	return "https://reddit.com" + p.Permalink
}
