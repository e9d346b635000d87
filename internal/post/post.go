// Package post defines the blog article record assembled by the pipeline and
// the text helpers shared by the generation and publishing stages.
package post

import (
	"regexp"
	"strings"
	"time"
)

// Post is a fully assembled article ready for publishing. Text fields come
// from the content generator, image fields from the image resolver. A Post is
// treated as immutable once handed to a publisher.
type Post struct {
	Title           string
	Slug            string
	ExcerptPage     string
	ExcerptFeatured string
	ReadingTime     int
	BodyMarkdown    string
	BodyHTML        string
	ImageURL        string
	ImageID         string
	Draft           bool
	CreatedAt       time.Time
}

// PublishResult identifies the remote record created by a publisher.
type PublishResult struct {
	RemoteID  string
	RemoteURL string
}

const maxImageSlugLen = 90

var nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)

// Slugify derives a URL-safe slug from a post title: lowercased, spaces
// replaced with hyphens, every character outside [a-z0-9-] dropped, and
// leading/trailing hyphens trimmed. Titles that reduce to nothing yield
// "untitled-post".
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = strings.ReplaceAll(s, " ", "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled-post"
	}
	return s
}

// ImageFilename builds the asset filename for a post's main image. Slugs
// longer than 90 characters are truncated before the suffix is appended.
func ImageFilename(slug string) string {
	if len(slug) > maxImageSlugLen {
		slug = slug[:maxImageSlugLen]
	}
	return slug + "-main.png"
}

// EstimateReadingTime computes reading minutes from word count at 200 words
// per minute, with a floor of one minute.
func EstimateReadingTime(text string) int {
	minutes := len(strings.Fields(text)) / 200
	if minutes < 1 {
		return 1
	}
	return minutes
}
