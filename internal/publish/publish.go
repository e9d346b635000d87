// Package publish delivers finished posts to a publishing target. Two
// targets exist: the Webflow CMS and a Google Sheets worksheet consumed by a
// static-site pipeline. The target is chosen once at startup.
package publish

import (
	"context"
	"fmt"

	"blogpilot/internal/post"
)

// Publisher persists one post in a remote publishing target.
type Publisher interface {
	// Publish stores the post and returns the remote identifier and public
	// URL of the created record.
	Publish(ctx context.Context, p *post.Post) (post.PublishResult, error)

	// Name identifies the target in logs.
	Name() string
}

// APIError reports a failed remote API call with the response the service
// returned.
type APIError struct {
	Service string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Service, e.Status, e.Body)
}
