package imaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"blogpilot/internal/post"
)

// Generator produces raw PNG bytes from a textual description.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Placer puts generated image bytes where the publishing provider can
// reference them, returning the public URL and the provider's asset ID.
// Providers without an asset store return an empty ID.
type Placer interface {
	Place(ctx context.Context, slug string, png []byte) (url, assetID string, err error)
}

// Resolver generates a post's main image and records its placement on the
// post. Failures here are surfaced to the caller, which treats them as
// non-fatal: the post publishes without an image.
type Resolver struct {
	gen    Generator
	placer Placer
	logger *zap.Logger
}

// NewResolver builds a resolver from a generator and a provider placer.
func NewResolver(gen Generator, placer Placer, logger *zap.Logger) *Resolver {
	return &Resolver{gen: gen, placer: placer, logger: logger}
}

// Resolve generates an image for the description and sets ImageURL (and
// ImageID where the provider has one) on the post. An empty description
// skips generation entirely.
func (r *Resolver) Resolve(ctx context.Context, p *post.Post, description string) error {
	if description == "" {
		r.logger.Info("no image description, skipping image generation",
			zap.String("slug", p.Slug))
		return nil
	}

	png, err := r.gen.Generate(ctx, description)
	if err != nil {
		return fmt.Errorf("image generation failed: %w", err)
	}
	r.logger.Debug("image generated",
		zap.String("slug", p.Slug), zap.Int("bytes", len(png)))

	url, assetID, err := r.placer.Place(ctx, p.Slug, png)
	if err != nil {
		return fmt.Errorf("image placement failed: %w", err)
	}

	p.ImageURL = url
	p.ImageID = assetID
	return nil
}
