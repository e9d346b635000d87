// Package pipeline orchestrates the per-post publishing workflow: generate,
// resolve the image, confirm, publish, record, and optionally draft a social
// post. Posts are processed strictly one at a time.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"blogpilot/internal/generation"
	"blogpilot/internal/history"
	"blogpilot/internal/post"
	"blogpilot/internal/publish"
)

// ContentGenerator drafts one post along with its image description.
type ContentGenerator interface {
	GeneratePost(ctx context.Context, prev []generation.Summary) (*generation.Generated, error)
}

// ImageResolver fills a post's image fields.
type ImageResolver interface {
	Resolve(ctx context.Context, p *post.Post, description string) error
}

// SocialDrafter derives the companion draft after a successful publish.
type SocialDrafter interface {
	Share(ctx context.Context, p *post.Post, postURL string) error
}

// Recorder stores published posts in the history.
type Recorder interface {
	Record(e history.Entry) error
}

// Confirmer asks whether a prepared post should be published.
type Confirmer interface {
	Confirm(p *post.Post) (bool, error)
}

// Deps are the pipeline's collaborators. Generator and Publisher are
// required; the rest are optional. A nil Confirmer means auto mode, a nil
// ImageResolver publishes every post without an image.
type Deps struct {
	Generator ContentGenerator
	Images    ImageResolver
	Publisher publish.Publisher
	Social    SocialDrafter
	Recorder  Recorder
	Confirmer Confirmer
}

// Options are the run-level settings, fixed for the process lifetime.
type Options struct {
	NumPosts  int
	Draft     bool
	PostDelay time.Duration
}

// Result summarizes a run.
type Result struct {
	Attempted int
	Published int
}

// Pipeline runs the sequential post workflow.
type Pipeline struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// New creates a pipeline.
func New(deps Deps, opts Options, logger *zap.Logger) *Pipeline {
	return &Pipeline{deps: deps, opts: opts, logger: logger}
}

// Run processes up to NumPosts posts. Generation and publish failures skip
// the current post only; image and social failures are logged and ignored.
// prev seeds the topic-avoidance context and grows as posts publish.
func (pl *Pipeline) Run(ctx context.Context, prev []generation.Summary) Result {
	var res Result

	for i := 1; i <= pl.opts.NumPosts; i++ {
		if ctx.Err() != nil {
			pl.logger.Warn("run cancelled", zap.Int("completed", i-1))
			break
		}
		res.Attempted++
		log := pl.logger.With(zap.Int("post", i), zap.Int("total", pl.opts.NumPosts))

		log.Info("generating post")
		gen, err := pl.deps.Generator.GeneratePost(ctx, prev)
		if err != nil {
			log.Error("generation failed, skipping post", zap.Error(err))
			continue
		}

		p := gen.Post
		p.Draft = pl.opts.Draft
		p.CreatedAt = time.Now().UTC()

		if pl.deps.Images != nil {
			log.Info("resolving image", zap.String("slug", p.Slug))
			if err := pl.deps.Images.Resolve(ctx, p, gen.ImageDescription); err != nil {
				log.Warn("image resolution failed, publishing without image",
					zap.Error(err))
			}
		}

		if pl.deps.Confirmer != nil {
			ok, err := pl.deps.Confirmer.Confirm(p)
			if err != nil {
				log.Error("confirmation failed, stopping run", zap.Error(err))
				break
			}
			if !ok {
				log.Info("post rejected, discarding", zap.String("slug", p.Slug))
				continue
			}
		}

		log.Info("publishing",
			zap.String("slug", p.Slug), zap.String("target", pl.deps.Publisher.Name()))
		result, err := pl.deps.Publisher.Publish(ctx, p)
		if err != nil {
			log.Error("publish failed, skipping post", zap.Error(err))
			continue
		}
		res.Published++
		log.Info("post published",
			zap.String("remote_id", result.RemoteID), zap.String("url", result.RemoteURL))

		if pl.deps.Recorder != nil {
			entry := history.Entry{
				Slug:        p.Slug,
				Title:       p.Title,
				Summary:     p.ExcerptPage,
				URL:         result.RemoteURL,
				Provider:    pl.deps.Publisher.Name(),
				RemoteID:    result.RemoteID,
				PublishedAt: p.CreatedAt,
			}
			if err := pl.deps.Recorder.Record(entry); err != nil {
				log.Warn("failed to record post in history", zap.Error(err))
			}
		}
		if p.ExcerptPage != "" {
			prev = append(prev, generation.Summary{Summary: p.ExcerptPage, URL: result.RemoteURL})
		}

		if pl.deps.Social != nil {
			if err := pl.deps.Social.Share(ctx, p, result.RemoteURL); err != nil {
				log.Warn("social draft failed, continuing", zap.Error(err))
			}
		}

		if i < pl.opts.NumPosts && pl.opts.PostDelay > 0 {
			log.Info("pausing before next post", zap.Duration("delay", pl.opts.PostDelay))
			select {
			case <-time.After(pl.opts.PostDelay):
			case <-ctx.Done():
			}
		}
	}

	pl.logger.Info("run complete",
		zap.Int("published", res.Published), zap.Int("attempted", res.Attempted))
	return res
}
