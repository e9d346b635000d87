// Package migrate moves existing CMS items into the spreadsheet pipeline in
// one shot: list every Webflow item, re-host its main image in S3, and
// upsert a row per item.
package migrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"blogpilot/internal/post"
	"blogpilot/internal/publish"
)

// ItemSource lists the CMS items to migrate.
type ItemSource interface {
	ListItems(ctx context.Context) ([]publish.Item, error)
}

// RowTarget upserts migrated posts.
type RowTarget interface {
	Publish(ctx context.Context, p *post.Post) (post.PublishResult, error)
}

// ImageStore re-hosts downloaded images.
type ImageStore interface {
	UploadPNG(ctx context.Context, data []byte) (string, error)
}

// Failure records one item that could not be migrated.
type Failure struct {
	Slug string
	Err  error
}

// Report summarizes a migration run.
type Report struct {
	Total    int
	Migrated int
	Failures []Failure
}

// Migrator copies CMS items into the spreadsheet target. Image re-hosting is
// best-effort: a failed download or upload leaves the row's image URL empty.
type Migrator struct {
	source     ItemSource
	target     RowTarget
	images     ImageStore
	httpClient *http.Client
	dryRun     bool
	logger     *zap.Logger
}

// New creates a migrator. images may be nil to skip image re-hosting
// entirely; dryRun transforms items without writing rows.
func New(source ItemSource, target RowTarget, images ImageStore, httpClient *http.Client, dryRun bool, logger *zap.Logger) *Migrator {
	return &Migrator{
		source:     source,
		target:     target,
		images:     images,
		httpClient: httpClient,
		dryRun:     dryRun,
		logger:     logger,
	}
}

// Run migrates every item. Per-item failures are collected in the report;
// only a failed item listing aborts the run.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	items, err := m.source.ListItems(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list CMS items: %w", err)
	}
	m.logger.Info("fetched CMS items", zap.Int("count", len(items)))

	report := Report{Total: len(items)}
	for _, item := range items {
		p := m.toPost(ctx, item)

		if m.dryRun {
			m.logger.Info("dry run, row not written",
				zap.String("slug", p.Slug), zap.String("image_url", p.ImageURL))
			report.Migrated++
			continue
		}

		if _, err := m.target.Publish(ctx, p); err != nil {
			m.logger.Error("failed to migrate item",
				zap.String("slug", p.Slug), zap.Error(err))
			report.Failures = append(report.Failures, Failure{Slug: p.Slug, Err: err})
			continue
		}
		m.logger.Info("item migrated", zap.String("slug", p.Slug))
		report.Migrated++
	}
	return report, nil
}

// toPost maps one CMS item onto the row schema.
func (m *Migrator) toPost(ctx context.Context, item publish.Item) *post.Post {
	fd := item.FieldData

	slug := fd.Slug
	if slug == "" {
		slug = item.Slug
	}
	title := fd.Name
	if title == "" {
		title = "Untitled"
	}

	bodyHTML := strings.ReplaceAll(fd.PostBody, "\n", "")

	readingTime := fd.ReadingTime
	if readingTime < 1 {
		readingTime = post.EstimateReadingTime(post.HTMLText(bodyHTML))
	}

	imageURL := ""
	if fd.MainImage != nil {
		imageURL = m.rehostImage(ctx, fd.MainImage, slug)
	}

	createdAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, item.CreatedOn); err == nil {
		createdAt = t
	}

	return &post.Post{
		Title:           title,
		Slug:            slug,
		ExcerptPage:     fd.ExcerptPage,
		ExcerptFeatured: fd.ExcerptFeatured,
		ReadingTime:     readingTime,
		BodyHTML:        bodyHTML,
		ImageURL:        imageURL,
		Draft:           item.IsDraft,
		CreatedAt:       createdAt,
	}
}

// rehostImage downloads the CMS-hosted image and uploads it to the object
// store. Any failure logs a warning and yields an empty URL.
func (m *Migrator) rehostImage(ctx context.Context, ref *publish.ImageRef, slug string) string {
	if m.images == nil || ref.URL == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		m.logger.Warn("invalid image URL", zap.String("slug", slug), zap.Error(err))
		return ""
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Warn("image download failed", zap.String("slug", slug), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		m.logger.Warn("image download failed",
			zap.String("slug", slug), zap.Int("status", resp.StatusCode))
		return ""
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		m.logger.Warn("image download failed", zap.String("slug", slug), zap.Error(err))
		return ""
	}

	url, err := m.images.UploadPNG(ctx, data)
	if err != nil {
		m.logger.Warn("image re-upload failed", zap.String("slug", slug), zap.Error(err))
		return ""
	}
	return url
}
