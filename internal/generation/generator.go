// Package generation produces blog content through the Gemini API: the
// markdown body, the metadata record derived from it, and the optional
// short-form social draft.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"blogpilot/internal/config"
	"blogpilot/internal/post"
)

// Metadata is the structured record the model returns for a generated body.
type Metadata struct {
	Title            string `json:"title"`
	ExcerptPage      string `json:"excerpt_page"`
	ExcerptFeatured  string `json:"excerpt_featured"`
	ReadingTime      int    `json:"reading_time"`
	ImageDescription string `json:"image_description"`
}

// Generated bundles a drafted post with the image description produced
// alongside it.
type Generated struct {
	Post             *post.Post
	ImageDescription string
}

// Generator drives content generation against the Gemini API. Requests walk
// the configured model chain: rate limits are retried per model before
// falling back, unknown models fall back immediately, and any other error
// aborts the call.
type Generator struct {
	client       *genai.Client
	cfg          config.GenerationConfig
	retryDelay   time.Duration
	logger       *zap.Logger
	contextParts []*genai.Part
}

// NewGenerator creates a generator from the generation configuration.
func NewGenerator(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	retryDelay, err := time.ParseDuration(cfg.RetryDelay)
	if err != nil || retryDelay <= 0 {
		retryDelay = 30 * time.Second
	}

	return &Generator{
		client:     client,
		cfg:        cfg,
		retryDelay: retryDelay,
		logger:     logger,
	}, nil
}

// GeneratePost runs body and metadata generation and assembles a publishable
// record. Draft status, image fields, and creation time are filled in by
// later pipeline stages.
func (g *Generator) GeneratePost(ctx context.Context, prev []Summary) (*Generated, error) {
	body, err := g.GenerateBody(ctx, prev)
	if err != nil {
		return nil, err
	}

	meta, err := g.GenerateMetadata(ctx, body)
	if err != nil {
		return nil, err
	}

	html, err := post.RenderHTML(body)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	readingTime := meta.ReadingTime
	if readingTime < 1 {
		readingTime = post.EstimateReadingTime(body)
	}

	p := &post.Post{
		Title:           meta.Title,
		Slug:            post.Slugify(meta.Title),
		ExcerptPage:     meta.ExcerptPage,
		ExcerptFeatured: meta.ExcerptFeatured,
		ReadingTime:     readingTime,
		BodyMarkdown:    body,
		BodyHTML:        html,
	}

	return &Generated{Post: p, ImageDescription: meta.ImageDescription}, nil
}

// GenerateBody produces the markdown body for a new post, grounded in the
// uploaded context documents and Google Search results.
func (g *Generator) GenerateBody(ctx context.Context, prev []Summary) (string, error) {
	prompt := buildBodyPrompt(g.cfg.AuthorPersona, g.cfg.TopicBrief, prev, len(g.contextParts) > 0)

	var contents []*genai.Content
	if len(g.contextParts) > 0 {
		parts := make([]*genai.Part, 0, len(g.contextParts)+1)
		parts = append(parts, g.contextParts...)
		parts = append(parts, genai.NewPartFromText(prompt))
		contents = []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	} else {
		g.logger.Warn("no context documents uploaded, generating without file context")
		contents = genai.Text(prompt)
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.7)),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	text, err := g.generate(ctx, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("body generation failed: %w", err)
	}

	body := stripFences(text)
	if body == "" {
		return "", fmt.Errorf("body generation returned empty content")
	}
	return body, nil
}

// GenerateMetadata derives title, excerpts, reading time, and an image
// description from a generated body.
func (g *Generator) GenerateMetadata(ctx context.Context, body string) (*Metadata, error) {
	prompt := buildMetadataPrompt(body)

	genCfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.8)),
		ResponseMIMEType: "application/json",
	}

	text, err := g.generate(ctx, genai.Text(prompt), genCfg)
	if err != nil {
		return nil, fmt.Errorf("metadata generation failed: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(cleanJSON(text)), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}
	if meta.Title == "" {
		meta.Title = "untitled-post"
	}
	return &meta, nil
}

// GenerateLinkedInDraft rewrites a published post as a shorter companion
// draft that carries only raw URLs. The returned text may contain the
// [CHATBOT_URL] placeholder.
func (g *Generator) GenerateLinkedInDraft(ctx context.Context, body, postURL string, interlinks []string) (string, error) {
	prompt := buildLinkedInPrompt(body, postURL, interlinks)

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.6)),
	}

	text, err := g.generate(ctx, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("linkedin draft generation failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// generate runs one request through the model chain.
func (g *Generator) generate(ctx context.Context, contents []*genai.Content, genCfg *genai.GenerateContentConfig) (string, error) {
	models := append([]string{g.cfg.Model}, g.cfg.FallbackModels...)
	var lastErr error

	for _, model := range models {
		for attempt := 1; attempt <= g.maxRetries(); attempt++ {
			result, err := g.client.Models.GenerateContent(ctx, model, contents, genCfg)
			if err != nil {
				lastErr = err
				if isModelUnavailable(err) {
					g.logger.Warn("model unavailable, falling back",
						zap.String("model", model), zap.Error(err))
					break
				}
				if isRateLimited(err) {
					if attempt < g.maxRetries() {
						g.logger.Warn("rate limited, retrying",
							zap.String("model", model),
							zap.Int("attempt", attempt),
							zap.Duration("delay", g.retryDelay))
						select {
						case <-time.After(g.retryDelay):
						case <-ctx.Done():
							return "", ctx.Err()
						}
						continue
					}
					g.logger.Warn("rate limit retries exhausted, falling back",
						zap.String("model", model))
					break
				}
				return "", err
			}

			if result == nil || len(result.Candidates) == 0 ||
				result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
				lastErr = fmt.Errorf("model %s returned no content", model)
				break
			}
			// Grounded responses may split the text across parts.
			var sb strings.Builder
			for _, part := range result.Candidates[0].Content.Parts {
				sb.WriteString(part.Text)
			}
			if sb.Len() == 0 {
				lastErr = fmt.Errorf("model %s returned no content", model)
				break
			}
			return sb.String(), nil
		}
	}

	return "", fmt.Errorf("all models failed: %w", lastErr)
}

func (g *Generator) maxRetries() int {
	if g.cfg.MaxRetries < 1 {
		return 3
	}
	return g.cfg.MaxRetries
}

func isRateLimited(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") || strings.Contains(s, "rate limit") || strings.Contains(s, "exhausted")
}

func isModelUnavailable(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "404") || strings.Contains(s, "not found")
}
