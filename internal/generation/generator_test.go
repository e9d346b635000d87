package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"blogpilot/internal/config"
)

func newTestGenerator(t *testing.T, serverURL string, cfg config.GenerationConfig) *Generator {
	t.Helper()
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		HTTPOptions: genai.HTTPOptions{BaseURL: serverURL},
	})
	if err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}
	return &Generator{
		client:     client,
		cfg:        cfg,
		retryDelay: time.Millisecond,
		logger:     zap.NewNop(),
	}
}

func writeTextResponse(w http.ResponseWriter, text string) {
	resp := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": text}},
				},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestGenerateMetadata(t *testing.T) {
	meta := `{"title":"Test Title","excerpt_page":"Page excerpt.","excerpt_featured":"Featured.","reading_time":4,"image_description":"An abstract image."}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTextResponse(w, "```json\n"+meta+"\n```")
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, config.GenerationConfig{Model: "gemini-test"})

	got, err := g.GenerateMetadata(context.Background(), "body text")
	if err != nil {
		t.Fatalf("GenerateMetadata() error: %v", err)
	}
	if got.Title != "Test Title" {
		t.Errorf("Title = %q, want %q", got.Title, "Test Title")
	}
	if got.ExcerptPage != "Page excerpt." {
		t.Errorf("ExcerptPage = %q", got.ExcerptPage)
	}
	if got.ReadingTime != 4 {
		t.Errorf("ReadingTime = %d, want 4", got.ReadingTime)
	}
	if got.ImageDescription != "An abstract image." {
		t.Errorf("ImageDescription = %q", got.ImageDescription)
	}
}

func TestGenerateMetadataExtractsEmbeddedJSON(t *testing.T) {
	meta := `{"title":"Embedded","excerpt_page":"Page.","excerpt_featured":"Feat.","reading_time":3,"image_description":"Desc."}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTextResponse(w, "Here is the metadata you asked for:\n"+meta+"\nLet me know if you need changes.")
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, config.GenerationConfig{Model: "gemini-test"})

	got, err := g.GenerateMetadata(context.Background(), "body text")
	if err != nil {
		t.Fatalf("GenerateMetadata() error: %v", err)
	}
	if got.Title != "Embedded" {
		t.Errorf("Title = %q, want %q", got.Title, "Embedded")
	}
	if got.ReadingTime != 3 {
		t.Errorf("ReadingTime = %d, want 3", got.ReadingTime)
	}
}

func TestGenerateMetadataRejectsMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTextResponse(w, "this is not json")
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, config.GenerationConfig{Model: "gemini-test"})

	_, err := g.GenerateMetadata(context.Background(), "body text")
	if err == nil {
		t.Fatal("expected error for malformed metadata JSON")
	}
	if !strings.Contains(err.Error(), "parse metadata JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenerateBodyStripsFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTextResponse(w, "```markdown\n# Hello\n\nWorld.\n```")
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, config.GenerationConfig{Model: "gemini-test"})

	body, err := g.GenerateBody(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateBody() error: %v", err)
	}
	if body != "# Hello\n\nWorld." {
		t.Errorf("GenerateBody() = %q", body)
	}
}

func TestGenerateBodyJoinsMultipartResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"role": "model",
						"parts": []map[string]any{
							{"text": "First half of the article. "},
							{"text": "Second half of the article."},
						},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, config.GenerationConfig{Model: "gemini-test"})

	body, err := g.GenerateBody(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateBody() error: %v", err)
	}
	if body != "First half of the article. Second half of the article." {
		t.Errorf("GenerateBody() = %q, want all parts joined", body)
	}
}

func TestGenerateFallsBackOnRateLimit(t *testing.T) {
	var primaryCalls, fallbackCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "gemini-primary") {
			primaryCalls++
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fallbackCalls++
		writeTextResponse(w, "fallback content")
	}))
	defer server.Close()

	cfg := config.GenerationConfig{
		Model:          "gemini-primary",
		FallbackModels: []string{"gemini-secondary"},
		MaxRetries:     2,
	}
	g := newTestGenerator(t, server.URL, cfg)

	got, err := g.generate(context.Background(), genai.Text("prompt"), nil)
	if err != nil {
		t.Fatalf("generate() error: %v", err)
	}
	if got != "fallback content" {
		t.Errorf("generate() = %q", got)
	}
	if primaryCalls != 2 {
		t.Errorf("primary model called %d times, want 2 (retry then fall back)", primaryCalls)
	}
	if fallbackCalls != 1 {
		t.Errorf("fallback model called %d times, want 1", fallbackCalls)
	}
}

func TestGenerateFallsBackOnUnknownModel(t *testing.T) {
	var primaryCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "gemini-primary") {
			primaryCalls++
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeTextResponse(w, "fallback content")
	}))
	defer server.Close()

	cfg := config.GenerationConfig{
		Model:          "gemini-primary",
		FallbackModels: []string{"gemini-secondary"},
		MaxRetries:     3,
	}
	g := newTestGenerator(t, server.URL, cfg)

	got, err := g.generate(context.Background(), genai.Text("prompt"), nil)
	if err != nil {
		t.Fatalf("generate() error: %v", err)
	}
	if got != "fallback content" {
		t.Errorf("generate() = %q", got)
	}
	if primaryCalls != 1 {
		t.Errorf("unknown model called %d times, want 1 (no retries)", primaryCalls)
	}
}

func TestGenerateAbortsOnClientError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := config.GenerationConfig{
		Model:          "gemini-primary",
		FallbackModels: []string{"gemini-secondary"},
		MaxRetries:     3,
	}
	g := newTestGenerator(t, server.URL, cfg)

	_, err := g.generate(context.Background(), genai.Text("prompt"), nil)
	if err == nil {
		t.Fatal("expected error for client error response")
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (no retry or fallback)", calls)
	}
}

func TestGeneratePost(t *testing.T) {
	meta := `{"title":"A Real Title","excerpt_page":"Page.","excerpt_featured":"Feat.","reading_time":0,"image_description":"Desc."}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			GenerationConfig struct {
				ResponseMimeType string `json:"responseMimeType"`
			} `json:"generationConfig"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.GenerationConfig.ResponseMimeType == "application/json" {
			writeTextResponse(w, meta)
			return
		}
		writeTextResponse(w, "# A Real Title\n\nBody with a [link](https://example.com/prev).")
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, config.GenerationConfig{Model: "gemini-test"})

	gen, err := g.GeneratePost(context.Background(), []Summary{{Summary: "old", URL: "https://example.com/old"}})
	if err != nil {
		t.Fatalf("GeneratePost() error: %v", err)
	}

	p := gen.Post
	if p.Title != "A Real Title" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Slug != "a-real-title" {
		t.Errorf("Slug = %q, want %q", p.Slug, "a-real-title")
	}
	if !strings.Contains(p.BodyHTML, "<h1>A Real Title</h1>") {
		t.Errorf("BodyHTML missing heading: %s", p.BodyHTML)
	}
	if strings.Contains(p.BodyHTML, "\n") {
		t.Error("BodyHTML should not contain newlines")
	}
	// reading_time of 0 falls back to the word-count estimate
	if p.ReadingTime != 1 {
		t.Errorf("ReadingTime = %d, want 1", p.ReadingTime)
	}
	if gen.ImageDescription != "Desc." {
		t.Errorf("ImageDescription = %q", gen.ImageDescription)
	}
	if p.ImageURL != "" || !p.CreatedAt.IsZero() {
		t.Error("image and timestamp fields must be unset after generation")
	}
}

func TestUploadContextMissingDir(t *testing.T) {
	g := &Generator{logger: zap.NewNop()}

	count, err := g.UploadContext(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("UploadContext() error: %v", err)
	}
	if count != 0 {
		t.Errorf("UploadContext() = %d, want 0", count)
	}
}

func TestUploadContextIgnoresNonPDF(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	g := &Generator{logger: zap.NewNop()}

	count, err := g.UploadContext(context.Background(), dir)
	if err != nil {
		t.Fatalf("UploadContext() error: %v", err)
	}
	if count != 0 {
		t.Errorf("UploadContext() = %d, want 0", count)
	}
}
