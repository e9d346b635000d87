// Package config loads blogpilot configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all blogpilot configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Content generation (Gemini)
	Generation GenerationConfig `yaml:"generation"`

	// Image generation (OpenAI-compatible images API)
	Image ImageConfig `yaml:"image"`

	// CMS provider (Webflow)
	Webflow WebflowConfig `yaml:"webflow"`

	// Spreadsheet provider (Google Sheets)
	Sheets SheetsConfig `yaml:"sheets"`

	// Object storage for spreadsheet-provider images (S3)
	Storage StorageConfig `yaml:"storage"`

	// Social draft generation
	Social SocialConfig `yaml:"social"`

	// Published-post history
	History HistoryConfig `yaml:"history"`

	// Pipeline behavior
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// GenerationConfig configures the content generator.
type GenerationConfig struct {
	APIKey         string   `yaml:"api_key"`
	Model          string   `yaml:"model"`
	FallbackModels []string `yaml:"fallback_models"`
	Timeout        string   `yaml:"timeout"`
	MaxRetries     int      `yaml:"max_retries"`
	RetryDelay     string   `yaml:"retry_delay"`

	// Directory of PDF documents uploaded as grounding context
	ContextDir string `yaml:"context_dir"`

	// Voice and subject matter for generated posts
	AuthorPersona string `yaml:"author_persona"`
	TopicBrief    string `yaml:"topic_brief"`
}

// ImageConfig configures the image generator.
type ImageConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Size    string `yaml:"size"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// WebflowConfig configures the Webflow CMS provider.
type WebflowConfig struct {
	APIKey           string `yaml:"api_key"`
	SiteID           string `yaml:"site_id"`
	CollectionID     string `yaml:"collection_id"`
	CategoryID       string `yaml:"category_id"`
	AuthorID         string `yaml:"author_id"`
	BaseURL          string `yaml:"base_url"`
	PublishedURLBase string `yaml:"published_url_base"`
	Featured         bool   `yaml:"featured"`
	Timeout          string `yaml:"timeout"`
}

// SheetsConfig configures the Google Sheets provider.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Worksheet       string `yaml:"worksheet"`
}

// StorageConfig configures S3 image storage. Static credentials come from the
// environment only; when unset the SDK's default credential chain is used.
type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	KeyPrefix       string `yaml:"key_prefix"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

// SocialConfig configures the social draft generator.
type SocialConfig struct {
	ChatbotURL string `yaml:"chatbot_url"`
}

// HistoryConfig configures published-post history storage.
type HistoryConfig struct {
	DatabasePath  string `yaml:"database_path"`
	SummariesFile string `yaml:"summaries_file"`
}

// PipelineConfig configures run-level pipeline behavior.
type PipelineConfig struct {
	Draft     bool   `yaml:"draft"`
	PostDelay string `yaml:"post_delay"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "blogpilot",
		Version: "1.0.0",

		Generation: GenerationConfig{
			Model:          "gemini-2.5-pro",
			FallbackModels: []string{"gemini-2.5-flash"},
			Timeout:        "300s",
			MaxRetries:     3,
			RetryDelay:     "30s",
			ContextDir:     "context",
			AuthorPersona:  "an experienced industry analyst writing practical, fact-focused posts for a professional audience",
			TopicBrief:     "Write about a recent development in your field that your readers need to understand and prepare for.",
		},

		Image: ImageConfig{
			Model:   "gpt-image-1",
			Size:    "1024x1024",
			BaseURL: "https://api.openai.com/v1",
			Timeout: "180s",
		},

		Webflow: WebflowConfig{
			BaseURL:  "https://api.webflow.com/v2",
			Featured: true,
			Timeout:  "60s",
		},

		Sheets: SheetsConfig{
			Worksheet: "posts",
		},

		Storage: StorageConfig{
			Region:    "us-east-1",
			KeyPrefix: "blog/",
		},

		History: HistoryConfig{
			DatabasePath:  "data/blogpilot.db",
			SummariesFile: "summaries.txt",
		},

		Pipeline: PipelineConfig{
			Draft:     true,
			PostDelay: "5m",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Generation.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Image.APIKey = key
	}

	// Webflow settings
	if key := os.Getenv("WEBFLOW_API_KEY"); key != "" {
		c.Webflow.APIKey = key
	}
	if id := os.Getenv("WEBFLOW_SITE_ID"); id != "" {
		c.Webflow.SiteID = id
	}
	if id := os.Getenv("WEBFLOW_COLLECTION_ID"); id != "" {
		c.Webflow.CollectionID = id
	}
	if base := os.Getenv("WEBFLOW_PUBLISHED_URL_BASE"); base != "" {
		c.Webflow.PublishedURLBase = base
	}

	// Sheets settings
	if id := os.Getenv("GOOGLE_SHEETS_DOC_ID"); id != "" {
		c.Sheets.SpreadsheetID = id
	}
	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		c.Sheets.CredentialsFile = path
	}
	if path := os.Getenv("GOOGLE_SHEETS_CREDENTIALS"); path != "" {
		c.Sheets.CredentialsFile = path
	}

	// S3 settings
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		c.Storage.Bucket = bucket
	}
	if region := os.Getenv("S3_REGION"); region != "" {
		c.Storage.Region = region
	}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		c.Storage.AccessKeyID = key
	}
	if secret := os.Getenv("AWS_SECRET_ACCESS_KEY"); secret != "" {
		c.Storage.SecretAccessKey = secret
	}

	if url := os.Getenv("CHATBOT_URL"); url != "" {
		c.Social.ChatbotURL = url
	}
	if path := os.Getenv("BLOGPILOT_DB"); path != "" {
		c.History.DatabasePath = path
	}
}

// GetGenerationTimeout returns the content generation timeout as a duration.
func (c *Config) GetGenerationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generation.Timeout)
	if err != nil {
		return 300 * time.Second
	}
	return d
}

// GetRetryDelay returns the generation retry delay as a duration.
func (c *Config) GetRetryDelay() time.Duration {
	d, err := time.ParseDuration(c.Generation.RetryDelay)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetImageTimeout returns the image generation timeout as a duration.
func (c *Config) GetImageTimeout() time.Duration {
	d, err := time.ParseDuration(c.Image.Timeout)
	if err != nil {
		return 180 * time.Second
	}
	return d
}

// GetWebflowTimeout returns the Webflow API timeout as a duration.
func (c *Config) GetWebflowTimeout() time.Duration {
	d, err := time.ParseDuration(c.Webflow.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetPostDelay returns the pause between consecutive posts as a duration.
func (c *Config) GetPostDelay() time.Duration {
	d, err := time.ParseDuration(c.Pipeline.PostDelay)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// Providers lists all supported publishing providers.
var Providers = []string{"cms", "spreadsheet"}

// MissingEnvError reports required settings that are absent for the selected
// provider, named by the environment variables that supply them.
type MissingEnvError struct {
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Vars, ", "))
}

// Validate checks that the configuration can serve the selected provider.
// Image generation credentials are not checked; the pipeline skips images
// when they are absent.
func (c *Config) Validate(provider string) error {
	validProvider := false
	for _, p := range Providers {
		if provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid provider: %s (valid: %v)", provider, Providers)
	}

	var missing []string
	if c.Generation.APIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}

	switch provider {
	case "cms":
		if c.Webflow.APIKey == "" {
			missing = append(missing, "WEBFLOW_API_KEY")
		}
		if c.Webflow.SiteID == "" {
			missing = append(missing, "WEBFLOW_SITE_ID")
		}
		if c.Webflow.CollectionID == "" {
			missing = append(missing, "WEBFLOW_COLLECTION_ID")
		}
	case "spreadsheet":
		if c.Sheets.SpreadsheetID == "" {
			missing = append(missing, "GOOGLE_SHEETS_DOC_ID")
		}
		if c.Storage.Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
	}

	if len(missing) > 0 {
		return &MissingEnvError{Vars: missing}
	}

	return nil
}
