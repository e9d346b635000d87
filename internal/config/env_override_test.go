package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("API keys", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "gem-key")
		t.Setenv("OPENAI_API_KEY", "oa-key")
		t.Setenv("WEBFLOW_API_KEY", "wf-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.Generation.APIKey)
		assert.Equal(t, "oa-key", cfg.Image.APIKey)
		assert.Equal(t, "wf-key", cfg.Webflow.APIKey)
	})

	t.Run("Webflow identifiers", func(t *testing.T) {
		t.Setenv("WEBFLOW_SITE_ID", "site-1")
		t.Setenv("WEBFLOW_COLLECTION_ID", "coll-1")
		t.Setenv("WEBFLOW_PUBLISHED_URL_BASE", "https://blog.example.com/post/")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "site-1", cfg.Webflow.SiteID)
		assert.Equal(t, "coll-1", cfg.Webflow.CollectionID)
		assert.Equal(t, "https://blog.example.com/post/", cfg.Webflow.PublishedURLBase)
	})

	t.Run("Sheets and storage", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_DOC_ID", "doc-1")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/sa.json")
		t.Setenv("S3_BUCKET", "my-bucket")
		t.Setenv("S3_REGION", "eu-west-1")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "doc-1", cfg.Sheets.SpreadsheetID)
		assert.Equal(t, "/tmp/sa.json", cfg.Sheets.CredentialsFile)
		assert.Equal(t, "my-bucket", cfg.Storage.Bucket)
		assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	})

	t.Run("Env wins over file values", func(t *testing.T) {
		t.Setenv("WEBFLOW_SITE_ID", "env-site")

		cfg := &Config{Webflow: WebflowConfig{SiteID: "file-site"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-site", cfg.Webflow.SiteID)
	})

	t.Run("Empty env leaves config untouched", func(t *testing.T) {
		t.Setenv("WEBFLOW_SITE_ID", "")

		cfg := &Config{Webflow: WebflowConfig{SiteID: "file-site"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "file-site", cfg.Webflow.SiteID)
	})

	t.Run("Database path", func(t *testing.T) {
		t.Setenv("BLOGPILOT_DB", "/tmp/test.db")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/test.db", cfg.History.DatabasePath)
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Generation.APIKey = "gem"
		cfg.Webflow.APIKey = "wf"
		cfg.Webflow.SiteID = "site"
		cfg.Webflow.CollectionID = "coll"
		cfg.Sheets.SpreadsheetID = "doc"
		cfg.Storage.Bucket = "bucket"
		return cfg
	}

	t.Run("valid cms config", func(t *testing.T) {
		assert.NoError(t, base().Validate("cms"))
	})

	t.Run("valid spreadsheet config", func(t *testing.T) {
		assert.NoError(t, base().Validate("spreadsheet"))
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		err := base().Validate("wordpress")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid provider")
	})

	t.Run("missing generation key reported", func(t *testing.T) {
		cfg := base()
		cfg.Generation.APIKey = ""
		err := cfg.Validate("cms")
		assert.Error(t, err)

		var missing *MissingEnvError
		assert.ErrorAs(t, err, &missing)
		assert.Contains(t, missing.Vars, "GEMINI_API_KEY")
	})

	t.Run("cms requires webflow settings", func(t *testing.T) {
		cfg := base()
		cfg.Webflow.APIKey = ""
		cfg.Webflow.SiteID = ""
		err := cfg.Validate("cms")

		var missing *MissingEnvError
		assert.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{"WEBFLOW_API_KEY", "WEBFLOW_SITE_ID"}, missing.Vars)
	})

	t.Run("spreadsheet requires sheet and bucket", func(t *testing.T) {
		cfg := base()
		cfg.Sheets.SpreadsheetID = ""
		cfg.Storage.Bucket = ""
		err := cfg.Validate("spreadsheet")

		var missing *MissingEnvError
		assert.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{"GOOGLE_SHEETS_DOC_ID", "S3_BUCKET"}, missing.Vars)
	})

	t.Run("spreadsheet ignores webflow settings", func(t *testing.T) {
		cfg := base()
		cfg.Webflow.APIKey = ""
		cfg.Webflow.SiteID = ""
		assert.NoError(t, cfg.Validate("spreadsheet"))
	})

	t.Run("missing image key is allowed", func(t *testing.T) {
		cfg := base()
		cfg.Image.APIKey = ""
		assert.NoError(t, cfg.Validate("cms"))
	})
}
