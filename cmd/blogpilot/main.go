package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"blogpilot/internal/config"
	"blogpilot/internal/generation"
	"blogpilot/internal/history"
	"blogpilot/internal/imaging"
	"blogpilot/internal/pipeline"
	"blogpilot/internal/publish"
	"blogpilot/internal/social"
	"blogpilot/internal/storage"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Pipeline flags
	numPosts     int
	autoMode     bool
	linkedinPost bool
	providerName string

	// Logger
	logger *zap.Logger
)

// rootCmd runs the generation and publishing pipeline.
var rootCmd = &cobra.Command{
	Use:   "blogpilot",
	Short: "blogpilot - automated blog post generation and publishing",
	Long: `blogpilot generates blog posts with a generative language model and
publishes them to a configured target: the Webflow CMS or a Google Sheets
worksheet backing a static site, with images hosted in S3.

Each post is generated, illustrated, optionally confirmed interactively,
published, and recorded in a local history so future posts avoid repeating
topics. An optional LinkedIn companion draft is copied to the clipboard
after each publish.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runPipeline,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "blogpilot.yaml", "path to the configuration file")

	rootCmd.Flags().IntVarP(&numPosts, "num-posts", "n", 1, "number of posts to attempt")
	rootCmd.Flags().BoolVarP(&linkedinPost, "linkedin", "l", false, "generate a LinkedIn draft for each published post")
	rootCmd.Flags().BoolVarP(&autoMode, "auto", "a", false, "skip interactive confirmation")
	rootCmd.Flags().StringVar(&providerName, "provider", "cms", "publishing provider: cms or spreadsheet")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	// Credentials come from .env in development; absence is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if numPosts < 0 {
		return fmt.Errorf("number of posts must be zero or greater")
	}
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(providerName); err != nil {
		return err
	}

	if numPosts == 0 {
		fmt.Println("0/0 posts published")
		return nil
	}

	gen, err := generation.NewGenerator(ctx, cfg.Generation, logger)
	if err != nil {
		return err
	}
	if n, err := gen.UploadContext(ctx, cfg.Generation.ContextDir); err != nil {
		logger.Warn("context upload failed, generating without file context", zap.Error(err))
	} else if n > 0 {
		logger.Info("context documents attached", zap.Int("count", n))
	}

	publisher, target, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Generator: gen,
		Images:    buildResolver(ctx, cfg, publisher),
		Publisher: publisher,
	}

	var prev []generation.Summary
	store, err := history.Open(cfg.History.DatabasePath)
	if err != nil {
		logger.Warn("history unavailable, topic avoidance disabled", zap.Error(err))
	} else {
		defer store.Close()
		deps.Recorder = store

		if n, err := store.ImportSummaries(cfg.History.SummariesFile, logger); err != nil {
			logger.Warn("failed to import legacy summaries", zap.Error(err))
		} else if n > 0 {
			logger.Info("imported legacy summaries", zap.Int("count", n))
		}

		entries, err := store.Summaries()
		if err != nil {
			logger.Warn("failed to load previous summaries", zap.Error(err))
		}
		for _, e := range entries {
			prev = append(prev, generation.Summary{Summary: e.Summary, URL: e.URL})
		}
	}

	if linkedinPost {
		deps.Social = social.NewDrafter(gen, cfg.Social.ChatbotURL, os.Stdout, logger)
	}
	if !autoMode {
		deps.Confirmer = pipeline.NewStdinConfirmer(os.Stdin, os.Stdout, target)
	}

	pl := pipeline.New(deps, pipeline.Options{
		NumPosts:  numPosts,
		Draft:     cfg.Pipeline.Draft,
		PostDelay: cfg.GetPostDelay(),
	}, logger)

	res := pl.Run(ctx, prev)
	fmt.Printf("%d/%d posts published\n", res.Published, res.Attempted)
	return nil
}

// buildPublisher constructs the selected provider and names its target for
// the confirmation prompt.
func buildPublisher(ctx context.Context, cfg *config.Config) (publish.Publisher, string, error) {
	switch providerName {
	case "cms":
		client := &http.Client{Timeout: cfg.GetWebflowTimeout()}
		return publish.NewWebflowPublisher(cfg.Webflow, client, logger), cfg.Webflow.CollectionID, nil
	case "spreadsheet":
		p, err := publish.NewSheetsPublisher(ctx, cfg.Sheets, cfg.Webflow.PublishedURLBase, logger)
		if err != nil {
			return nil, "", err
		}
		return p, cfg.Sheets.Worksheet, nil
	default:
		return nil, "", fmt.Errorf("invalid provider: %s", providerName)
	}
}

// buildResolver wires image generation to the provider's placement. Missing
// image credentials or storage disable images rather than failing the run.
func buildResolver(ctx context.Context, cfg *config.Config, publisher publish.Publisher) pipeline.ImageResolver {
	if cfg.Image.APIKey == "" {
		logger.Warn("image API key not set, posts will be published without images")
		return nil
	}

	client := imaging.NewImageClientWithConfig(imaging.ImageClientConfig{
		APIKey:  cfg.Image.APIKey,
		BaseURL: cfg.Image.BaseURL,
		Model:   cfg.Image.Model,
		Size:    cfg.Image.Size,
		Timeout: cfg.GetImageTimeout(),
	})

	var placer imaging.Placer
	switch p := publisher.(type) {
	case *publish.WebflowPublisher:
		placer = imaging.NewWebflowPlacer(p)
	case *publish.SheetsPublisher:
		uploader, err := storage.NewS3Uploader(ctx, cfg.Storage)
		if err != nil {
			logger.Warn("object storage unavailable, posts will be published without images",
				zap.Error(err))
			return nil
		}
		placer = imaging.NewS3Placer(uploader)
	default:
		return nil
	}

	return imaging.NewResolver(client, placer, logger)
}
