package generation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// UploadContext uploads every PDF in dir to the Files API and keeps the
// returned references as grounding parts for body generation. Documents that
// fail to upload or process are skipped with a warning. Returns the number
// of documents attached.
func (g *Generator) UploadContext(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			g.logger.Info("context directory not found, skipping document upload",
				zap.String("dir", dir))
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read context directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		file, err := g.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
			MIMEType: "application/pdf",
		})
		if err != nil {
			g.logger.Warn("failed to upload context document",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		file, err = g.waitForFile(ctx, file)
		if err != nil {
			g.logger.Warn("context document never became ready",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		g.contextParts = append(g.contextParts, genai.NewPartFromURI(file.URI, file.MIMEType))
		g.logger.Debug("context document attached",
			zap.String("file", entry.Name()), zap.String("name", file.Name))
	}

	return len(g.contextParts), nil
}

// waitForFile polls until the uploaded file leaves the processing state.
func (g *Generator) waitForFile(ctx context.Context, file *genai.File) (*genai.File, error) {
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}

		var err error
		file, err = g.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, err
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("file processing failed: %s", file.Name)
	}
	return file, nil
}
