// Package social turns a published post into a short-form companion draft
// and hands it to the user via console and clipboard.
package social

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"blogpilot/internal/post"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// DraftGenerator produces the short-form draft text for a published post.
type DraftGenerator interface {
	GenerateLinkedInDraft(ctx context.Context, body, postURL string, interlinks []string) (string, error)
}

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	frameTitle = lipgloss.NewStyle().Bold(true).Render("LinkedIn Draft")
)

// Drafter generates and delivers social drafts. Delivery always prints to
// the console; the clipboard copy is best-effort.
type Drafter struct {
	gen        DraftGenerator
	chatbotURL string
	out        io.Writer
	logger     *zap.Logger
}

// NewDrafter creates a drafter writing console output to out.
func NewDrafter(gen DraftGenerator, chatbotURL string, out io.Writer, logger *zap.Logger) *Drafter {
	return &Drafter{gen: gen, chatbotURL: chatbotURL, out: out, logger: logger}
}

// Share derives a social draft from a published post. The [CHATBOT_URL]
// placeholder in the generated text is replaced with the configured URL.
func (d *Drafter) Share(ctx context.Context, p *post.Post, postURL string) error {
	interlinks := post.ExtractInterlinks(p.BodyMarkdown)

	draft, err := d.gen.GenerateLinkedInDraft(ctx, p.BodyMarkdown, postURL, interlinks)
	if err != nil {
		return fmt.Errorf("failed to generate social draft: %w", err)
	}
	draft = strings.ReplaceAll(draft, "[CHATBOT_URL]", d.chatbotURL)

	fmt.Fprintln(d.out, frameStyle.Render(frameTitle+"\n\n"+draft))

	if err := clipboardWriteAll(draft); err != nil {
		d.logger.Warn("failed to copy draft to clipboard, printed above instead",
			zap.Error(err))
		return nil
	}
	fmt.Fprintln(d.out, "Draft copied to clipboard.")
	return nil
}
