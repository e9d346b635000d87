package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"blogpilot/internal/post"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Bold(true)
)

// StdinConfirmer renders a prepared post and reads a y/n answer from the
// input stream.
type StdinConfirmer struct {
	in     *bufio.Reader
	out    io.Writer
	target string
}

// NewStdinConfirmer creates a confirmer. target names the destination shown
// to the user (collection ID or worksheet).
func NewStdinConfirmer(in io.Reader, out io.Writer, target string) *StdinConfirmer {
	return &StdinConfirmer{in: bufio.NewReader(in), out: out, target: target}
}

// Confirm implements Confirmer. Only "y" or "yes" approves the post.
func (c *StdinConfirmer) Confirm(p *post.Post) (bool, error) {
	fmt.Fprintln(c.out, c.renderSummary(p))

	if preview, err := renderMarkdown(p.BodyMarkdown); err == nil {
		fmt.Fprintln(c.out, preview)
	} else {
		fmt.Fprintln(c.out, p.BodyMarkdown)
	}

	fmt.Fprint(c.out, "Publish this post? (y/n): ")
	line, err := c.in.ReadString('\n')
	if err != nil && strings.TrimSpace(line) == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (c *StdinConfirmer) renderSummary(p *post.Post) string {
	status := "publish immediately"
	if p.Draft {
		status = "draft"
	}
	image := p.ImageURL
	if image == "" {
		image = "(none)"
	}

	lines := []string{
		labelStyle.Render("Title:            ") + p.Title,
		labelStyle.Render("Slug:             ") + p.Slug,
		labelStyle.Render("Excerpt:          ") + p.ExcerptPage,
		labelStyle.Render("Featured excerpt: ") + p.ExcerptFeatured,
		labelStyle.Render("Reading time:     ") + fmt.Sprintf("%d min", p.ReadingTime),
		labelStyle.Render("Image:            ") + image,
		labelStyle.Render("Status:           ") + status,
		labelStyle.Render("Target:           ") + c.target,
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
