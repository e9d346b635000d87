package post

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
)

var markdownLink = regexp.MustCompile(`\[[^\]]*?\]\((https?://[^)]+)\)`)

// RenderHTML converts generated markdown into the single-line HTML stored on
// a Post. Newlines in the rendered output are stripped.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return strings.ReplaceAll(buf.String(), "\n", ""), nil
}

// ExtractInterlinks returns the target URLs of every markdown link in body,
// in order of appearance. Bare URLs outside link syntax are ignored.
func ExtractInterlinks(body string) []string {
	matches := markdownLink.FindAllStringSubmatch(body, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, m[1])
	}
	return links
}
