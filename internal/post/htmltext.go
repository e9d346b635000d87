package post

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLText extracts the visible text of an HTML fragment, with runs of
// whitespace collapsed to single spaces. Script and style contents are
// skipped. If the fragment does not parse, it is returned unchanged.
func HTMLText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return strings.Join(strings.Fields(sb.String()), " ")
}
