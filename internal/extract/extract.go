// Package extract pulls outbound links and visible text out of HTML pages.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pagefold/pagefold/internal/urlutil"
)

// skippedSchemes are anchor targets that never lead to a crawlable page.
var skippedSchemes = []string{"#", "javascript:", "mailto:", "tel:"}

// Links returns the normalized absolute HTTP/HTTPS links found in the
// document, resolved against base, in document order with duplicates
// removed. In-page anchors and javascript/mailto/tel targets are ignored,
// and fragments are stripped before deduplication.
func Links(body []byte, base *url.URL) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || hasSkippedScheme(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		normalized, err := urlutil.Normalize(base.ResolveReference(ref).String())
		if err != nil {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})
	return links, nil
}

func hasSkippedScheme(href string) bool {
	for _, prefix := range skippedSchemes {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}

// Text strips script, style, and navigation markup and returns the page's
// visible text, blocks separated by blank lines.
func Text(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, nav, footer, noscript").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var blocks []string
	for _, node := range root.Nodes {
		collectText(node, &blocks)
	}
	return strings.Join(blocks, "\n\n"), nil
}

func collectText(n *html.Node, blocks *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*blocks = append(*blocks, text)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, blocks)
	}
}
