package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 02, 2006 15:04 MST",
}

// linkOf finds the href for a candidate: the element itself, a nested anchor,
// or the closest enclosing anchor.
func linkOf(el *goquery.Selection) (string, bool) {
	if goquery.NodeName(el) == "a" {
		if href, ok := el.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return href, true
		}
	}
	if href, ok := el.Find("a[href]").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		return href, true
	}
	if href, ok := el.Closest("a[href]").Attr("href"); ok && strings.TrimSpace(href) != "" {
		return href, true
	}
	return "", false
}

// extractTitle tries heading, image alt, element text, then title/aria-label.
func extractTitle(el *goquery.Selection) string {
	if t := cleanText(el.Find("h1, h2, h3, h4, h5, h6").First().Text()); t != "" {
		return t
	}
	if alt, ok := el.Find("img[alt]").First().Attr("alt"); ok {
		if t := cleanText(alt); t != "" {
			return t
		}
	}
	if t := cleanText(el.Text()); t != "" {
		return t
	}
	for _, attr := range []string{"title", "aria-label"} {
		if v, ok := el.Attr(attr); ok {
			if t := cleanText(v); t != "" {
				return t
			}
		}
	}
	return ""
}

// firstText returns the first non-empty text (or meta content) matched by selectors.
func firstText(scope *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		var found string
		scope.Find(sel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if goquery.NodeName(node) == "meta" {
				found = cleanText(node.AttrOr("content", ""))
			} else {
				found = cleanText(node.Text())
			}
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// collectParagraphs walks selectors in order and keeps at most two distinct
// paragraphs longer than twenty characters.
func collectParagraphs(scope *goquery.Selection, selectors []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, sel := range selectors {
		scope.Find(sel).EachWithBreak(func(_ int, p *goquery.Selection) bool {
			out = appendParagraph(out, seen, p.Text())
			return len(out) < maxParagraphs
		})
		if len(out) >= maxParagraphs {
			break
		}
	}
	return out
}

// readableParagraphs runs readability over the raw page and counts every <p>
// of the cleaned article as its own paragraph.
func readableParagraphs(raw []byte, pageURL *url.URL) []string {
	article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil
	}
	return collectParagraphs(doc.Selection, []string{"p"})
}

func appendParagraph(out []string, seen map[string]bool, text string) []string {
	if len(out) >= maxParagraphs {
		return out
	}
	text = cleanText(text)
	if len([]rune(text)) <= minParagraphLen || seen[text] {
		return out
	}
	seen[text] = true
	return append(out, text)
}

func parseDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateLayout), true
		}
	}
	return "", false
}

// ComposeContent joins the excerpt paragraphs and appends the attribution footer.
// Only the first two paragraphs are ever kept.
func ComposeContent(paragraphs []string, attribution, sourceURL string) string {
	if len(paragraphs) > maxParagraphs {
		paragraphs = paragraphs[:maxParagraphs]
	}
	var b strings.Builder
	b.WriteString(strings.Join(paragraphs, "\n\n"))
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "**Source:** [%s](%s)\n\n", attribution, sourceURL)
	fmt.Fprintf(&b, "*This is an excerpt. Copyright belongs to %s. The full article is available via the link above.*", attribution)
	return b.String()
}
