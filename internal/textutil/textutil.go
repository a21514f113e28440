package textutil

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	tagRe        = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	anyTagRe     = regexp.MustCompile(`<[^>]*>`)
	spaceRe      = regexp.MustCompile(`[ \t\f\v]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// NormalizeJobDescription turns pasted HTML into plain text and tidies whitespace.
// Plain text passes through with only whitespace changes.
func NormalizeJobDescription(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if tagRe.MatchString(s) {
		s = htmlToText(s)
	}
	return tidy(s)
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return anyTagRe.ReplaceAllString(html, " ")
	}
	doc.Find("script, style, noscript, iframe").Remove()

	var blocks []string
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, td, pre").Each(func(_ int, sel *goquery.Selection) {
		// nested blocks are picked up on their own
		if sel.Find("p, li").Length() > 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		if goquery.NodeName(sel) == "li" {
			text = "- " + text
		}
		blocks = append(blocks, text)
	})
	if len(blocks) > 0 {
		return strings.Join(blocks, "\n")
	}

	return doc.Text()
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
	}
	out := strings.Join(lines, "\n")
	out = blankLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
