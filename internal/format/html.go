// Package format provides text conversion utilities for message bodies.
package format

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	blankRuns = regexp.MustCompile(`\n\s*\n`)
	spaceRuns = regexp.MustCompile(` +`)
)

// Subtrees that carry no readable text.
var skipTags = map[string]bool{
	"style":  true,
	"script": true,
}

// Elements rendered as line breaks.
var blockTags = map[string]bool{
	"br":  true,
	"p":   true,
	"div": true,
	"tr":  true,
	"li":  true,
}

// HTMLToText converts an HTML document to plain text: style and script
// subtrees are dropped, block elements become newlines, entities are
// decoded, and whitespace runs are collapsed.
func HTMLToText(content string) string {
	if content == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var b strings.Builder
	collectText(doc, &b)

	text := b.String()
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text = spaceRuns.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.ElementNode:
		if skipTags[n.Data] {
			return
		}
		if blockTags[n.Data] {
			b.WriteString("\n")
		}
	case html.TextNode:
		b.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
