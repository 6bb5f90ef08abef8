// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package plainfmt converts Matrix message content to plain text suitable for
// previews and notifications.
package plainfmt

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"maunium.net/go/mautrix/event"
)

// Ellipsis is appended to text cut by SingleLine.
const Ellipsis = "…"

var (
	mxReplyRe    = regexp.MustCompile(`(?s)<mx-reply>.*?</mx-reply>`)
	preRe        = regexp.MustCompile(`(?s)<pre><code[^>]*>(.*?)</code></pre>`)
	linkRe       = regexp.MustCompile(`<a href="([^"]+)"[^>]*>(.*?)</a>`)
	brRe         = regexp.MustCompile(`<br\s*/?>`)
	blockquoteRe = regexp.MustCompile(`(?s)<blockquote>(.*?)</blockquote>`)
	liRe         = regexp.MustCompile(`<li>(.*?)</li>`)
	blockEndRe   = regexp.MustCompile(`</(p|h[1-6]|ul|ol|div)>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	replyQuoteRe = regexp.MustCompile(`(?m)\A(> .*\n)+\n?`)
)

// Parse returns the plain text of a message. HTML formatted bodies are
// stripped of markup; plain bodies have reply fallbacks removed.
func Parse(content *event.MessageEventContent) string {
	if content == nil {
		return ""
	}

	if content.Format != event.FormatHTML || content.FormattedBody == "" {
		return strings.TrimSpace(replyQuoteRe.ReplaceAllString(content.Body, ""))
	}

	text := content.FormattedBody

	// Reply fallbacks are context, not content.
	text = mxReplyRe.ReplaceAllString(text, "")

	text = preRe.ReplaceAllString(text, "$1\n")
	text = linkRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := linkRe.FindStringSubmatch(match)
		label := tagRe.ReplaceAllString(parts[2], "")
		if strings.HasPrefix(parts[1], "https://matrix.to/") || label == parts[1] {
			return label
		}
		return label + " (" + parts[1] + ")"
	})
	text = blockquoteRe.ReplaceAllString(text, "$1\n")
	text = liRe.ReplaceAllString(text, "- $1\n")
	text = blockEndRe.ReplaceAllString(text, "\n\n")
	text = brRe.ReplaceAllString(text, "\n")
	text = tagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = blankLinesRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// Paragraph folds text into a single paragraph: blank lines are removed and
// surrounding whitespace trimmed.
func Paragraph(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// SingleLine cuts text at its first line break and limits it to maxRunes
// runes (0 means no limit). Ellipsis is appended whenever text was cut.
func SingleLine(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	cut := false
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
		cut = true
	}
	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:maxRunes]))
		cut = true
	}
	if cut {
		return text + Ellipsis
	}
	return text
}
