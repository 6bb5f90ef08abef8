// Copyright 2024-2026 Aiku AI

// Package keywords matches free text against notification keywords
// ("bing words").
package keywords

import (
	"regexp"
	"slices"
	"strings"
)

// wordClass lists the characters that make up a word. A keyword only
// matches when it is not surrounded by word characters.
const wordClass = `\p{L}\p{N}_`

// Matcher tests text against a fixed keyword set. The zero value and a
// Matcher built from no keywords never match. Safe for concurrent use.
type Matcher struct {
	keywords []string
	re       *regexp.Regexp
	each     []*regexp.Regexp
}

// New builds a matcher. Keywords are trimmed, lowercased and deduplicated;
// empty keywords are ignored.
func New(keywords []string) *Matcher {
	var cleaned []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && !slices.Contains(cleaned, kw) {
			cleaned = append(cleaned, kw)
		}
	}
	m := &Matcher{keywords: cleaned}
	if len(cleaned) == 0 {
		return m
	}
	// Longest first so that "hello world" wins over "hello" in alternation.
	sorted := slices.Clone(cleaned)
	slices.SortFunc(sorted, func(a, b string) int { return len(b) - len(a) })
	quoted := make([]string, len(sorted))
	for i, kw := range sorted {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	m.re = wordPattern(strings.Join(quoted, "|"))
	m.each = make([]*regexp.Regexp, len(cleaned))
	for i, kw := range cleaned {
		m.each[i] = wordPattern(regexp.QuoteMeta(kw))
	}
	return m
}

func wordPattern(alternation string) *regexp.Regexp {
	notWord := "[^" + wordClass + "]"
	return regexp.MustCompile(`(?i)(?:^|` + notWord + `)(?:` + alternation + `)(?:$|` + notWord + `)`)
}

// Keywords returns the normalized keyword set.
func (m *Matcher) Keywords() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keywords)
}

// Len returns the number of keywords.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keywords)
}

// Contains reports whether text contains any keyword as a whole word,
// ignoring case.
func (m *Matcher) Contains(text string) bool {
	if m == nil || m.re == nil || text == "" {
		return false
	}
	return m.re.MatchString(text)
}

// Match returns the first keyword found in text, or "".
func (m *Matcher) Match(text string) string {
	if m == nil || m.re == nil || text == "" {
		return ""
	}
	for i, re := range m.each {
		if re.MatchString(text) {
			return m.keywords[i]
		}
	}
	return ""
}
