// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package plainfmt

import (
	"testing"

	"maunium.net/go/mautrix/event"
)

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content *event.MessageEventContent
		want    string
	}{
		{
			name:    "nil content",
			content: nil,
			want:    "",
		},
		{
			name:    "plain body",
			content: &event.MessageEventContent{Body: "  hello there  "},
			want:    "hello there",
		},
		{
			name:    "plain body with reply fallback",
			content: &event.MessageEventContent{Body: "> <@bob:example.com> original\n\nmy answer"},
			want:    "my answer",
		},
		{
			name: "html without format falls back to body",
			content: &event.MessageEventContent{
				Body:          "body text",
				FormattedBody: "<b>ignored</b>",
			},
			want: "body text",
		},
		{
			name: "inline markup stripped",
			content: &event.MessageEventContent{
				Body:          "fallback",
				Format:        event.FormatHTML,
				FormattedBody: "<strong>bold</strong> and <code>code</code>",
			},
			want: "bold and code",
		},
		{
			name: "entities unescaped",
			content: &event.MessageEventContent{
				Format:        event.FormatHTML,
				FormattedBody: "a &lt; b &amp;&amp; c",
			},
			want: "a < b && c",
		},
		{
			name: "external link keeps url",
			content: &event.MessageEventContent{
				Format:        event.FormatHTML,
				FormattedBody: `see <a href="https://example.com">docs</a>`,
			},
			want: "see docs (https://example.com)",
		},
		{
			name: "pill link keeps label only",
			content: &event.MessageEventContent{
				Format:        event.FormatHTML,
				FormattedBody: `hi <a href="https://matrix.to/#/@bob:example.com">Bob</a>`,
			},
			want: "hi Bob",
		},
		{
			name: "mx-reply removed",
			content: &event.MessageEventContent{
				Format:        event.FormatHTML,
				FormattedBody: "<mx-reply><blockquote>old</blockquote></mx-reply>new",
			},
			want: "new",
		},
		{
			name: "line breaks and lists",
			content: &event.MessageEventContent{
				Format:        event.FormatHTML,
				FormattedBody: "one<br/>two<ul><li>a</li><li>b</li></ul>",
			},
			want: "one\ntwo- a\n- b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Parse(tt.content); got != tt.want {
				t.Errorf("Parse: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParagraph(t *testing.T) {
	t.Parallel()
	got := Paragraph("first\n\n\nsecond  \r\n\n third")
	want := "first\nsecond\n third"
	if got != want {
		t.Errorf("Paragraph: got %q, want %q", got, want)
	}
}

func TestSingleLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"short", "hello", 0, "hello"},
		{"multi line", "hello\nworld", 0, "hello…"},
		{"crlf", "hello\r\nworld", 0, "hello…"},
		{"limit", "abcdefgh", 3, "abc…"},
		{"limit not reached", "abc", 3, "abc"},
		{"unicode limit", "héllo wörld", 5, "héllo…"},
		{"trims", "  padded  ", 0, "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SingleLine(tt.text, tt.max); got != tt.want {
				t.Errorf("SingleLine(%q, %d): got %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}
