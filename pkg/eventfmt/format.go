// Copyright 2024-2026 Aiku AI

package eventfmt

import (
	"strings"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/eventfmt/plainfmt"
	"github.com/aiku/mxconsole/pkg/roomstate"
)

// UnsupportedPrefix starts every rendering of an unsupported event, so that
// consumers can detect them without matching the whole string.
const UnsupportedPrefix = "UNSUPPORTED MSG: "

// Options controls how Format renders an event.
type Options struct {
	// Subtitle renders a single-line preview for conversation lists.
	Subtitle bool
	// ImplicitSender is the user a conversation list item is already named
	// after. In subtitle mode, messages from this user omit the name.
	ImplicitSender id.UserID
	// MaxLength limits subtitle previews to this many runes; 0 is unlimited.
	MaxLength int
}

// IsUnsupported reports whether text is a rendering of an unsupported event.
func IsUnsupported(text string) bool {
	return strings.HasPrefix(text, UnsupportedPrefix)
}

// SenderDisplayName resolves the display name of evt's sender in state.
func SenderDisplayName(evt *event.Event, state *roomstate.RoomState) string {
	if evt == nil {
		return roomstate.UnknownUser
	}
	return roomstate.DisplayName(evt.Sender, state)
}

// SenderAvatarURL resolves the avatar of evt's sender in state.
func SenderAvatarURL(evt *event.Event, state *roomstate.RoomState) (id.ContentURIString, bool) {
	if evt == nil {
		return "", false
	}
	return roomstate.AvatarURL(evt.Sender, state)
}

// Format renders evt given the room state as of just before it. The result
// is never empty; in subtitle mode it is a single line.
func Format(evt *event.Event, state *roomstate.RoomState, opts Options) string {
	name := SenderDisplayName(evt, state)

	var text string
	switch c := Classify(evt).(type) {
	case Ordinary:
		text = formatOrdinary(evt, c, name, state, opts)
	case Emote:
		text = "* " + name + " " + c.Text
	case Attachment:
		text = name + " sent an attachment"
	case Unsupported:
		text = UnsupportedPrefix + c.Tag
	}

	if opts.Subtitle {
		text = plainfmt.SingleLine(text, opts.MaxLength)
	} else {
		text = plainfmt.Paragraph(text)
	}
	if strings.TrimSpace(text) == "" {
		return UnsupportedPrefix + eventTag(evt)
	}
	return text
}

func eventTag(evt *event.Event) string {
	if evt == nil || evt.Type.Type == "" {
		return "unknown"
	}
	return evt.Type.Type
}

func formatOrdinary(evt *event.Event, c Ordinary, name string, state *roomstate.RoomState, opts Options) string {
	switch {
	case c.Redacted:
		redacter := name
		if by := evt.Unsigned.RedactedBecause; by != nil && by.Sender != "" {
			redacter = roomstate.DisplayName(by.Sender, state)
		}
		return redacter + " deleted a message"
	case c.Text != "":
		if opts.Subtitle && opts.ImplicitSender != "" && evt.Sender == opts.ImplicitSender {
			return c.Text
		}
		return name + ": " + c.Text
	default:
		return narrate(evt, c.Content, name, state, opts.Subtitle)
	}
}
