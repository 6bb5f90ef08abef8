// Copyright 2024-2026 Aiku AI

package eventfmt

import (
	"maunium.net/go/mautrix/event"

	"github.com/aiku/mxconsole/pkg/eventfmt/plainfmt"
	"github.com/aiku/mxconsole/pkg/roomstate"
)

// Classification is the outcome of Classify. The set of implementations is
// closed: Ordinary, Emote, Attachment and Unsupported.
type Classification interface {
	classification()
}

// Ordinary is a well-formed text message or a narratable state change.
type Ordinary struct {
	// Content is the parsed event content.
	Content any
	// Text is the plain text of a message; empty for state changes.
	Text string
	// Redacted is set for messages that were deleted.
	Redacted bool
}

// Emote is an m.emote message.
type Emote struct {
	Text string
}

// Attachment is a media or file message of a supported kind.
type Attachment struct {
	MsgType event.MessageType
	Name    string
}

// Unsupported is anything the client declines to render. Tag is a short
// description of the event or message type.
type Unsupported struct {
	Tag string
}

func (Ordinary) classification()    {}
func (Emote) classification()       {}
func (Attachment) classification()  {}
func (Unsupported) classification() {}

// SupportedAttachmentTypes is the fixed set of message types treated as
// attachments.
var SupportedAttachmentTypes = map[event.MessageType]bool{
	event.MsgImage: true,
	event.MsgAudio: true,
	event.MsgVideo: true,
	event.MsgFile:  true,
}

// narratableTypes is the closed set of state event types rendered as
// third-person narration.
var narratableTypes = map[string]bool{
	event.StateMember.Type:     true,
	event.StateRoomName.Type:   true,
	event.StateTopic.Type:      true,
	event.StateRoomAvatar.Type: true,
	event.StateCreate.Type:     true,
	event.StateEncryption.Type: true,
}

// IsDisplayable reports whether evt is of a type shown in a timeline: room
// messages and the narratable state changes.
func IsDisplayable(evt *event.Event) bool {
	if evt == nil {
		return false
	}
	if evt.Type.Type == event.EventMessage.Type {
		return true
	}
	return evt.StateKey != nil && narratableTypes[evt.Type.Type]
}

// Classify sorts evt into one Classification. It never fails: events that
// cannot be parsed are Unsupported.
func Classify(evt *event.Event) Classification {
	if evt == nil || evt.Type.Type == "" {
		return Unsupported{Tag: "unknown"}
	}
	evtType := evt.Type.Type

	if evtType == event.EventMessage.Type && evt.Unsigned.RedactedBecause != nil {
		return Ordinary{Redacted: true}
	}

	content, err := roomstate.ParseContent(evt)
	if err != nil {
		return Unsupported{Tag: evtType}
	}

	if msg, ok := content.(*event.MessageEventContent); ok {
		if evtType != event.EventMessage.Type {
			return Unsupported{Tag: evtType}
		}
		return classifyMessage(msg)
	}

	if evt.StateKey != nil && narratableTypes[evtType] {
		return Ordinary{Content: content}
	}
	return Unsupported{Tag: evtType}
}

func classifyMessage(msg *event.MessageEventContent) Classification {
	switch msg.MsgType {
	case event.MsgText, event.MsgNotice:
		text := plainfmt.Parse(msg)
		if text == "" {
			return Unsupported{Tag: string(msg.MsgType)}
		}
		return Ordinary{Content: msg, Text: text}
	case event.MsgEmote:
		text := plainfmt.Parse(msg)
		if text == "" {
			return Unsupported{Tag: string(msg.MsgType)}
		}
		return Emote{Text: text}
	case "":
		return Unsupported{Tag: event.EventMessage.Type}
	}
	if SupportedAttachmentTypes[msg.MsgType] {
		return Attachment{MsgType: msg.MsgType, Name: msg.Body}
	}
	return Unsupported{Tag: string(msg.MsgType)}
}

// IsSupportedAttachment reports whether evt is an attachment of a supported kind.
func IsSupportedAttachment(evt *event.Event) bool {
	_, ok := Classify(evt).(Attachment)
	return ok
}

// IsEmote reports whether evt is an emote.
func IsEmote(evt *event.Event) bool {
	_, ok := Classify(evt).(Emote)
	return ok
}
