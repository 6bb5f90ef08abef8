// Copyright 2024-2026 Aiku AI

package roomstate

import (
	"encoding/json"
	"errors"
	"fmt"

	"maunium.net/go/mautrix/event"
)

var (
	ErrUnknownContentType = errors.New("unknown content type")
	ErrNoEvent            = errors.New("no event")
)

// AvatarContent is the content of an m.room.avatar state event.
type AvatarContent struct {
	URL string `json:"url"`
}

// CreateContent is the content of an m.room.create state event.
type CreateContent struct {
	Creator     string `json:"creator,omitempty"`
	RoomVersion string `json:"room_version,omitempty"`
}

// EncryptionContent is the content of an m.room.encryption state event.
type EncryptionContent struct {
	Algorithm string `json:"algorithm"`
}

func newContent(evtType string) any {
	switch evtType {
	case event.EventMessage.Type, event.EventSticker.Type:
		return &event.MessageEventContent{}
	case event.StateMember.Type:
		return &event.MemberEventContent{}
	case event.StateRoomName.Type:
		return &event.RoomNameEventContent{}
	case event.StateTopic.Type:
		return &event.TopicEventContent{}
	case event.StateRoomAvatar.Type:
		return &AvatarContent{}
	case event.StatePowerLevels.Type:
		return &event.PowerLevelsEventContent{}
	case event.StateCreate.Type:
		return &CreateContent{}
	case event.StateEncryption.Type:
		return &EncryptionContent{}
	case event.EphemeralEventPresence.Type:
		return &event.PresenceEventContent{}
	case event.AccountDataDirectChats.Type:
		return &event.DirectChatsEventContent{}
	default:
		return nil
	}
}

// ParseContent returns the typed content of evt. Content that was already
// parsed is returned as-is; otherwise the raw JSON is decoded into a fresh
// value, so evt itself is never modified.
func ParseContent(evt *event.Event) (any, error) {
	if evt == nil {
		return nil, ErrNoEvent
	}
	return parseInto(evt.Type.Type, &evt.Content)
}

// ParsePrevContent is like ParseContent for the unsigned prev_content of a
// state event. It returns nil, nil when the event has no previous content.
func ParsePrevContent(evt *event.Event) (any, error) {
	if evt == nil {
		return nil, ErrNoEvent
	}
	if evt.Unsigned.PrevContent == nil {
		return nil, nil
	}
	return parseInto(evt.Type.Type, evt.Unsigned.PrevContent)
}

func parseInto(evtType string, content *event.Content) (any, error) {
	if content.Parsed != nil {
		return content.Parsed, nil
	}
	target := newContent(evtType)
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContentType, evtType)
	}
	raw := []byte(content.VeryRaw)
	if len(raw) == 0 && content.Raw != nil {
		var err error
		raw, err = json.Marshal(content.Raw)
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode raw content: %w", err)
		}
	}
	if len(raw) == 0 {
		return target, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("failed to parse %s content: %w", evtType, err)
	}
	return target, nil
}
