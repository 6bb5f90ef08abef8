// Copyright 2024-2026 Aiku AI

package handler

import (
	"context"
	"fmt"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/eventfmt"
	"github.com/aiku/mxconsole/pkg/roomindex"
	"github.com/aiku/mxconsole/pkg/roomstate"
)

// UnsupportedPrefix marks renderings of events the client does not display.
const UnsupportedPrefix = eventfmt.UnsupportedPrefix

func (h *Handler) selfID() id.UserID {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return ""
	}
	return h.session.UserID
}

// SetInAppNotificationsEnabled turns keyword notifications on or off.
func (h *Handler) SetInAppNotificationsEnabled(enabled bool) {
	h.inApp.Store(enabled)
	h.log.Debug().Bool("enabled", enabled).Msg("In-app notifications toggled")
}

// InAppNotificationsEnabled reports whether keyword notifications are on.
func (h *Handler) InAppNotificationsEnabled() bool {
	return h.inApp.Load()
}

func (h *Handler) IsSupportedAttachment(evt *event.Event) bool {
	return eventfmt.IsSupportedAttachment(evt)
}

func (h *Handler) IsEmote(evt *event.Event) bool {
	return eventfmt.IsEmote(evt)
}

// ShouldDisplay reports whether evt belongs in a timeline.
func (h *Handler) ShouldDisplay(evt *event.Event) bool {
	return eventfmt.IsDisplayable(evt)
}

func (h *Handler) SenderDisplayName(evt *event.Event, state *roomstate.RoomState) string {
	return eventfmt.SenderDisplayName(evt, state)
}

// SenderAvatarRef returns the avatar of evt's sender, or false if none is set.
func (h *Handler) SenderAvatarRef(evt *event.Event, state *roomstate.RoomState) (id.ContentURIString, bool) {
	return eventfmt.SenderAvatarURL(evt, state)
}

// DisplayText renders evt against the room state as of just before it.
//
// In subtitle mode the sender's name is left out when the room is a
// conversation between the session user and exactly one other member and
// that member sent the event, since the list item is already named after
// them.
func (h *Handler) DisplayText(evt *event.Event, state *roomstate.RoomState, subtitle bool) string {
	opts := eventfmt.Options{Subtitle: subtitle}
	if subtitle {
		opts.MaxLength = h.cfg.SubtitleMaxLength
		if other, ok := roomindex.OtherMember(state, h.selfID()); ok {
			opts.ImplicitSender = other
		}
	}
	return eventfmt.Format(evt, state, opts)
}

// FindDirectRoom returns the existing one-to-one room with member.
func (h *Handler) FindDirectRoom(member id.UserID) (id.RoomID, bool) {
	room, ok := roomindex.FindDirectRoom(h.rooms.ListRooms(), h.selfID(), member)
	if !ok {
		return "", false
	}
	return room.RoomID, true
}

// PowerLevel returns member's power level in room.
func (h *Handler) PowerLevel(member id.UserID, room *roomstate.RoomState) int {
	return room.PowerLevel(member)
}

// DisplayNameFor resolves member's name from the first known room listing
// them. It never returns an empty string.
func (h *Handler) DisplayNameFor(member id.UserID) string {
	for _, room := range h.rooms.ListRooms() {
		if m, ok := room.Member(member); ok {
			return roomstate.MemberDisplayName(m)
		}
	}
	return roomstate.BareIdentifier(member)
}

// ContainsKeyword reports whether text contains a notification keyword.
func (h *Handler) ContainsKeyword(text string) bool {
	return h.matcher.Load().Contains(text)
}

// CacheSize returns the size of the persistent sync store in bytes.
func (h *Handler) CacheSize(ctx context.Context) (int64, error) {
	size, err := h.client.Store().Size(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get store size: %w", err)
	}
	return size, nil
}

// TotalCachesSize returns the combined size of the store and the media cache.
func (h *Handler) TotalCachesSize(ctx context.Context) (int64, error) {
	total, err := h.CacheSize(ctx)
	if err != nil {
		return 0, err
	}
	if h.media == nil {
		return total, nil
	}
	media, err := h.media.Size()
	if err != nil {
		return 0, fmt.Errorf("failed to get media cache size: %w", err)
	}
	return total + media, nil
}
