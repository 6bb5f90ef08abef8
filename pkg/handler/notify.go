// Copyright 2024-2026 Aiku AI

package handler

import (
	"fmt"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/eventfmt"
	"github.com/aiku/mxconsole/pkg/eventfmt/plainfmt"
	"github.com/aiku/mxconsole/pkg/handler/keywords"
	"github.com/aiku/mxconsole/pkg/roomstate"
)

// ReloadKeywords replaces the notification keywords and returns how many are
// active. A nil list re-reads the notification configuration; if that fails
// the current keywords stay in place.
func (h *Handler) ReloadKeywords(list []string) (int, error) {
	if list == nil {
		var err error
		list, err = h.keywords.LoadKeywords()
		if err != nil {
			return h.matcher.Load().Len(), fmt.Errorf("failed to reload keywords: %w", err)
		}
	}
	m := keywords.New(list)
	h.matcher.Store(m)
	h.log.Info().Int("count", m.Len()).Msg("Reloaded notification keywords")
	return m.Len(), nil
}

func (h *Handler) observeTimeline(entries []TimelineEntry) {
	if h.timeline == nil {
		return
	}
	for _, entry := range entries {
		if eventfmt.IsDisplayable(entry.Event) {
			h.timeline.ObserveTimeline(entry.RoomID, entry.Event, entry.Before)
		}
	}
}

func (h *Handler) notifyTimeline(entries []TimelineEntry, self id.UserID) {
	if h.notifier == nil || !h.inApp.Load() {
		return
	}
	for _, entry := range entries {
		h.maybeNotify(entry, self)
	}
}

func (h *Handler) maybeNotify(entry TimelineEntry, self id.UserID) {
	evt, state := entry.Event, entry.Before
	if evt.Sender == self || evt.Type.Type != event.EventMessage.Type {
		return
	}
	var text string
	switch msg := eventfmt.Classify(evt).(type) {
	case eventfmt.Ordinary:
		if msg.Redacted {
			return
		}
		text = msg.Text
	case eventfmt.Emote:
		text = msg.Text
	}
	if text == "" {
		return
	}
	keyword := h.matcher.Load().Match(plainfmt.Paragraph(text))
	if keyword == "" {
		return
	}

	if state == nil {
		state = roomstate.New(entry.RoomID)
	}
	n := Notification{
		RoomID:     entry.RoomID,
		EventID:    evt.ID,
		Sender:     evt.Sender,
		SenderName: eventfmt.SenderDisplayName(evt, state),
		Keyword:    keyword,
		Text:       h.DisplayText(evt, state, true),
	}
	h.log.Debug().
		Stringer("room_id", entry.RoomID).
		Stringer("event_id", evt.ID).
		Str("keyword", keyword).
		Msg("Keyword matched, notifying")
	h.notifier.Notify(n)
}
