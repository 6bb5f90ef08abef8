// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package roomindex

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/roomstate"
)

// Index is the set of known rooms. It is safe for concurrent use; snapshots
// returned by it are never modified after publication.
type Index struct {
	log zerolog.Logger

	mu       sync.RWMutex
	rooms    map[id.RoomID]*roomstate.RoomState
	profiles map[id.UserID]roomstate.Profile
	direct   map[id.RoomID]bool
}

// New creates an empty index.
func New(log zerolog.Logger) *Index {
	return &Index{
		log:      log.With().Str("component", "room_index").Logger(),
		rooms:    make(map[id.RoomID]*roomstate.RoomState),
		profiles: make(map[id.UserID]roomstate.Profile),
		direct:   make(map[id.RoomID]bool),
	}
}

// Apply merges a sync batch into the index. Each room's state section is
// applied first, then its timeline in order. The returned entries carry every
// timeline event with the snapshot taken just before that event was applied,
// including events of rooms that were left in this batch.
func (x *Index) Apply(batch *Batch) []TimelineEntry {
	if batch == nil {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	profilesChanged := x.applyPresence(batch.Presence)
	directChanged := x.applyAccountData(batch.AccountData)

	var entries []TimelineEntry
	touched := make(map[id.RoomID]struct{}, len(batch.Rooms))
	for _, update := range batch.Rooms {
		if update.RoomID == "" {
			continue
		}
		state, ok := x.rooms[update.RoomID]
		if !ok {
			state = roomstate.New(update.RoomID)
		}
		for _, evt := range update.State {
			state = state.Apply(evt)
		}
		state = state.WithProfiles(x.profiles).WithDirect(x.direct[update.RoomID])
		for _, evt := range update.Timeline {
			if evt == nil {
				continue
			}
			entries = append(entries, TimelineEntry{RoomID: update.RoomID, Event: evt, Before: state})
			state = state.Apply(evt)
		}
		if update.Left {
			delete(x.rooms, update.RoomID)
			delete(touched, update.RoomID)
			x.log.Debug().Stringer("room_id", update.RoomID).Msg("Removed left room")
			continue
		}
		x.rooms[update.RoomID] = state
		touched[update.RoomID] = struct{}{}
	}

	for roomID, state := range x.rooms {
		_, wasTouched := touched[roomID]
		if !wasTouched && !profilesChanged && !directChanged {
			continue
		}
		x.rooms[roomID] = state.WithProfiles(x.profiles).WithDirect(x.direct[roomID])
	}
	return entries
}

// applyPresence records the global profiles carried by presence events.
// The profile table is replaced, never modified, since published snapshots
// share it.
func (x *Index) applyPresence(events []*event.Event) bool {
	var next map[id.UserID]roomstate.Profile
	for _, evt := range events {
		if evt == nil || evt.Sender == "" {
			continue
		}
		content, err := roomstate.ParseContent(evt)
		if err != nil {
			x.log.Debug().Err(err).Stringer("sender", evt.Sender).Msg("Skipping unparseable presence event")
			continue
		}
		presence, ok := content.(*event.PresenceEventContent)
		if !ok {
			continue
		}
		profile := roomstate.Profile{
			DisplayName: strings.TrimSpace(presence.Displayname),
			AvatarURL:   presence.AvatarURL,
		}
		if profile == (roomstate.Profile{}) {
			continue
		}
		if old, ok := x.profiles[evt.Sender]; ok && old == profile {
			continue
		}
		if next == nil {
			next = maps.Clone(x.profiles)
		}
		next[evt.Sender] = profile
	}
	if next == nil {
		return false
	}
	x.profiles = next
	return true
}

// applyAccountData handles m.direct, which lists the rooms that are direct
// chats. Each m.direct event replaces the previous set.
func (x *Index) applyAccountData(events []*event.Event) bool {
	changed := false
	for _, evt := range events {
		if evt == nil || evt.Type.Type != event.AccountDataDirectChats.Type {
			continue
		}
		content, err := roomstate.ParseContent(evt)
		if err != nil {
			x.log.Warn().Err(err).Msg("Failed to parse m.direct account data")
			continue
		}
		chats, ok := content.(*event.DirectChatsEventContent)
		if !ok {
			continue
		}
		direct := make(map[id.RoomID]bool)
		for _, rooms := range *chats {
			for _, roomID := range rooms {
				direct[roomID] = true
			}
		}
		x.direct = direct
		changed = true
	}
	return changed
}

// Room returns the current snapshot of a room.
func (x *Index) Room(roomID id.RoomID) (*roomstate.RoomState, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	state, ok := x.rooms[roomID]
	return state, ok
}

// ListRooms returns snapshots of all known rooms, ordered by room ID.
func (x *Index) ListRooms() []*roomstate.RoomState {
	x.mu.RLock()
	defer x.mu.RUnlock()
	rooms := slices.Collect(maps.Values(x.rooms))
	slices.SortFunc(rooms, func(a, b *roomstate.RoomState) int {
		return strings.Compare(string(a.RoomID), string(b.RoomID))
	})
	return rooms
}

// Len returns the number of known rooms.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.rooms)
}

// Reset forgets every room and profile.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.rooms = make(map[id.RoomID]*roomstate.RoomState)
	x.profiles = make(map[id.UserID]roomstate.Profile)
	x.direct = make(map[id.RoomID]bool)
}
