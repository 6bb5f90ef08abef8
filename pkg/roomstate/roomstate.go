// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package roomstate

import (
	"maps"
	"slices"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Profile is a user's global (server-wide) profile.
type Profile struct {
	DisplayName string
	AvatarURL   id.ContentURIString
}

// Member is a room participant as seen in one room. DisplayName and AvatarURL
// are the room-specific values from the member event; Global is the user's
// global profile when known.
type Member struct {
	UserID      id.UserID
	Membership  event.Membership
	DisplayName string
	AvatarURL   id.ContentURIString
	Global      *Profile
}

// IsActive reports whether the member is joined or invited.
func (m Member) IsActive() bool {
	return m.Membership == event.MembershipJoin || m.Membership == event.MembershipInvite
}

// RoomState is a snapshot of a room's membership and configuration.
type RoomState struct {
	RoomID    id.RoomID
	Name      string
	Topic     string
	AvatarURL id.ContentURIString
	IsDirect  bool
	Encrypted bool

	Members     map[id.UserID]Member
	Profiles    map[id.UserID]Profile
	PowerLevels *event.PowerLevelsEventContent
}

// New returns an empty snapshot for the given room.
func New(roomID id.RoomID) *RoomState {
	return &RoomState{
		RoomID:  roomID,
		Members: make(map[id.UserID]Member),
	}
}

// Member returns the member entry for userID with its global profile filled
// in from the snapshot's profile table. A nil state has no members.
func (s *RoomState) Member(userID id.UserID) (Member, bool) {
	if s == nil {
		return Member{}, false
	}
	m, ok := s.Members[userID]
	if !ok {
		return Member{}, false
	}
	if m.Global == nil {
		if p, ok := s.Profiles[userID]; ok {
			m.Global = &p
		}
	}
	return m, true
}

// ActiveMembers returns the sorted IDs of joined and invited members.
func (s *RoomState) ActiveMembers() []id.UserID {
	if s == nil {
		return nil
	}
	var active []id.UserID
	for uid, m := range s.Members {
		if m.IsActive() {
			active = append(active, uid)
		}
	}
	slices.Sort(active)
	return active
}

// clone returns a shallow copy whose member map may be modified freely.
func (s *RoomState) clone() *RoomState {
	cp := *s
	cp.Members = maps.Clone(s.Members)
	if cp.Members == nil {
		cp.Members = make(map[id.UserID]Member)
	}
	return &cp
}

// WithProfiles returns a copy of the snapshot using the given global profile
// table. The table is shared, not copied, and must not be modified afterwards.
func (s *RoomState) WithProfiles(profiles map[id.UserID]Profile) *RoomState {
	cp := *s
	cp.Profiles = profiles
	return &cp
}

// WithDirect returns a copy of the snapshot with the direct flag set.
func (s *RoomState) WithDirect(direct bool) *RoomState {
	if s.IsDirect == direct {
		return s
	}
	cp := *s
	cp.IsDirect = direct
	return &cp
}

// Apply returns a new snapshot with the state event evt applied. Events that
// are not state events, or whose content cannot be parsed, return s unchanged.
func (s *RoomState) Apply(evt *event.Event) *RoomState {
	if evt == nil || evt.StateKey == nil {
		return s
	}
	content, err := ParseContent(evt)
	if err != nil {
		return s
	}
	next := s.clone()
	switch c := content.(type) {
	case *event.MemberEventContent:
		uid := id.UserID(*evt.StateKey)
		next.Members[uid] = Member{
			UserID:      uid,
			Membership:  c.Membership,
			DisplayName: c.Displayname,
			AvatarURL:   c.AvatarURL,
		}
	case *event.RoomNameEventContent:
		next.Name = c.Name
	case *event.TopicEventContent:
		next.Topic = c.Topic
	case *AvatarContent:
		next.AvatarURL = id.ContentURIString(c.URL)
	case *event.RoomAvatarEventContent:
		next.AvatarURL = c.URL
	case *event.PowerLevelsEventContent:
		next.PowerLevels = c
	case *EncryptionContent:
		next.Encrypted = c.Algorithm != ""
	case *event.EncryptionEventContent:
		next.Encrypted = c.Algorithm != ""
	default:
		return s
	}
	return next
}
