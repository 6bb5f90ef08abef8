// Copyright 2024-2026 Aiku AI

package roomstate

import (
	"strings"

	"maunium.net/go/mautrix/id"
)

// UnknownUser is the display name used when not even an identifier is known.
const UnknownUser = "Unknown user"

// nameSource yields one candidate display name for a member, or "".
type nameSource func(m Member) string

// avatarSource yields one candidate avatar for a member, or "".
type avatarSource func(m Member) id.ContentURIString

// Resolution order: room-specific value first, then the global profile.
var (
	displayNameSources = []nameSource{
		func(m Member) string { return m.DisplayName },
		func(m Member) string {
			if m.Global == nil {
				return ""
			}
			return m.Global.DisplayName
		},
	}
	avatarSources = []avatarSource{
		func(m Member) id.ContentURIString { return m.AvatarURL },
		func(m Member) id.ContentURIString {
			if m.Global == nil {
				return ""
			}
			return m.Global.AvatarURL
		},
	}
)

// DisplayName resolves the display name of userID in state. Members missing
// from the state fall back to their bare identifier. Never returns "".
func DisplayName(userID id.UserID, state *RoomState) string {
	m, ok := state.Member(userID)
	if !ok {
		return BareIdentifier(userID)
	}
	return MemberDisplayName(m)
}

// MemberDisplayName resolves a non-empty display name for m.
func MemberDisplayName(m Member) string {
	for _, source := range displayNameSources {
		if name := cleanName(source(m)); name != "" {
			return name
		}
	}
	return BareIdentifier(m.UserID)
}

// AvatarURL resolves the avatar of userID in state. The second return value
// is false when no avatar is set at any level.
func AvatarURL(userID id.UserID, state *RoomState) (id.ContentURIString, bool) {
	m, ok := state.Member(userID)
	if !ok {
		return "", false
	}
	return MemberAvatarURL(m)
}

// MemberAvatarURL resolves the avatar of m.
func MemberAvatarURL(m Member) (id.ContentURIString, bool) {
	for _, source := range avatarSources {
		if uri := id.ContentURIString(strings.TrimSpace(string(source(m)))); uri != "" {
			return uri, true
		}
	}
	return "", false
}

// BareIdentifier returns the localpart of a well-formed user ID, or the raw
// identifier otherwise.
func BareIdentifier(userID id.UserID) string {
	localpart, _, err := userID.Parse()
	if err == nil && localpart != "" {
		return localpart
	}
	if raw := cleanName(string(userID)); raw != "" {
		return raw
	}
	return UnknownUser
}

// cleanName flattens a name onto a single line.
func cleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
