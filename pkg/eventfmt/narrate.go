// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package eventfmt

import (
	"strings"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/roomstate"
)

// narrate renders a state change in the third person. An empty result means
// the change has no narration.
func narrate(evt *event.Event, content any, name string, state *roomstate.RoomState, subtitle bool) string {
	switch c := content.(type) {
	case *event.MemberEventContent:
		return narrateMember(evt, c, name, state, subtitle)
	case *event.RoomNameEventContent:
		if strings.TrimSpace(c.Name) == "" {
			return name + " removed the room name"
		}
		return name + " changed the room name to " + c.Name
	case *event.TopicEventContent:
		if strings.TrimSpace(c.Topic) == "" {
			return name + " removed the topic"
		}
		return name + " changed the topic to " + c.Topic
	case *roomstate.AvatarContent:
		if c.URL == "" {
			return name + " removed the room avatar"
		}
		return name + " changed the room avatar"
	case *event.RoomAvatarEventContent:
		if c.URL == "" {
			return name + " removed the room avatar"
		}
		return name + " changed the room avatar"
	case *roomstate.CreateContent:
		return name + " created the room"
	case *roomstate.EncryptionContent:
		return name + " enabled end-to-end encryption"
	}

	switch evt.Type.Type {
	case event.StateRoomAvatar.Type:
		return name + " changed the room avatar"
	case event.StateCreate.Type:
		return name + " created the room"
	case event.StateEncryption.Type:
		return name + " enabled end-to-end encryption"
	}
	return ""
}

func narrateMember(evt *event.Event, c *event.MemberEventContent, senderName string, state *roomstate.RoomState, subtitle bool) string {
	target := id.UserID(*evt.StateKey)
	targetName := roomstate.DisplayName(target, state)
	if newName := strings.TrimSpace(c.Displayname); newName != "" && c.Membership == event.MembershipJoin {
		targetName = newName
	}

	var prev *event.MemberEventContent
	if prevContent, err := roomstate.ParsePrevContent(evt); err == nil {
		prev, _ = prevContent.(*event.MemberEventContent)
	}
	prevMembership := event.MembershipLeave
	if prev != nil {
		prevMembership = prev.Membership
	}

	reason := ""
	if !subtitle && strings.TrimSpace(c.Reason) != "" {
		reason = ": " + strings.TrimSpace(c.Reason)
	}

	switch c.Membership {
	case event.MembershipJoin:
		if prevMembership == event.MembershipJoin && prev != nil {
			return narrateProfileChange(target, prev, c, targetName)
		}
		return targetName + " joined the room"
	case event.MembershipInvite:
		return senderName + " invited " + targetName
	case event.MembershipLeave:
		if evt.Sender == target {
			switch prevMembership {
			case event.MembershipInvite:
				return targetName + " rejected the invitation"
			case event.MembershipKnock:
				return targetName + " withdrew their request to join"
			}
			return targetName + " left the room" + reason
		}
		switch prevMembership {
		case event.MembershipBan:
			return senderName + " unbanned " + targetName
		case event.MembershipInvite:
			return senderName + " withdrew the invitation for " + targetName + reason
		}
		return senderName + " kicked " + targetName + reason
	case event.MembershipBan:
		return senderName + " banned " + targetName + reason
	case event.MembershipKnock:
		return targetName + " asked to join the room" + reason
	}
	return ""
}

func narrateProfileChange(target id.UserID, prev, cur *event.MemberEventContent, targetName string) string {
	oldName := strings.TrimSpace(prev.Displayname)
	newName := strings.TrimSpace(cur.Displayname)
	switch {
	case oldName != newName && newName == "":
		return oldName + " removed their display name"
	case oldName != newName && oldName == "":
		return roomstate.BareIdentifier(target) + " set their display name to " + newName
	case oldName != newName:
		return oldName + " changed their display name to " + newName
	case prev.AvatarURL != cur.AvatarURL && cur.AvatarURL == "":
		return targetName + " removed their avatar"
	case prev.AvatarURL != cur.AvatarURL:
		return targetName + " changed their avatar"
	default:
		return targetName + " updated their profile"
	}
}
