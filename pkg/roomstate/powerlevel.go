// Copyright 2024-2026 Aiku AI

package roomstate

import "maunium.net/go/mautrix/id"

// BaselinePowerLevel applies when a room has no power levels event.
const BaselinePowerLevel = 0

// Levels at which members are shown with a badge.
const (
	ModeratorLevel = 50
	AdminLevel     = 100
)

// PowerLevel returns userID's power level: the per-user override if present,
// else the room's users_default, else BaselinePowerLevel.
func (s *RoomState) PowerLevel(userID id.UserID) int {
	if s == nil || s.PowerLevels == nil {
		return BaselinePowerLevel
	}
	if level, ok := s.PowerLevels.Users[userID]; ok {
		return level
	}
	return s.PowerLevels.UsersDefault
}

// Badge returns a short label for a power level, or "" for regular members.
func Badge(level int) string {
	switch {
	case level >= AdminLevel:
		return "Admin"
	case level >= ModeratorLevel:
		return "Moderator"
	default:
		return ""
	}
}
