// Copyright 2024-2026 Aiku AI

package handler

import (
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Credentials are what a user supplies to log in. Either Password or
// AccessToken must be set; a token restores an existing device.
type Credentials struct {
	HomeserverURL string
	User          string
	Password      string
	AccessToken   string
	DeviceID      id.DeviceID
	DeviceName    string
}

// Session identifies one authenticated user on one homeserver.
type Session struct {
	HomeserverURL string
	// Homeserver is the server name part of UserID.
	Homeserver  string
	UserLogin   string
	UserID      id.UserID
	AccessToken string
	DeviceID    id.DeviceID
	Presence    event.Presence
}

// LocalPart returns the localpart of the session's user ID.
func (s *Session) LocalPart() string {
	if s == nil {
		return ""
	}
	localpart, _, err := s.UserID.Parse()
	if err != nil {
		return ""
	}
	return localpart
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
