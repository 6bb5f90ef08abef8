// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package mxclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const (
	testUser     = "@alice:example.com"
	testToken    = "syt_valid"
	testPassword = "hunter2"
)

// fakeHomeserver serves the handful of client-server API endpoints the
// client uses.
type fakeHomeserver struct {
	*httptest.Server

	mu       sync.Mutex
	syncs    int
	logouts  int
	firstRes string
}

func newFakeHomeserver(t *testing.T) *fakeHomeserver {
	t.Helper()
	hs := &fakeHomeserver{firstRes: `{
		"next_batch": "s1",
		"presence": {"events": [
			{"type": "m.presence", "sender": "@bob:example.com", "content": {"presence": "online", "displayname": "Bobby"}}
		]},
		"rooms": {
			"join": {
				"!b:example.com": {
					"state": {"events": [
						{"type": "m.room.member", "state_key": "@alice:example.com", "sender": "@alice:example.com", "event_id": "$m1", "content": {"membership": "join"}}
					]},
					"timeline": {"events": [
						{"type": "m.room.message", "sender": "@bob:example.com", "event_id": "$t1", "content": {"msgtype": "m.text", "body": "hi"}}
					]}
				},
				"!a:example.com": {"state": {"events": []}, "timeline": {"events": []}}
			},
			"leave": {"!gone:example.com": {}}
		}
	}`}
	hs.Server = httptest.NewServer(http.HandlerFunc(hs.serve))
	t.Cleanup(hs.Close)
	return hs
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+testToken
}

func (hs *fakeHomeserver) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/_matrix/client/v3")
	switch {
	case path == "/login" && r.Method == http.MethodPost:
		var req struct {
			Identifier struct {
				User string `json:"user"`
			} `json:"identifier"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Identifier.User != "alice" || req.Password != testPassword {
			writeJSON(w, http.StatusForbidden, `{"errcode":"M_FORBIDDEN","error":"Invalid username or password"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"user_id":"`+testUser+`","access_token":"`+testToken+`","device_id":"DEV1"}`)
	case path == "/account/whoami":
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"errcode":"M_UNKNOWN_TOKEN","error":"Unknown token"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"user_id":"`+testUser+`","device_id":"DEV2"}`)
	case strings.HasSuffix(path, "/filter") && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, `{"filter_id":"f1"}`)
	case path == "/sync":
		hs.mu.Lock()
		hs.syncs++
		hs.mu.Unlock()
		if r.URL.Query().Get("since") == "" {
			writeJSON(w, http.StatusOK, hs.firstRes)
			return
		}
		// Long poll until the client goes away.
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
			writeJSON(w, http.StatusOK, `{"next_batch":"s2"}`)
		}
	case path == "/logout" && r.Method == http.MethodPost:
		hs.mu.Lock()
		hs.logouts++
		hs.mu.Unlock()
		writeJSON(w, http.StatusOK, `{}`)
	case strings.HasPrefix(path, "/presence/"):
		writeJSON(w, http.StatusOK, `{}`)
	default:
		writeJSON(w, http.StatusNotFound, `{"errcode":"M_UNRECOGNIZED","error":"Unrecognized request"}`)
	}
}

func (hs *fakeHomeserver) syncCount() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.syncs
}

func (hs *fakeHomeserver) logoutCount() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.logouts
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "sync.db"), zerolog.Nop())
	t.Cleanup(func() { _ = store.Close() })
	return store
}
