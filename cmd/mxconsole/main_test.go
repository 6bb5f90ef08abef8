// Copyright 2024-2026 Aiku AI

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fakeSync = `{
	"next_batch": "s1",
	"account_data": {"events": [
		{"type": "m.direct", "content": {"@bob:example.com": ["!dm:example.com"]}}
	]},
	"rooms": {"join": {
		"!dm:example.com": {"state": {"events": [
			{"type": "m.room.member", "state_key": "@alice:example.com", "sender": "@alice:example.com", "event_id": "$1", "content": {"membership": "join"}},
			{"type": "m.room.member", "state_key": "@bob:example.com", "sender": "@bob:example.com", "event_id": "$2", "content": {"membership": "join", "displayname": "Bob"}}
		]}, "timeline": {"events": [
			{"type": "m.room.message", "sender": "@bob:example.com", "event_id": "$6", "content": {"msgtype": "m.text", "body": "see you\nlater"}}
		]}},
		"!team:example.com": {"state": {"events": [
			{"type": "m.room.name", "state_key": "", "sender": "@alice:example.com", "event_id": "$3", "content": {"name": "Team"}},
			{"type": "m.room.member", "state_key": "@alice:example.com", "sender": "@alice:example.com", "event_id": "$4", "content": {"membership": "join"}},
			{"type": "m.room.power_levels", "state_key": "", "sender": "@alice:example.com", "event_id": "$5", "content": {"users": {"@alice:example.com": 100}}}
		]}}
	}}
}`

func newFakeHomeserver(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/_matrix/client/v3")
		switch {
		case path == "/login":
			_, _ = w.Write([]byte(`{"user_id":"@alice:example.com","access_token":"tok","device_id":"DEV"}`))
		case strings.HasSuffix(path, "/filter"):
			_, _ = w.Write([]byte(`{"filter_id":"1"}`))
		case path == "/sync" && r.URL.Query().Get("since") == "":
			_, _ = w.Write([]byte(fakeSync))
		case path == "/sync":
			<-r.Context().Done()
		case path == "/logout":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errcode":"M_UNRECOGNIZED"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, homeserver string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "homeserver_url: " + homeserver + "\n" +
		"store_path: " + filepath.Join(dir, "store.db") + "\n" +
		"media_cache_dir: " + filepath.Join(dir, "media") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", "", "--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout, "mxconsole unknown") {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestCacheSize(t *testing.T) {
	config := writeConfig(t, "https://matrix.example.com")
	stdout, _, err := executeCLI(t, "--config", config, "cache-size")
	if err != nil {
		t.Fatalf("cache-size: %v", err)
	}
	if !strings.Contains(stdout, "store: 0 B") || !strings.Contains(stdout, "total: 0 B") {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestPushToken(t *testing.T) {
	config := writeConfig(t, "https://matrix.example.com")
	if _, _, err := executeCLI(t, "--config", config, "push-token", "apns-123"); err != nil {
		t.Fatalf("set push token: %v", err)
	}
	stdout, _, err := executeCLI(t, "--config", config, "push-token")
	if err != nil {
		t.Fatalf("get push token: %v", err)
	}
	if strings.TrimSpace(stdout) != "apns-123" {
		t.Errorf("push token: got %q", stdout)
	}
}

func TestErrors(t *testing.T) {
	config := writeConfig(t, "https://matrix.example.com")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad log level", []string{"--config", config, "--log-level", "loud", "cache-size"}, "invalid log level"},
		{"no user", []string{"--config", config, "login"}, "no user given"},
		{"bad user ID", []string{"--config", config, "dm", "bob"}, "invalid user ID"},
		{"bad homeserver", []string{"--config", config, "--homeserver", "ftp://x", "cache-size"}, "scheme must be http or https"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MXCONSOLE_USER", "")
			_, _, err := executeCLI(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestRoomsAndDM(t *testing.T) {
	hs := newFakeHomeserver(t)
	config := writeConfig(t, hs.URL)
	t.Setenv("MXCONSOLE_PASSWORD", "secret")

	stdout, _, err := executeCLI(t, "--config", config, "--user", "alice", "rooms")
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	for _, want := range []string{"!dm:example.com", "Bob", "direct", "!team:example.com", "Team", "Admin", "see you…"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("rooms output missing %q:\n%s", want, stdout)
		}
	}

	config = writeConfig(t, hs.URL)
	stdout, _, err = executeCLI(t, "--config", config, "--user", "alice", "dm", "@bob:example.com")
	if err != nil {
		t.Fatalf("dm: %v", err)
	}
	if !strings.Contains(stdout, "!dm:example.com\tBob") {
		t.Errorf("unexpected dm output %q", stdout)
	}

	config = writeConfig(t, hs.URL)
	stdout, _, err = executeCLI(t, "--config", config, "--user", "alice", "dm", "@carol:example.com")
	if err != nil {
		t.Fatalf("dm: %v", err)
	}
	if !strings.Contains(stdout, "No direct chat with carol") {
		t.Errorf("unexpected dm output %q", stdout)
	}
}
