// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/ptr"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/roomindex"
	"github.com/aiku/mxconsole/pkg/roomstate"
)

const (
	self  id.UserID = "@me:example.com"
	bob   id.UserID = "@bob:example.com"
	carol id.UserID = "@carol:example.com"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu            sync.Mutex
	valid         bool
	size          int64
	sizeErr       error
	invalidations int
	resets        int
	positions     []string
}

func (s *fakeStore) SaveSyncPosition(_ context.Context, _ id.UserID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, token)
	s.valid = true
	return nil
}

func (s *fakeStore) savedPositions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.positions...)
}

func (s *fakeStore) Invalidate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidations++
	s.valid = false
	return nil
}

func (s *fakeStore) ResetSync(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	s.valid = false
	return nil
}

func (s *fakeStore) resetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

func (s *fakeStore) Size(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size, s.sizeErr
}

func (s *fakeStore) Valid(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid
}

func (s *fakeStore) setValid(valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = valid
}

func (s *fakeStore) invalidationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidations
}

// fakeClient is a ProtocolClient that records calls and lets tests push
// sync batches.
type fakeClient struct {
	store *fakeStore

	mu          sync.Mutex
	loginErr    error
	openErr     error
	openGate    chan struct{}
	openEntered chan struct{}
	batches     chan *SyncBatch
	opens       int
	syncStarts  int
	stops       int
	logouts     int
}

func newFakeClient() *fakeClient {
	return &fakeClient{store: &fakeStore{size: 100}}
}

func (f *fakeClient) Login(_ context.Context, creds Credentials) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &Session{
		HomeserverURL: creds.HomeserverURL,
		Homeserver:    "example.com",
		UserLogin:     creds.User,
		UserID:        self,
		AccessToken:   "secret",
		DeviceID:      "DEVICE",
	}, nil
}

func (f *fakeClient) OpenStore(ctx context.Context) error {
	f.mu.Lock()
	f.opens++
	gate, entered := f.openGate, f.openEntered
	f.openEntered = nil
	err := f.openErr
	f.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err == nil {
		f.store.setValid(true)
	}
	return err
}

func (f *fakeClient) StartSync(context.Context) (<-chan *SyncBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncStarts++
	f.batches = make(chan *SyncBatch, 16)
	return f.batches, nil
}

func (f *fakeClient) StopSync() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeClient) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

func (f *fakeClient) Store() Store { return f.store }

// push delivers a batch on the most recent sync stream.
func (f *fakeClient) push(batch *SyncBatch) {
	f.mu.Lock()
	ch := f.batches
	f.mu.Unlock()
	ch <- batch
}

func (f *fakeClient) counts() (opens, syncStarts, stops, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.syncStarts, f.stops, f.logouts
}

type fakeMedia struct {
	size int64
	err  error
}

func (m fakeMedia) Size() (int64, error) { return m.size, m.err }

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// recordingTimeline renders every observed event with the handler, which
// must be safe from inside the callback.
type recordingTimeline struct {
	h     *Handler
	mu    sync.Mutex
	lines []string
}

func (r *recordingTimeline) ObserveTimeline(_ id.RoomID, evt *event.Event, state *roomstate.RoomState) {
	line := r.h.DisplayText(evt, state, false)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *recordingTimeline) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

type testEnv struct {
	h        *Handler
	client   *fakeClient
	rooms    *roomindex.Index
	notifier *recordingNotifier
	timeline *recordingTimeline
}

func newTestEnv(t *testing.T, cfg *Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = &Config{InAppNotifications: true}
	}
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	env := &testEnv{
		client:   newFakeClient(),
		rooms:    roomindex.New(zerolog.Nop()),
		notifier: &recordingNotifier{},
		timeline: &recordingTimeline{},
	}
	env.h = New(Params{
		Log:      zerolog.Nop(),
		Config:   cfg,
		Client:   env.client,
		Rooms:    env.rooms,
		Media:    fakeMedia{size: 50},
		Notifier: env.notifier,
		Timeline: env.timeline,
	})
	env.timeline.h = env.h
	t.Cleanup(env.h.Close)
	return env
}

// loginAndSync logs in and waits for the first batch to be processed.
func (e *testEnv) loginAndSync(t *testing.T, batch *SyncBatch) {
	t.Helper()
	if _, err := e.h.Login(context.Background(), Credentials{User: "me", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if batch == nil {
		batch = &SyncBatch{NextBatch: "s1"}
	}
	e.client.push(batch)
	waitFor(t, "server sync done", func() bool { return e.h.Status() == StatusServerSyncDone })
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func memberEvent(userID id.UserID, name string) *event.Event {
	return &event.Event{
		Type:     event.StateMember,
		Sender:   userID,
		StateKey: ptr.Ptr(string(userID)),
		Content: event.Content{Parsed: &event.MemberEventContent{
			Membership:  event.MembershipJoin,
			Displayname: name,
		}},
	}
}

func textEvent(eventID id.EventID, sender id.UserID, body string) *event.Event {
	return &event.Event{
		ID:      eventID,
		Type:    event.EventMessage,
		Sender:  sender,
		Content: event.Content{Parsed: &event.MessageEventContent{MsgType: event.MsgText, Body: body}},
	}
}

func roomUpdate(roomID id.RoomID, members map[id.UserID]string, timeline ...*event.Event) roomindex.RoomUpdate {
	update := roomindex.RoomUpdate{RoomID: roomID, Timeline: timeline}
	for uid, name := range members {
		update.State = append(update.State, memberEvent(uid, name))
	}
	return update
}
