// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package handler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/handler/keywords"
)

// Params are the collaborators of a Handler. Client and Rooms are required.
type Params struct {
	Log    zerolog.Logger
	Config *Config
	Client ProtocolClient
	Rooms  RoomStore
	Media  MediaCache
	// Keywords defaults to Config.
	Keywords NotificationConfig
	// Notifier and Timeline are optional. Both are called from the sync
	// goroutine, outside any handler lock, and must not start a session
	// transition (Logout, PauseInBackground, Resume, ForceInitialSync or
	// Close): transitions wait for that goroutine, so the call would never
	// return. Hand such work to another goroutine instead.
	Notifier Notifier
	Timeline TimelineObserver
}

// Handler coordinates one session. Create it with New.
type Handler struct {
	log      zerolog.Logger
	cfg      *Config
	client   ProtocolClient
	rooms    RoomStore
	media    MediaCache
	keywords NotificationConfig
	notifier Notifier
	timeline TimelineObserver

	matcher atomic.Pointer[keywords.Matcher]
	inApp   atomic.Bool

	// transMu serializes transitions. It is held across collaborator calls.
	transMu sync.Mutex

	// mu guards the fields below. It is never held across collaborator
	// calls other than RoomStore updates.
	mu         sync.Mutex
	status     Status
	session    *Session
	paused     bool
	resumeDone bool
	// gen changes whenever the running sync is stopped; batches from an
	// older generation are dropped.
	gen       uint64
	runCancel context.CancelFunc
	runDone   chan struct{}
	// interrupt cancels a sync chain being started by a transition.
	interrupt context.CancelFunc
}

// New creates a logged-out handler.
func New(p Params) *Handler {
	cfg := p.Config
	if cfg == nil {
		cfg = &Config{}
	}
	h := &Handler{
		log:      p.Log.With().Str("component", "session").Logger(),
		cfg:      cfg,
		client:   p.Client,
		rooms:    p.Rooms,
		media:    p.Media,
		keywords: p.Keywords,
		notifier: p.Notifier,
		timeline: p.Timeline,
	}
	if h.keywords == nil {
		h.keywords = cfg
		h.matcher.Store(cfg.Matcher())
	} else {
		list, err := h.keywords.LoadKeywords()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to load notification keywords")
		}
		h.matcher.Store(keywords.New(list))
	}
	h.inApp.Store(cfg.InAppNotifications)
	return h
}

// Status returns the current session status.
func (h *Handler) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// IsResumeDone reports whether a sync response has been processed since the
// session was last resumed or started.
func (h *Handler) IsResumeDone() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resumeDone
}

// IsPaused reports whether live updates are suspended.
func (h *Handler) IsPaused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

// Session returns a copy of the current session, or nil when logged out.
func (h *Handler) Session() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.clone()
}

func (h *Handler) setStatus(status Status) {
	h.mu.Lock()
	prev := h.status
	h.status = status
	h.mu.Unlock()
	if prev != status {
		h.log.Info().Stringer("from", prev).Stringer("to", status).Msg("Session status changed")
	}
}

func (h *Handler) invalidTransition(op string) {
	h.log.Warn().
		Err(ErrInvalidTransition).
		Str("op", op).
		Stringer("status", h.Status()).
		Msg("Ignoring transition")
}

// Login authenticates and starts the sync chain. It fails with
// ErrInvalidTransition when a session already exists.
func (h *Handler) Login(ctx context.Context, creds Credentials) (*Session, error) {
	h.transMu.Lock()
	defer h.transMu.Unlock()
	if h.Status() != StatusLoggedOut {
		h.invalidTransition("login")
		return nil, ErrInvalidTransition
	}
	if creds.DeviceName == "" {
		creds.DeviceName = h.cfg.DeviceName
	}
	if creds.HomeserverURL == "" {
		creds.HomeserverURL = h.cfg.HomeserverURL
	}

	session, err := h.client.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.session = session.clone()
	h.paused = false
	h.resumeDone = false
	h.mu.Unlock()
	h.log.Info().Stringer("user_id", session.UserID).Str("device_id", string(session.DeviceID)).Msg("Logged in")
	h.setStatus(StatusLogged)

	return session, h.startChain(ctx)
}

// PauseInBackground suspends live updates. The session and its store are
// kept; Resume continues where it left off.
func (h *Handler) PauseInBackground() {
	h.transMu.Lock()
	defer h.transMu.Unlock()

	h.mu.Lock()
	if h.status == StatusLoggedOut || h.paused {
		h.mu.Unlock()
		h.invalidTransition("pause")
		return
	}
	h.paused = true
	h.resumeDone = false
	if h.session != nil {
		h.session.Presence = event.PresenceUnavailable
	}
	h.mu.Unlock()

	h.stopRun()
	h.log.Info().Msg("Paused live updates")
}

// Resume restarts live updates after PauseInBackground. If the store was
// invalidated while paused the sync chain is run again from StatusLogged.
// Resuming a session that is not paused does nothing.
func (h *Handler) Resume(ctx context.Context) error {
	h.transMu.Lock()
	defer h.transMu.Unlock()

	h.mu.Lock()
	switch {
	case h.status == StatusLoggedOut:
		h.mu.Unlock()
		h.invalidTransition("resume")
		return nil
	case !h.paused:
		h.mu.Unlock()
		h.log.Debug().Msg("Already resumed")
		return nil
	}
	h.paused = false
	status := h.status
	h.mu.Unlock()

	if !h.client.Store().Valid(ctx) {
		h.log.Warn().Msg("Store was invalidated while paused, restarting sync chain")
		h.rooms.Reset()
		h.setStatus(StatusLogged)
		return h.startChain(ctx)
	}
	if status < StatusStoreDataReady {
		return h.startChain(ctx)
	}
	h.log.Info().Msg("Resuming live updates")
	return h.startSync(ctx)
}

// Logout ends the session: it stops syncing, logs the device out, clears the
// store and the room store, and returns to StatusLoggedOut. Logout interrupts
// a concurrent ForceInitialSync and always wins over it.
func (h *Handler) Logout(ctx context.Context) {
	h.mu.Lock()
	if h.interrupt != nil {
		h.interrupt()
	}
	h.mu.Unlock()

	h.transMu.Lock()
	defer h.transMu.Unlock()
	if h.Status() == StatusLoggedOut {
		h.invalidTransition("logout")
		return
	}

	h.stopRun()
	if err := h.client.Logout(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Failed to log out on the homeserver")
	}
	if err := h.client.Store().Invalidate(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Failed to clear store on logout")
	}
	h.rooms.Reset()

	h.mu.Lock()
	h.session = nil
	h.paused = false
	h.resumeDone = false
	h.mu.Unlock()
	h.setStatus(StatusLoggedOut)
	h.log.Info().Msg("Logged out")
}

// ForceInitialSync discards the synced state and runs the sync chain again
// from StatusLogged, starting from an initial sync. With clearCache the
// persistent store is invalidated too.
func (h *Handler) ForceInitialSync(ctx context.Context, clearCache bool) error {
	h.transMu.Lock()
	defer h.transMu.Unlock()
	if h.Status() == StatusLoggedOut {
		h.invalidTransition("force_initial_sync")
		return nil
	}

	h.log.Info().Bool("clear_cache", clearCache).Msg("Forcing initial sync")
	h.stopRun()
	h.rooms.Reset()
	store := h.client.Store()
	reset := store.ResetSync
	if clearCache {
		reset = store.Invalidate
	}
	if err := reset(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreCorrupted, err)
	}
	h.mu.Lock()
	h.paused = false
	h.resumeDone = false
	h.mu.Unlock()
	h.setStatus(StatusLogged)
	return h.startChain(ctx)
}

// Close stops syncing without ending the session.
func (h *Handler) Close() {
	h.transMu.Lock()
	defer h.transMu.Unlock()
	h.stopRun()
}

// startChain opens the store and starts syncing. The caller holds transMu.
func (h *Handler) startChain(ctx context.Context) error {
	chainCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.interrupt = cancel
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.interrupt = nil
		h.mu.Unlock()
		cancel()
	}()

	if err := h.client.OpenStore(chainCtx); err != nil {
		if chainCtx.Err() != nil {
			return chainCtx.Err()
		}
		return fmt.Errorf("%w: %w", ErrStoreCorrupted, err)
	}
	if err := chainCtx.Err(); err != nil {
		return err
	}
	h.setStatus(StatusStoreDataReady)
	return h.startSync(chainCtx)
}

// startSync starts a sync run. The caller holds transMu.
func (h *Handler) startSync(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	batches, err := h.client.StartSync(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start sync: %w", err)
	}
	done := make(chan struct{})

	h.mu.Lock()
	h.gen++
	gen := h.gen
	h.runCancel = cancel
	h.runDone = done
	if h.session != nil {
		h.session.Presence = event.PresenceOnline
	}
	h.mu.Unlock()

	go h.consume(runCtx, gen, batches, done)
	return nil
}

// stopRun stops the running sync, if any, and waits for its consumer to
// exit. The caller holds transMu.
func (h *Handler) stopRun() {
	h.mu.Lock()
	h.gen++
	cancel, done := h.runCancel, h.runDone
	h.runCancel, h.runDone = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	h.client.StopSync()
	<-done
}

func (h *Handler) consume(ctx context.Context, gen uint64, batches <-chan *SyncBatch, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				if ctx.Err() == nil {
					h.log.Warn().Msg("Sync stream ended")
				}
				return
			}
			h.applyBatch(ctx, gen, batch)
		}
	}
}

// applyBatch merges one batch into the room store and only then records its
// sync position, so a batch dropped by a stopped run is fetched again on the
// next run.
func (h *Handler) applyBatch(ctx context.Context, gen uint64, batch *SyncBatch) {
	if batch == nil {
		return
	}
	h.mu.Lock()
	if h.gen != gen {
		h.mu.Unlock()
		h.log.Debug().Msg("Dropping batch from stopped sync")
		return
	}
	entries := h.rooms.Apply(batch)
	var self id.UserID
	if h.session != nil {
		self = h.session.UserID
	}
	h.mu.Unlock()
	h.log.Trace().Str("next_batch", batch.NextBatch).Int("rooms", len(batch.Rooms)).Msg("Applied sync batch")

	if self != "" && batch.NextBatch != "" {
		err := h.client.Store().SaveSyncPosition(context.WithoutCancel(ctx), self, batch.NextBatch)
		if err != nil {
			h.log.Warn().Err(err).Str("next_batch", batch.NextBatch).Msg("Failed to save sync position")
		}
	}

	h.observeTimeline(entries)
	if self != "" {
		h.notifyTimeline(entries, self)
	}

	// The batch counts as synced only once observers have seen it.
	h.mu.Lock()
	if h.gen != gen {
		h.mu.Unlock()
		return
	}
	h.resumeDone = true
	prev := h.status
	if prev == StatusStoreDataReady {
		h.status = StatusServerSyncDone
	}
	h.mu.Unlock()
	if prev == StatusStoreDataReady {
		h.log.Info().Stringer("from", prev).Stringer("to", StatusServerSyncDone).Msg("Session status changed")
	}
}
