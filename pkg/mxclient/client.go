// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package mxclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/handler"
)

var errAlreadySyncing = errors.New("sync already running")

// Client is a handler.ProtocolClient talking to a Matrix homeserver.
type Client struct {
	log   zerolog.Logger
	store *Store

	mu         sync.Mutex
	mx         *mautrix.Client
	syncCancel context.CancelFunc
	syncDone   chan struct{}
}

var _ handler.ProtocolClient = (*Client)(nil)

// New creates a logged-out client persisting its sync state in store.
func New(store *Store, log zerolog.Logger) *Client {
	return &Client{
		log:   log.With().Str("component", "mx_client").Logger(),
		store: store,
	}
}

// Store implements handler.ProtocolClient.
func (c *Client) Store() handler.Store {
	return c.store
}

// Login logs in with a password, or validates an access token when one is
// given. Every failure is returned as a *handler.AuthError.
func (c *Client) Login(ctx context.Context, creds handler.Credentials) (*handler.Session, error) {
	if creds.HomeserverURL == "" {
		return nil, &handler.AuthError{Message: "no homeserver URL"}
	}
	mx, err := mautrix.NewClient(creds.HomeserverURL, "", "")
	if err != nil {
		return nil, &handler.AuthError{Message: "invalid homeserver URL", Err: err}
	}
	mx.Log = c.log.With().Str("component", "mautrix").Logger()
	mx.Store = c.store

	switch {
	case creds.AccessToken != "":
		err = c.tokenLogin(ctx, mx, creds)
	case creds.Password != "":
		err = c.passwordLogin(ctx, mx, creds)
	default:
		return nil, &handler.AuthError{Message: "no password or access token"}
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.mx = mx
	c.mu.Unlock()

	session := &handler.Session{
		HomeserverURL: creds.HomeserverURL,
		Homeserver:    mx.UserID.Homeserver(),
		UserLogin:     creds.User,
		UserID:        mx.UserID,
		AccessToken:   mx.AccessToken,
		DeviceID:      mx.DeviceID,
		Presence:      event.PresenceOnline,
	}
	if session.UserLogin == "" {
		session.UserLogin = session.LocalPart()
	}
	c.log.Info().Stringer("user_id", session.UserID).Str("device_id", string(session.DeviceID)).Msg("Authenticated")
	return session, nil
}

func (c *Client) passwordLogin(ctx context.Context, mx *mautrix.Client, creds handler.Credentials) error {
	resp, err := mx.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: creds.User,
		},
		Password:                 creds.Password,
		DeviceID:                 creds.DeviceID,
		InitialDeviceDisplayName: creds.DeviceName,
		StoreCredentials:         true,
	})
	if err != nil {
		return authError("password login failed", err)
	}
	c.log.Debug().Stringer("user_id", resp.UserID).Msg("Password login accepted")
	return nil
}

// tokenLogin validates an existing access token, the way a restored
// session is checked before use.
func (c *Client) tokenLogin(ctx context.Context, mx *mautrix.Client, creds handler.Credentials) error {
	mx.AccessToken = creds.AccessToken
	resp, err := mx.Whoami(ctx)
	if err != nil {
		return authError("access token rejected", err)
	}
	if creds.User != "" && !matchesUser(resp.UserID, creds.User) {
		return &handler.AuthError{
			Message: fmt.Sprintf("access token belongs to %s, not %s", resp.UserID, creds.User),
		}
	}
	mx.UserID = resp.UserID
	mx.DeviceID = resp.DeviceID
	if mx.DeviceID == "" {
		mx.DeviceID = creds.DeviceID
	}
	return nil
}

// matchesUser compares a full user ID with what the user typed, which may
// be a full ID or a bare localpart.
func matchesUser(userID id.UserID, login string) bool {
	if strings.HasPrefix(login, "@") {
		return userID == id.UserID(login)
	}
	localpart, _, err := userID.Parse()
	return err == nil && strings.EqualFold(localpart, login)
}

// authErrCodes are the errcodes reported on AuthError when the homeserver
// returns them.
var authErrCodes = []mautrix.RespError{
	mautrix.MForbidden,
	mautrix.MUnknownToken,
	mautrix.MMissingToken,
	mautrix.MUserDeactivated,
	mautrix.MInvalidUsername,
	mautrix.MLimitExceeded,
}

func authError(msg string, err error) *handler.AuthError {
	authErr := &handler.AuthError{Message: msg, Err: err}
	for _, code := range authErrCodes {
		if errors.Is(err, code) {
			authErr.Code = code.ErrCode
			break
		}
	}
	return authErr
}

func (c *Client) client() (*mautrix.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mx == nil {
		return nil, handler.ErrNotLoggedIn
	}
	return c.mx, nil
}

// OpenStore implements handler.ProtocolClient.
func (c *Client) OpenStore(ctx context.Context) error {
	return c.store.Open(ctx)
}

// StartSync runs the sync loop in the background. Every sync response is
// delivered as one batch; the channel is closed when the loop exits.
func (c *Client) StartSync(ctx context.Context) (<-chan *handler.SyncBatch, error) {
	mx, err := c.client()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncCancel != nil {
		return nil, errAlreadySyncing
	}

	syncCtx, cancel := context.WithCancel(ctx)
	out := make(chan *handler.SyncBatch)
	syncer := mautrix.NewDefaultSyncer()
	syncer.OnSync(func(ctx context.Context, resp *mautrix.RespSync, _ string) bool {
		select {
		case out <- convertSync(resp):
		case <-ctx.Done():
		}
		// The batch now owns the events; returning false keeps the default
		// syncer from dispatching them again.
		return false
	})
	mx.Syncer = syncer
	mx.SyncPresence = event.PresenceOnline

	done := make(chan struct{})
	c.syncCancel, c.syncDone = cancel, done
	go func() {
		defer close(done)
		defer close(out)
		c.log.Info().Msg("Starting sync")
		if err := mx.SyncWithContext(syncCtx); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error().Err(err).Msg("Sync stopped with error")
			return
		}
		c.log.Info().Msg("Sync stopped")
	}()
	return out, nil
}

// StopSync stops the sync loop and waits for it to exit.
func (c *Client) StopSync() {
	c.mu.Lock()
	cancel, done, mx := c.syncCancel, c.syncDone, c.mx
	c.syncCancel, c.syncDone = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if mx != nil {
		mx.StopSync()
	}
	<-done
}

// Logout invalidates the access token on the homeserver and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	mx, err := c.client()
	if err != nil {
		return err
	}
	c.StopSync()
	_, err = mx.Logout(ctx)

	c.mu.Lock()
	c.mx = nil
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
