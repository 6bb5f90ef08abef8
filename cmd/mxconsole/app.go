// Copyright 2024-2026 Aiku AI

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/handler"
	"github.com/aiku/mxconsole/pkg/mxclient"
	"github.com/aiku/mxconsole/pkg/roomindex"
)

var errNoCredentials = errors.New("no user given, use --user or MXCONSOLE_USER")

// app is the wired client for one command invocation.
type app struct {
	log     zerolog.Logger
	v       *viper.Viper
	cfg     *handler.Config
	store   *mxclient.Store
	rooms   *roomindex.Index
	tap     *timelineTap
	handler *handler.Handler
}

func wireApp(cmd *cobra.Command, v *viper.Viper, notifier handler.Notifier) (*app, error) {
	log, err := newLogger(cmd, v)
	if err != nil {
		return nil, err
	}
	cfg, err := handler.LoadConfig(v.GetString(flagConfig))
	if err != nil {
		return nil, err
	}
	if hs := v.GetString(flagHomeserver); hs != "" {
		cfg.HomeserverURL = hs
		if err := cfg.PostProcess(); err != nil {
			return nil, err
		}
	}
	if path := v.GetString(flagStore); path != "" {
		cfg.StorePath = path
	}

	store := mxclient.NewStore(cfg.StorePath, log)
	rooms := roomindex.New(log)
	tap := newTimelineTap()
	h, err := handler.Init(handler.Params{
		Log:      log,
		Config:   cfg,
		Client:   mxclient.New(store, log),
		Rooms:    rooms,
		Media:    &mxclient.MediaCache{Dir: cfg.MediaCacheDir},
		Notifier: notifier,
		Timeline: tap,
	})
	if err != nil {
		return nil, err
	}
	return &app{
		log:     log,
		v:       v,
		cfg:     cfg,
		store:   store,
		rooms:   rooms,
		tap:     tap,
		handler: h,
	}, nil
}

func (a *app) close() {
	handler.Teardown()
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close sync store")
	}
}

func (a *app) credentials() (handler.Credentials, error) {
	creds := handler.Credentials{
		HomeserverURL: a.cfg.HomeserverURL,
		User:          a.v.GetString(flagUser),
		Password:      a.v.GetString(flagPassword),
		AccessToken:   a.v.GetString(flagAccessToken),
		DeviceID:      id.DeviceID(a.v.GetString(flagDeviceID)),
		DeviceName:    a.cfg.DeviceName,
	}
	if creds.User == "" {
		return creds, errNoCredentials
	}
	return creds, nil
}

// login logs in and waits until the first sync response has been applied.
func (a *app) login(ctx context.Context) (*handler.Session, error) {
	creds, err := a.credentials()
	if err != nil {
		return nil, err
	}
	session, err := a.handler.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := a.waitForSync(ctx, a.v.GetDuration(flagSyncTimeout)); err != nil {
		return nil, err
	}
	return session, nil
}

func (a *app) waitForSync(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for a.handler.Status() != handler.StatusServerSyncDone {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for initial sync: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
