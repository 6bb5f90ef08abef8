// Copyright 2024-2026 Aiku AI

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/handler"
	"github.com/aiku/mxconsole/pkg/roomindex"
	"github.com/aiku/mxconsole/pkg/roomstate"
)

func newLoginCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and run the initial sync",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(cmd, v, nil)
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Logged in as %s on %s (device %s), %d rooms\n",
				session.UserID, session.Homeserver, session.DeviceID, a.rooms.Len())
			if v.GetBool("show-token") {
				_, _ = fmt.Fprintf(out, "%s_ACCESS_TOKEN=%s\n%s_DEVICE_ID=%s\n",
					envPrefix, session.AccessToken, envPrefix, session.DeviceID)
			}
			return nil
		},
	}
	cmd.Flags().Bool("show-token", false, "print the access token and device ID as dotenv lines")
	return cmd
}

func newLogoutCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the access token and clear the sync store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(cmd, v, nil)
			if err != nil {
				return err
			}
			defer a.close()

			creds, err := a.credentials()
			if err != nil {
				return err
			}
			if _, err := a.handler.Login(cmd.Context(), creds); err != nil {
				return err
			}
			a.handler.Logout(cmd.Context())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return err
		},
	}
}

func newRoomsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List joined and invited rooms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(cmd, v, nil)
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			return a.printRooms(cmd.OutOrStdout(), session.UserID)
		},
	}
}

func (a *app) printRooms(w io.Writer, self id.UserID) error {
	h := a.handler
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ROOM\tNAME\tMEMBERS\tFLAGS\tROLE\tLAST")
	for _, room := range a.rooms.ListRooms() {
		flags := ""
		if room.IsDirect {
			flags += "direct "
		}
		if room.Encrypted {
			flags += "encrypted"
		}
		last := ""
		if evt, ok := a.tap.lastEvent(room.RoomID); ok {
			last = h.DisplayText(evt, room, true)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			room.RoomID, roomLabel(room, self), len(room.ActiveMembers()), flags,
			roomstate.Badge(h.PowerLevel(self, room)), last)
	}
	return tw.Flush()
}

// roomLabel is the room name, or the other member's name for an unnamed
// two-person room.
func roomLabel(room *roomstate.RoomState, self id.UserID) string {
	if room.Name != "" {
		return room.Name
	}
	if other, ok := roomindex.OtherMember(room, self); ok {
		return roomstate.DisplayName(other, room)
	}
	return "-"
}

func newDMCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "dm USER_ID",
		Short: "Find the direct chat with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			member := id.UserID(args[0])
			if _, _, err := member.Parse(); err != nil {
				return fmt.Errorf("invalid user ID %q: %w", args[0], err)
			}
			a, err := wireApp(cmd, v, nil)
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.login(cmd.Context()); err != nil {
				return err
			}
			name := a.handler.DisplayNameFor(member)
			roomID, ok := a.handler.FindDirectRoom(member)
			if !ok {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "No direct chat with %s\n", name)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", roomID, name)
			return err
		},
	}
}

func newTailCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stay synced and print new events and keyword notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			notifier := handler.NotifierFunc(func(n handler.Notification) {
				_, _ = fmt.Fprintf(out, "[%s] %s (%s): %s\n", n.Keyword, n.SenderName, n.RoomID, n.Text)
			})
			a, err := wireApp(cmd, v, notifier)
			if err != nil {
				return err
			}
			defer a.close()
			a.tap.setOnEvent(func(_ id.RoomID, evt *event.Event, state *roomstate.RoomState) {
				name := state.Name
				if name == "" {
					name = string(state.RoomID)
				}
				_, _ = fmt.Fprintf(out, "%s | %s\n", name, a.handler.DisplayText(evt, state, false))
			})

			ctx := cmd.Context()
			if _, err := a.login(ctx); err != nil {
				return err
			}
			addr := a.cfg.AdminAPIAddr
			if v.IsSet("admin-addr") {
				addr = v.GetString("admin-addr")
			}
			if srv := a.handler.StartAdminAPI(ctx, addr); srv != nil {
				a.log.Info().Str("addr", addr).Msg("Admin API listening")
			}
			a.log.Info().Int("keywords", len(a.cfg.Keywords())).Msg("Waiting for notifications")
			<-ctx.Done()
			if v.GetBool("logout") {
				a.handler.Logout(context.WithoutCancel(ctx))
			}
			return nil
		},
	}
	cmd.Flags().String("admin-addr", "", "admin API listen address, overrides admin_api_addr")
	cmd.Flags().Bool("logout", false, "log out when interrupted")
	return cmd
}

func newCacheSizeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "cache-size",
		Short: "Print the size of the sync store and the media cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(cmd, v, nil)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			store, err := a.handler.CacheSize(ctx)
			if err != nil {
				return err
			}
			total, err := a.handler.TotalCachesSize(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "store: %s\ntotal: %s\n",
				humanize.IBytes(uint64(store)), humanize.IBytes(uint64(total)))
			return err
		},
	}
}

func newPushTokenCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "push-token [TOKEN]",
		Short: "Show or set the push notification token of this device",
		Long:  "Without an argument the stored token is printed. An empty argument clears it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd, v, nil)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.store.Open(ctx); err != nil {
				return err
			}
			if len(args) == 1 {
				return a.store.SetPushToken(ctx, args[0])
			}
			token, err := a.store.PushToken(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}
