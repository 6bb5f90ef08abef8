// Copyright 2024-2026 Aiku AI

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "MXCONSOLE"

// Flag names, also used as viper keys. MXCONSOLE_ACCESS_TOKEN sets
// access-token and so on.
const (
	flagConfig      = "config"
	flagEnvFile     = "env-file"
	flagHomeserver  = "homeserver"
	flagUser        = "user"
	flagPassword    = "password"
	flagAccessToken = "access-token"
	flagDeviceID    = "device-id"
	flagStore       = "store"
	flagLogLevel    = "log-level"
	flagSyncTimeout = "sync-timeout"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "mxconsole",
		Short:         "Terminal Matrix client",
		Long:          "mxconsole logs in to a Matrix homeserver, keeps a sync running and shows rooms, direct chats and keyword notifications.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(cmd.Flags()); err != nil {
				return err
			}
			return bindFlags(v, cmd.Flags())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP(flagConfig, "c", "config.yaml", "path to the config file")
	flags.String(flagEnvFile, ".env", "dotenv file loaded before reading the environment")
	flags.String(flagHomeserver, "", "homeserver URL, overrides homeserver_url")
	flags.StringP(flagUser, "u", "", "user ID or localpart")
	flags.String(flagPassword, "", "password")
	flags.String(flagAccessToken, "", "existing access token, used instead of the password")
	flags.String(flagDeviceID, "", "device ID to reuse")
	flags.String(flagStore, "", "sync store path, overrides store_path")
	flags.String(flagLogLevel, "info", "log level")
	flags.Duration(flagSyncTimeout, 30*time.Second, "how long to wait for the initial sync")

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(v),
		newLogoutCmd(v),
		newRoomsCmd(v),
		newDMCmd(v),
		newTailCmd(v),
		newCacheSizeCmd(v),
		newPushTokenCmd(v),
	)
	return rootCmd
}

// loadEnvFile loads the dotenv file named by --env-file. A missing file is
// not an error. Variables already set in the environment win.
func loadEnvFile(flags *pflag.FlagSet) error {
	path, err := flags.GetString(flagEnvFile)
	if err != nil || path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}

func newLogger(cmd *cobra.Command, v *viper.Viper) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(v.GetString(flagLogLevel))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}
	output := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly}
	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "mxconsole %s (commit %s, built %s)\n", Tag, Commit, BuildTime)
			return err
		},
	}
}
