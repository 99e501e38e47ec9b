package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/meshlink/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or reset the persisted session identity",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted session identity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withIdentity(cmd, func(id *session.Identity) error {
			if cur := id.Current(); cur != "" {
				fmt.Fprintln(cmd.OutOrStdout(), cur)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no session")
			}
			return nil
		})
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the persisted session identity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withIdentity(cmd, func(id *session.Identity) error {
			if err := id.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session reset")
			return nil
		})
	},
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionResetCmd)
}

func withIdentity(cmd *cobra.Command, fn func(*session.Identity) error) error {
	cfg, logger, closer, err := loadConfig()
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := openStore(cmd.Context(), cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	defer store.Close()

	id := session.NewIdentity(store, cfg.Session.Key, logger)
	if err := id.Load(cmd.Context()); err != nil {
		return err
	}
	return fn(id)
}
