package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/matheus3301/chatstore/internal/snapshot"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(closeCmd)
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Decrypt and print the persisted session state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(_ context.Context, d deps) error {
			snap, err := d.Persister.Load()
			if errors.Is(err, snapshot.ErrNoSnapshot) {
				fmt.Println("Nothing persisted for this session.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("persisted state unreadable (it will be discarded on next use): %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the session state and delete what is persisted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(_ context.Context, d deps) error {
			if err := clearSession(d.Store, d.Persister); err != nil {
				return err
			}
			fmt.Println("Session state cleared.")
			return nil
		})
	},
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the open conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(_ context.Context, d deps) error {
			c, ok := d.Store.Selected()
			if !ok {
				fmt.Println("No conversation open.")
				return nil
			}
			d.Store.ClearSelection()
			fmt.Printf("Closed conversation with %s.\n", c.Name())
			return nil
		})
	},
}

// clearSession empties the in-memory store, then deletes the persisted
// entry the reset just wrote.
func clearSession(s *chat.Store, p interface{ Clear() error }) error {
	s.Reset()
	return p.Clear()
}
