package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	onlineFlag   bool
	presenceWait time.Duration
)

func init() {
	contactsCmd.Flags().BoolVar(&onlineFlag, "online", false, "only show contacts currently online")
	contactsCmd.Flags().DurationVar(&presenceWait, "wait", 2*time.Second, "how long to wait for the online list")
	rootCmd.AddCommand(contactsCmd)
}

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Fetch and list the contact directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, onlineFlag, func(ctx context.Context, d deps) error {
			if err := d.Store.LoadContacts(ctx); err != nil {
				return err
			}
			if onlineFlag {
				waitForPresence(ctx, d, presenceWait)
			}

			contacts := d.Store.FilteredContacts(onlineFlag)
			selected, hasSelection := d.Store.Selected()
			for _, c := range contacts {
				marker := " "
				if hasSelection && selected.ID == c.ID {
					marker = "*"
				}
				state := "offline"
				if d.Tracker.IsOnline(c.ID) {
					state = "online"
				}
				unread := ""
				if n := d.Store.Unread(c.ID).Count; n > 0 {
					unread = fmt.Sprintf(" (%d unread)", n)
				}
				fmt.Printf("%s %-24s %-28s %s%s\n", marker, c.ID, c.Name(), state, unread)
			}
			if onlineFlag {
				fmt.Printf("\n%d online\n", d.Store.OnlineCount())
			}
			return nil
		})
	},
}

// waitForPresence gives the push channel a moment to deliver the first
// online list.
func waitForPresence(ctx context.Context, d deps, limit time.Duration) {
	deadline := time.Now().Add(limit)
	for len(d.Tracker.Online()) == 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}
