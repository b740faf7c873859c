package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(unreadCmd)
}

var unreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show buffered unread messages per contact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(_ context.Context, d deps) error {
			counts := d.Store.UnreadCounts()
			ids := make([]string, 0, len(counts))
			for id, n := range counts {
				if n > 0 {
					ids = append(ids, id)
				}
			}
			slices.Sort(ids)
			if len(ids) == 0 {
				fmt.Println("No unread messages.")
				return nil
			}
			for _, id := range ids {
				name := id
				if c, ok := d.Store.Contact(id); ok {
					name = c.Name()
				}
				fmt.Printf("%-28s %d\n", name, counts[id])
				for _, m := range d.Store.Unread(id).Buffered {
					fmt.Printf("    %s\n", m.Body)
				}
			}
			fmt.Printf("\n%d unread total\n", d.Store.UnreadTotal())
			return nil
		})
	},
}
