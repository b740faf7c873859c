package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open <contact-id>",
	Short: "Select a contact and print the conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, d deps) error {
			c, err := openConversation(ctx, d.Store, args[0], true)
			if err != nil {
				return err
			}
			fmt.Printf("Conversation with %s\n\n", c.Name())
			for _, m := range d.Store.Messages() {
				printMessage(c, m)
			}
			return nil
		})
	},
}

// openConversation selects id, fetching the directory first when it is not
// known yet, and loads its history. Unless reload is set an already open
// conversation keeps its cache.
func openConversation(ctx context.Context, s *chat.Store, id string, reload bool) (chat.Contact, error) {
	prev, hadSelection := s.Selected()
	c, err := s.SelectContactByID(id)
	if errors.Is(err, chat.ErrUnknownContact) {
		if err := s.LoadContacts(ctx); err != nil {
			return chat.Contact{}, err
		}
		c, err = s.SelectContactByID(id)
	}
	if err != nil {
		return chat.Contact{}, err
	}
	if reload || !hadSelection || prev.ID != c.ID {
		if err := s.LoadConversation(ctx, c.ID); err != nil {
			return c, err
		}
	}
	return c, nil
}

func printMessage(peer chat.Contact, m chat.Message) {
	from := "you"
	if m.SenderID == peer.ID {
		from = peer.Name()
	}
	body := m.Body
	if m.AttachmentRef != "" {
		body += " [image: " + m.AttachmentRef + "]"
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.DateTime), from, body)
}
