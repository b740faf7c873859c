package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/spf13/cobra"
)

var imageFlag string

func init() {
	sendCmd.Flags().StringVar(&imageFlag, "image", "", "attachment reference to send with the message")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <contact-id> <text...>",
	Short: "Send a message to a contact",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := chat.OutgoingMessage{
			Body:          strings.Join(args[1:], " "),
			AttachmentRef: imageFlag,
		}
		if out.Body == "" && out.AttachmentRef == "" {
			return fmt.Errorf("nothing to send: give text or --image")
		}
		return withSession(cmd, false, func(ctx context.Context, d deps) error {
			c, err := openConversation(ctx, d.Store, args[0], false)
			if err != nil {
				return err
			}
			msg, err := d.Store.SendMessage(ctx, out)
			if err != nil {
				return err
			}
			printMessage(c, msg)
			return nil
		})
	},
}
