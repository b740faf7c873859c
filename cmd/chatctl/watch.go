package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheus3301/chatstore/internal/bus"
	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/matheus3301/chatstore/internal/notify"
	"github.com/matheus3301/chatstore/internal/status"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay connected and print pushed messages until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, true, func(ctx context.Context, d deps) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			// One subscription for every namespace keeps events in publish order.
			events, unsub := d.Bus.Subscribe("", 128)
			defer unsub()

			peer, hasPeer := d.Store.Selected()
			if hasPeer {
				fmt.Printf("Watching (open conversation: %s). Ctrl-C to stop.\n", peer.Name())
			} else {
				fmt.Println("Watching. Ctrl-C to stop.")
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case evt := <-events:
					printEvent(evt, peer)
					if evt.Kind == bus.KindNotifyInfo || evt.Kind == bus.KindNotifyError {
						d.Flash.Take()
					}
				}
			}
		})
	},
}

func printEvent(evt bus.Event, peer chat.Contact) {
	ts := evt.Timestamp.Format(time.TimeOnly)
	switch evt.Kind {
	case bus.KindNotifyInfo, bus.KindNotifyError:
		t, ok := evt.Payload.(notify.Toast)
		if !ok {
			return
		}
		if t.Kind == notify.Error {
			fmt.Printf("%s error: %s\n", ts, t.Text)
		} else {
			fmt.Printf("%s %s\n", ts, t.Text)
		}
	case bus.KindMessageAppended:
		if m, ok := evt.Payload.(chat.Message); ok {
			printMessage(peer, m)
		}
	case bus.KindPushStatusChanged:
		if change, ok := evt.Payload.(status.StatusChange); ok {
			fmt.Printf("%s push %s\n", ts, change.To)
		}
	}
}
