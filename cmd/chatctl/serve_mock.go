package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/matheus3301/chatstore/internal/mockserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	mockAddr  string
	mockUsers []string
)

func init() {
	serveMockCmd.Flags().StringVar(&mockAddr, "addr", "127.0.0.1:5001", "listen address")
	serveMockCmd.Flags().StringSliceVar(&mockUsers, "user", []string{"me:Me", "u1:Ana", "u2:Bruno"}, "seed user as id:Full Name (repeatable)")
	rootCmd.AddCommand(serveMockCmd)
}

var serveMockCmd = &cobra.Command{
	Use:   "serve-mock",
	Short: "Run an in-memory chat backend for local development",
	Long:  "Serve the messages REST endpoints and the push websocket from memory.\nPoint api_base_url at http://<addr> and push_url at http://<addr>/ws.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := parseUsers(mockUsers)
		if err != nil {
			return err
		}
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		mock := mockserver.New(users, logger)
		srv := &http.Server{Addr: mockAddr, Handler: mock.Handler(), ReadHeaderTimeout: 10 * time.Second}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		logger.Info("mock backend listening", zap.String("addr", mockAddr), zap.Int("users", len(users)))

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		mock.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func parseUsers(flags []string) ([]chat.Contact, error) {
	users := make([]chat.Contact, 0, len(flags))
	for _, flag := range flags {
		id, name, ok := strings.Cut(flag, ":")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --user %q: want id:Full Name", flag)
		}
		users = append(users, chat.Contact{ID: id, DisplayName: name})
	}
	return users, nil
}
