package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matheus3301/chatstore/internal/app"
	"github.com/matheus3301/chatstore/internal/bus"
	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/matheus3301/chatstore/internal/config"
	"github.com/matheus3301/chatstore/internal/notify"
	"github.com/matheus3301/chatstore/internal/presence"
	"github.com/matheus3301/chatstore/internal/session"
	"github.com/matheus3301/chatstore/internal/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sessionFlag string
	configFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "chatctl",
	Short:         "Client-side chat session tool",
	Long:          "Drive a chat session from the terminal: browse contacts, open conversations,\nsend messages and watch pushed messages, with state kept encrypted on disk.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "session name (overrides config default)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.chatstore/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log debug output to stderr")
}

// deps is what commands pull out of a running session.
type deps struct {
	fx.In

	Store     *chat.Store
	Persister *snapshot.Persister
	Tracker   *presence.Tracker
	Flash     *notify.Flash
	Bus       *bus.Bus
	Config    *config.Config
	Logger    *zap.Logger
}

func resolveSession() (string, error) {
	path := configFlag
	if path == "" {
		path = session.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	name := session.Resolve(sessionFlag, cfg)
	if err := session.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// withSession starts the session module, runs fn and stops it again.
func withSession(cmd *cobra.Command, live bool, fn func(ctx context.Context, d deps) error) error {
	name, err := resolveSession()
	if err != nil {
		return err
	}

	level := zapcore.InfoLevel
	if verboseFlag {
		level = zapcore.DebugLevel
	}
	var d deps
	fxApp := fx.New(
		app.Module(app.Params{
			SessionName: name,
			ConfigPath:  configFlag,
			Owner:       "chatctl " + cmd.Name(),
			Live:        live,
			Quiet:       !verboseFlag,
			LogLevel:    level,
		}),
		fx.NopLogger,
		fx.Invoke(func(in deps) { d = in }),
	)
	if err := fxApp.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}

	runErr := reportFlash(os.Stderr, d.Flash, fn(cmd.Context(), d))

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := fxApp.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// toastError carries the server-facing toast text in place of the wrapped
// error chain.
type toastError struct {
	text string
	err  error
}

func (e *toastError) Error() string { return e.text }
func (e *toastError) Unwrap() error { return e.err }

// reportFlash surfaces a toast the command has not shown yet. An error toast
// replaces the text of a failed command's error; info toasts are printed
// to w.
func reportFlash(w io.Writer, flash *notify.Flash, runErr error) error {
	kind, text := flash.Take()
	if text == "" {
		return runErr
	}
	switch {
	case kind == notify.Error && runErr != nil:
		return &toastError{text: text, err: runErr}
	case kind == notify.Info:
		fmt.Fprintln(w, text)
	}
	return runErr
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
