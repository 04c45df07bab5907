package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unisonhq/unison-comms/internal/api"
	"github.com/unisonhq/unison-comms/internal/channel"
	"github.com/unisonhq/unison-comms/internal/config"
	"github.com/unisonhq/unison-comms/internal/crypto"
	"github.com/unisonhq/unison-comms/internal/logger"
	ws "github.com/unisonhq/unison-comms/internal/websocket"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "commsd",
		Short:        "Multi-channel message gateway for the unison assistant",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newKeygenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(config.NewConfig())
		},
	}
}

func runServe(cfg *config.Config) error {
	log, err := buildLogger(cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logger.Replace(log)
	defer func() { _ = log.Sync() }()

	if err := guardBind(cfg); err != nil {
		return err
	}

	registry := channel.NewRegistry(cfg, log)
	hub := ws.NewHub(10, log)
	router := api.NewRouter(registry, hub, 0, log)

	log.Infow("unison-comms gateway starting",
		"addr", cfg.Addr(),
		"environment", cfg.Environment,
		"provider", registry.RemoteProvider())

	return http.ListenAndServe(cfg.Addr(), router)
}

// guardBind refuses non-loopback binds unless explicitly allowed. The
// gateway carries personal mail credentials and has no authentication
// layer of its own.
func guardBind(cfg *config.Config) error {
	if cfg.IsLoopback() || cfg.AllowNonLocal {
		return nil
	}
	return fmt.Errorf(
		"refusing to bind to non-loopback address %s; set COMMS_UNSAFE_ALLOW_NONLOCAL=true to override",
		cfg.Addr())
}

func buildLogger(environment string) (*zap.SugaredLogger, error) {
	var (
		zaplog *zap.Logger
		err    error
	)
	if environment == "production" {
		zaplog, err = zap.NewProduction()
	} else {
		zaplog, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return zaplog.Sugar(), nil
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a fresh URL-safe base64 store key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			cmd.Println(crypto.EncodeKey(key))
			return nil
		},
	}
}
