package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bz888/deepchat/internal/api"
	"github.com/bz888/deepchat/internal/api/server"
	"github.com/bz888/deepchat/internal/config"
	"github.com/bz888/deepchat/internal/logger"
	"github.com/bz888/deepchat/internal/ui"
	"github.com/spf13/cobra"
)

var (
	dev         bool
	logPath     string
	configPath  string
	addr        string
	upstreamURL string
	version     string = "dev"
)

const shutdownTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:   "deepchat",
	Short: "Streaming chat relay with a terminal client",
	Long: `deepchat runs a relay in front of a streaming inference endpoint and a
terminal chat client on top of it.

Without a subcommand both run in one process. Use "serve" to run only the
relay and "chat" to attach the client to a relay that is already running.

Credentials are read from DEEPSEEK_API_KEY and ANTHROPIC_API_KEY (a .env
file in the working directory is honoured).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		view := ui.New(cfg.Dev)
		if err := logger.InitLogger(cfg.Dev, cfg.LogPath, view.DebugConsole()); err != nil {
			return err
		}
		localLogger := logger.NewLogger("main")
		defer localLogger.Close()

		relay, err := startRelay(cfg, localLogger)
		if err != nil {
			return err
		}
		defer shutdown(relay, localLogger)

		return runChat(view, relayURLFor(cfg.Addr))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dev, "dev", false, "Enable development mode (log to the debug console)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-path", "", "Directory for the JSON log file (no file when empty)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	rootCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "Address the relay listens on")
	rootCmd.Flags().StringVar(&upstreamURL, "upstream", config.DefaultUpstreamURL, "Upstream inference endpoint")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig layers explicitly set flags over the file and environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("dev") {
		cfg.Dev = dev
	}
	if flags.Changed("log-path") {
		cfg.LogPath = logPath
	}
	if flags.Changed("addr") {
		cfg.Addr = addr
	}
	if flags.Changed("upstream") {
		cfg.UpstreamURL = upstreamURL
	}
	if flags.Changed("relay") {
		cfg.RelayURL = relayURL
	}
	return cfg, nil
}

// startRelay binds the listen address before returning, so a taken port
// stops startup instead of every chat failing later.
func startRelay(cfg config.Config, localLogger *logger.Logger) (*server.Server, error) {
	relay, err := server.New(cfg)
	if err != nil {
		return nil, err
	}
	listener, err := relay.Listen()
	if err != nil {
		return nil, err
	}
	go func() {
		if err := relay.Serve(listener); err != nil {
			localLogger.Error("Relay stopped: ", err)
		}
	}()
	return relay, nil
}

// relayURLFor turns a listen address like ":8080" into a URL the client can dial.
func relayURLFor(listenAddr string) string {
	if len(listenAddr) > 0 && listenAddr[0] == ':' {
		return "http://localhost" + listenAddr
	}
	return "http://" + listenAddr
}

func runChat(view *ui.UI, relayURL string) error {
	relay, err := api.NewRelayClient(relayURL, nil)
	if err != nil {
		return err
	}
	session := api.NewSession(relay, view.SessionOptions()...)
	return view.Run(session)
}

func shutdown(relay *server.Server, localLogger *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := relay.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		localLogger.Error("Relay shutdown failed: ", err)
	}
}
