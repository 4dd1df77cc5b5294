package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/bz888/deepchat/internal/api/server"
	"github.com/bz888/deepchat/internal/config"
	"github.com/bz888/deepchat/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run only the relay",
	Long: `Run the relay without the terminal client. POST /api/chat streams the
upstream answer back as plain text; GET /status reports relay health.

The relay stops on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := logger.InitLogger(cfg.Dev, cfg.LogPath, nil); err != nil {
			return err
		}
		localLogger := logger.NewLogger("main")
		defer localLogger.Close()

		relay, err := server.New(cfg)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- relay.Run()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			localLogger.Info("Received ", sig, ", shutting down")
			shutdown(relay, localLogger)
			return <-errCh
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "Address the relay listens on")
	serveCmd.Flags().StringVar(&upstreamURL, "upstream", config.DefaultUpstreamURL, "Upstream inference endpoint")
	rootCmd.AddCommand(serveCmd)
}
