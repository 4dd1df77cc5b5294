package cmd

import (
	"github.com/bz888/deepchat/internal/config"
	"github.com/bz888/deepchat/internal/logger"
	"github.com/bz888/deepchat/internal/ui"
	"github.com/spf13/cobra"
)

var relayURL string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run only the terminal client against a running relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		view := ui.New(cfg.Dev)
		if err := logger.InitLogger(cfg.Dev, cfg.LogPath, view.DebugConsole()); err != nil {
			return err
		}
		defer logger.NewLogger("main").Close()

		return runChat(view, cfg.RelayURL)
	},
}

func init() {
	chatCmd.Flags().StringVar(&relayURL, "relay", config.DefaultRelayURL, "Relay base URL")
	rootCmd.AddCommand(chatCmd)
}
