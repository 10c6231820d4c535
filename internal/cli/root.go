package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	token      string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "quiz-bot",
		Short: "Telegram quiz bot with per-user sessions and a score leaderboard",
	}

	cmd.PersistentFlags().StringVar(&token, "token", envToken, "Telegram bot token")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &token))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
