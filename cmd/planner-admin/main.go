package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/config"
)

var (
	envFile string
	logger  *zap.Logger
	cfg     config.Config
)

// rootCmd loads .env and configuration before any subcommand runs.
var rootCmd = &cobra.Command{
	Use:   "planner-admin",
	Short: "Administrative tasks for the program planner",
	Long: `Operator commands for the program planner service.

Available subcommands:
  migrate      - Apply pending database migrations
  create-admin - Create an administrator or promote an existing user`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if logger, err = config.NewLogger(cfg.Env, cfg.LogLevel); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file to load before reading the environment")

	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Administrator email (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password for a new account (required unless the user exists)")
	_ = createAdminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
