// Command iacolhectl is the operator tool: it runs the server, applies
// migrations, manages agent roles and issues tokens for testing.
package main

import (
	"fmt"
	"os"

	"github.com/climajusto/iacolhe/internal/config"
	"github.com/climajusto/iacolhe/internal/utils"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "iacolhectl",
	Short:         "Operate the IAcolhe benefit service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, grantRoleCmd, revokeRoleCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *utils.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, utils.NewLogger(cfg.LogLevel), nil
}
