package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/db"
	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/repository"
	"github.com/climajusto/iacolhe/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, cfg, logger)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		logger.Info("Database is up to date", "path", cfg.DatabaseURL)
		return nil
	},
}

var roleName string

var grantRoleCmd = &cobra.Command{
	Use:   "grant-role <user-id>",
	Short: "Give a user access to the review panel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roles, closeDB, err := openRoles()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := roles.Grant(cmd.Context(), args[0], roleName); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "granted %q to %s\n", roleName, args[0])
		return nil
	},
}

var revokeRoleCmd = &cobra.Command{
	Use:   "revoke-role <user-id>",
	Short: "Remove a role from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roles, closeDB, err := openRoles()
		if err != nil {
			return err
		}
		defer closeDB()

		removed, err := roles.Revoke(cmd.Context(), args[0], roleName)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(cmd.OutOrStdout(), "%s did not have %q\n", args[0], roleName)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revoked %q from %s\n", roleName, args[0])
		return nil
	},
}

var (
	tokenEmail string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a signed token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required to sign tokens")
		}

		token, err := auth.Sign(cfg.JWTSecret, args[0], tokenEmail, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{grantRoleCmd, revokeRoleCmd} {
		c.Flags().StringVar(&roleName, "role", models.RoleAgent, "role to grant or revoke")
	}
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func openRoles() (repository.RoleRepository, func(), error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRoleRepository(database), func() { database.Close() }, nil
}
