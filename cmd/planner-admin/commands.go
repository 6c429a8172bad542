package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/config"
	"github.com/iliyamo/program-planner/internal/database"
	"github.com/iliyamo/program-planner/internal/model"
	"github.com/iliyamo/program-planner/internal/repository"
)

const minPasswordLen = 8

var (
	adminEmail    string
	adminPassword string
)

// migrateCmd applies the embedded migrations for the configured driver.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(cfg); err != nil {
			return err
		}
		logger.Info("migrations applied", zap.String("driver", cfg.DBDriver))
		return nil
	},
}

// createAdminCmd creates an ADMIN account, or promotes the account when
// the email is already registered.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator or promote an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		promoted, err := ensureAdmin(ctx, db, cfg, adminEmail, adminPassword)
		if err != nil {
			return err
		}
		if promoted {
			logger.Info("existing user promoted", zap.String("email", adminEmail))
		} else {
			logger.Info("administrator created", zap.String("email", adminEmail))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

// ensureAdmin reports whether an existing account was promoted rather
// than a new one created.
func ensureAdmin(ctx context.Context, db *sql.DB, cfg config.Config, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, errors.New("--email is required")
	}
	users := repository.NewUserRepo(db)
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return true, users.SetRole(ctx, email, model.RoleAdmin)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return false, err
	}

	if len(password) < minPasswordLen {
		return false, fmt.Errorf("--password must be at least %d characters for a new account", minPasswordLen)
	}
	if _, err := users.Create(ctx, email, password, model.RoleAdmin, cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// Registered concurrently.
			return true, users.SetRole(ctx, email, model.RoleAdmin)
		}
		return false, err
	}
	return false, nil
}
