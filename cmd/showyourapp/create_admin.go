package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appconfig "github.com/showyourapp/backend/internal/config"
	"github.com/showyourapp/backend/internal/db"
	"github.com/showyourapp/backend/internal/types"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long:  "Create an admin account directly in the database. Public registration never grants the admin flag, so the first admin is created here.",
	RunE:  runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "Admin username (required)")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password (required)")

	createAdminCmd.MarkFlagRequired("username")
	createAdminCmd.MarkFlagRequired("email")
	createAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(createAdminCmd)
}

func runCreateAdmin(_ *cobra.Command, _ []string) error {
	req := &types.CreateUserRequest{
		Username: adminUsername,
		Email:    adminEmail,
		Password: adminPassword,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}

	passwordConfig, err := appconfig.NewPasswordConfig()
	if err != nil {
		return err
	}
	hash, err := passwordConfig.HashPassword(adminPassword)
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if existing, err := database.GetUserByEmail(ctx, adminEmail); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("email already registered: %s", adminEmail)
	}
	if existing, err := database.GetUserByUsername(ctx, adminUsername); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("username already taken: %s", adminUsername)
	}

	id, err := database.CreateUser(ctx, &types.User{
		Username:     adminUsername,
		Email:        adminEmail,
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Created admin user %s (%s)\n", adminUsername, id)
	return nil
}
