// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/userhub/userhub/internal/auth"
	"github.com/userhub/userhub/internal/directory/postgres"
)

// NewCreateUserCmd creates the create-user subcommand.
func NewCreateUserCmd() *cobra.Command {
	var (
		databaseURL string
		email       string
		role        string
		firstName   string
		lastName    string
		minLength   int
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		Long: `Create a user account directly in the directory. The password is
read from the USERHUB_PASSWORD environment variable so it never appears
in shell history or process listings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("database-url is required")
			}
			if role != string(auth.RoleUser) && role != string(auth.RoleAdmin) {
				return oops.Code("CONFIG_INVALID").Errorf("role must be 'user' or 'admin', got %q", role)
			}
			password := os.Getenv("USERHUB_PASSWORD")
			if password == "" {
				return oops.Code("CONFIG_INVALID").Errorf("USERHUB_PASSWORD environment variable is required")
			}

			if err := auth.NewLengthPolicy(minLength).Validate(password); err != nil {
				return err
			}

			hash, err := auth.NewArgon2idHasher().Hash(password)
			if err != nil {
				return err
			}

			user, err := auth.NewUser(email, hash, auth.Role(role))
			if err != nil {
				return err
			}
			user.Profile.FirstName = firstName
			user.Profile.LastName = lastName

			ctx := cmd.Context()
			pool, err := connectPool(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.NewUserDirectory(pool).Create(ctx, user); err != nil {
				return err
			}

			cmd.Printf("Created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"),
		"PostgreSQL connection URL (default: DATABASE_URL env)")
	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleUser), "account role (user or admin)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().IntVar(&minLength, "min-password-length", defaultMinPasswordLen, "minimum accepted password length")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
