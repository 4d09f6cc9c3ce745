package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-politemail/internal/prompt"
	"github.com/goliatone/go-politemail/internal/store"
)

var userEmail string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Set a user's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userEmail == "" {
			return errors.New("--email is required")
		}
		s, err := store.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.EnsureUser(cmd.Context(), userEmail); err != nil {
			return err
		}
		if err := prompt.SetPassword(cmd.Context(), prompt.NewSurveyDriver(), s, userEmail); err != nil {
			return err
		}
		logger.Info("password updated", zap.String("email", userEmail))
		return nil
	},
}

func init() {
	userPasswdCmd.Flags().StringVar(&userEmail, "email", "", "user email")
	userCmd.AddCommand(userPasswdCmd)
}
