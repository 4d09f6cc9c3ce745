package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-politemail/internal/prompt"
	"github.com/goliatone/go-politemail/internal/store"
)

var composeFrom string

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Write and store a message interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		if composeFrom == "" {
			return errors.New("--from is required")
		}
		s, err := store.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.EnsureUser(cmd.Context(), composeFrom); err != nil {
			return err
		}

		composer := prompt.Composer{
			Driver:     prompt.NewSurveyDriver(),
			Saver:      s,
			MaxOptions: cfg.MaxExtraOptions + 1,
		}
		_, err = composer.Compose(cmd.Context(), composeFrom)
		return err
	},
}

func init() {
	composeCmd.Flags().StringVar(&composeFrom, "from", "", "sender email")
}
