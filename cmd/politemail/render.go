package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-politemail/internal/app"
)

var (
	renderAdd    int
	renderFrom   string
	renderOutput string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render pages without running the server",
}

var renderComposeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Render the compose page with its option rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SecretKey == "" {
			// Rendering never touches sessions.
			cfg.SecretKey = "render-only"
		}
		cfg.Database = ":memory:"

		a, err := app.New(cmd.Context(), cfg, app.WithLogger(logger))
		if err != nil {
			return err
		}
		defer a.Close()

		var buf bytes.Buffer
		err = a.RenderCompose(cmd.Context(), &buf, app.ComposeRequest{
			State: app.ReqState{Email: renderFrom, LoggedIn: renderFrom != ""},
			Add:   renderAdd,
		})
		if err != nil {
			return err
		}

		if renderOutput != "" {
			if err := os.WriteFile(renderOutput, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Page written to %s\n", renderOutput)
			return nil
		}
		_, err = buf.WriteTo(cmd.OutOrStdout())
		return err
	},
}

func init() {
	renderComposeCmd.Flags().IntVar(&renderAdd, "add", 0, "times to activate the add-option control")
	renderComposeCmd.Flags().StringVar(&renderFrom, "from", "", "sender shown on the page")
	renderComposeCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file (stdout if empty)")
	renderCmd.AddCommand(renderComposeCmd)
}
