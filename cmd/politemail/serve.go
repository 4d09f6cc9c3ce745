package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-politemail/internal/app"
)

var (
	serveAddr  string
	serveDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web app",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveAddr
		}
		if cmd.Flags().Changed("debug") {
			cfg.Debug = serveDebug
		}

		a, err := app.New(cmd.Context(), cfg, app.WithLogger(logger))
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "always reload templates")
}
