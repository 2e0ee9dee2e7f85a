package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/bootstrap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the crawl scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap.NewApp(cfgFile, debug)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
}
