package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/bootstrap"
)

func newMigrateCommand() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return bootstrap.Migrate(cfgFile, debug, down)
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of applying")
	return cmd
}
