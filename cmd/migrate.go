package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/specforge/internal/app"
	"github.com/zjrosen/specforge/internal/render"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the catalog store",
	Long: `Run the catalog migrations against the configured store and report the
resulting schema version. Every other command migrates on open too; migrate
is useful for provisioning a PostgreSQL catalog ahead of time.

Examples:
  specforge migrate
  SPECFORGE_DATABASE_DRIVER=postgres SPECFORGE_DATABASE_DSN=postgres://... specforge migrate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s catalog at schema version %d\n",
				render.SuccessStyle.Render("✓"), a.DB.Dialect(), a.DB.SchemaVersion())
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
