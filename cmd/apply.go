package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zjrosen/specforge/internal/app"
	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/plan"
	"github.com/zjrosen/specforge/internal/render"
)

var applyWatch bool

var applyCmd = &cobra.Command{
	Use:   "apply <plan.yaml>",
	Short: "Create catalog versions from a plan file",
	Long: `Apply a plan file: upsert its data models, create a new Draft version of
every schema, transformation spec and validation spec it declares, and
publish the entries marked publish: true.

Entries refer to earlier entries with $ref. Apply stops at the first failing
command; entities created before it are kept.

With --watch the plan is applied again every time the file changes, until
interrupted.

Examples:
  specforge apply catalog.yaml
  specforge apply catalog.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		out := cmd.OutOrStdout()
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if !applyWatch {
				res, err := a.Apply(ctx, path, command.SourcePlan)
				printApplyResult(out, res, err)
				return err
			}
			fmt.Fprintln(out, render.MutedStyle.Render("watching "+path+" (ctrl+c to stop)"))
			return a.WatchPlan(ctx, path, func(res *plan.Result, err error) {
				printApplyResult(out, res, err)
			})
		})
	},
}

func init() {
	applyCmd.Flags().BoolVarP(&applyWatch, "watch", "w", false, "reapply the plan whenever the file changes")
	rootCmd.AddCommand(applyCmd)
}

func printApplyResult(w io.Writer, res *plan.Result, err error) {
	if res != nil {
		for _, e := range res.Entities {
			var state string
			switch {
			case e.Kind == domain.KindDataModel:
			case e.Published:
				state = render.Status(domain.StatusPublished)
			default:
				state = render.Status(domain.StatusDraft)
			}
			fmt.Fprintf(w, "%-20s %-22s %s %s\n", e.Ref, e.Kind, e.ID, state)
		}
	}
	if err != nil {
		fmt.Fprintf(w, "%s %v\n", render.ErrorStyle.Render("✗ apply failed:"), err)
		return
	}
	fmt.Fprintf(w, "%s %d entities, %d commands %s\n",
		render.SuccessStyle.Render("✓ applied"), len(res.Entities), res.Commands, render.MutedStyle.Render("trace "+res.TraceID))
}
