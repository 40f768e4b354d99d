package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/specforge/internal/app"
	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/handler"
	"github.com/zjrosen/specforge/internal/render"
)

var publishedBy string

var publishCmd = &cobra.Command{
	Use:   "publish <kind> <id>",
	Short: "Publish a Draft version",
	Long: `Validate a Draft schema, transformation spec or validation spec in
publish-strict mode and publish it. The Published version of the same group,
if any, is archived in the same transaction.

Examples:
  specforge publish schema 6f1c...
  specforge publish transformation 9a2e... --by alice`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		by := publisher()

		var c command.Command
		switch kind {
		case domain.KindSchema:
			c = command.NewPublishSchemaCommand(command.SourceCLI, args[1], by)
		case domain.KindTransformation:
			c = command.NewPublishTransformationCommand(command.SourceCLI, args[1], by)
		case domain.KindValidation:
			c = command.NewPublishValidationCommand(command.SourceCLI, args[1], by)
		default:
			return fmt.Errorf("a %s has no versions to publish", kind)
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Execute(ctx, c)
			if err != nil {
				return err
			}
			pr, ok := res.Data.(*handler.PublishResult)
			if !ok {
				return fmt.Errorf("unexpected publish result %T", res.Data)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s v%d by %s\n",
				render.SuccessStyle.Render("✓ published"), kind, pr.ID, pr.Version, by)
			for _, id := range pr.ArchivedIDs {
				fmt.Fprintf(out, "  %s %s\n", render.Status(domain.StatusArchived), id)
			}
			return nil
		})
	},
}

var publishRelatedCmd = &cobra.Command{
	Use:   "publish-related <root-schema-id> <schema-id>...",
	Short: "Publish a schema together with the schemas it nests",
	Long: `Publish the listed schemas in order. The root schema must exist and is
published only when it is listed too; listed schemas that are no longer Draft
are skipped. Each publish commits on its own, so when one fails the schemas
published before it stay Published. List element schemas before the schemas
that nest them.

Examples:
  specforge publish-related $CUSTOMER $ADDRESS $PHONE $CUSTOMER`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := command.NewPublishRelatedSchemasCommand(command.SourceCLI, args[0], publisher(), args[1:])
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Execute(ctx, c)
			if res != nil {
				if ids, ok := res.Data.([]string); ok && len(ids) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
						render.SuccessStyle.Render(fmt.Sprintf("✓ published %d schema(s):", len(ids))), strings.Join(ids, ", "))
				}
			}
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{publishCmd, publishRelatedCmd} {
		c.Flags().StringVar(&publishedBy, "by", "", "publisher recorded on the version (default: current user)")
		rootCmd.AddCommand(c)
	}
}

func publisher() string {
	if publishedBy != "" {
		return publishedBy
	}
	return currentUser()
}
