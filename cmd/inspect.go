package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/specforge/internal/app"
	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/validator"
	"github.com/zjrosen/specforge/internal/render"
)

var (
	validateForPublish bool
	compileFormat      string
	describeRaw        bool
	describeFormat     string
	diffContext        int
	versionsFormat     string
)

// errInvalid is returned by validate so the process exits non-zero after
// the issues were printed.
var errInvalid = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate <kind> <id>",
	Short: "Statically validate a schema, transformation or validation spec",
	Long: `Run the static validator over one entity version and list its issues.
--for-publish applies the stricter checks publishing runs, such as requiring
a primary key with fields and Published referenced entities.

Examples:
  specforge validate schema 6f1c...
  specforge validate transformation 9a2e... --for-publish`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		id := args[1]
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Execute(ctx, command.NewValidateEntityCommand(command.SourceCLI, kind, id, validateForPublish))
			if err != nil {
				return err
			}
			result, ok := res.Data.(validator.Result)
			if !ok {
				return fmt.Errorf("unexpected validation result %T", res.Data)
			}
			fmt.Fprint(cmd.OutOrStdout(), render.ValidationResult(kind, id, result))
			if !result.Valid {
				return errInvalid
			}
			return nil
		})
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile <transformation-id>",
	Short: "Print the compiled plan of a Published transformation spec",
	Long: `Compile a Published transformation spec into its execution plan and
print it. Advanced specs carry their node execution order; references name
the child specs the plan delegates to.

Examples:
  specforge compile 9a2e...
  specforge compile 9a2e... --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(compileFormat)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Execute(ctx, command.NewCompileTransformationCommand(command.SourceCLI, args[0]))
			if err != nil {
				return err
			}
			return render.NewFormatter(cmd.OutOrStdout(), format).Encode(res.Data)
		})
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <kind> <id>",
	Short: "Describe one catalog entity",
	Long: `Describe a data model, schema, transformation spec or validation spec.
The description is rendered markdown; --raw prints the markdown source and
--format prints the entity as json or yaml instead.

Examples:
  specforge describe schema 6f1c...
  specforge describe transformation 9a2e... --raw
  specforge describe validation 41b0... --format yaml`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		var format render.Format
		if describeFormat != "" {
			if format, err = render.ParseFormat(describeFormat); err != nil {
				return err
			}
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			dto, md, err := describe(ctx, a, kind, args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case format != "":
				return render.NewFormatter(out, format).Encode(dto)
			case describeRaw:
				_, err = fmt.Fprint(out, md)
				return err
			}
			m, err := render.NewMarkdown(0, markdownStyle())
			if err != nil {
				return err
			}
			rendered, err := m.Render(md)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, rendered)
			return err
		})
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare catalog versions",
}

var diffSchemaCmd = &cobra.Command{
	Use:   "schema <old-id> <new-id>",
	Short: "Show a line diff between two schema versions",
	Long: `Compare two schema versions through their YAML description and print a
unified diff. Usually the two ids are versions of the same group, as listed
by 'specforge versions schema'.

Examples:
  specforge diff schema 6f1c... 7d20...
  specforge diff schema 6f1c... 7d20... --context -1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			var versions [2]render.SchemaDTO
			for i, id := range args {
				res, err := a.Execute(ctx, command.NewGetCommand(command.SourceCLI, command.CmdGetSchema, id))
				if err != nil {
					return err
				}
				versions[i] = render.FromSchema(res.Data.(*domain.DataSchema))
			}
			d, err := render.DiffSchemas(versions[0], versions[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), d.Unified(diffContext))
			return err
		})
	},
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the versions of a catalog group",
}

var versionsSchemaCmd = &cobra.Command{
	Use:   "schema <tenant> <key> <role>",
	Short: "List every version of a schema group",
	Long: `List the versions of the schema group identified by tenant, key and role
(Incoming, Master or Outgoing), oldest first.

Examples:
  specforge versions schema tenant-a customer Master
  specforge versions schema tenant-a customer Master --format json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := domain.SchemaRole(args[2])
		if !role.IsValid() {
			return fmt.Errorf("unknown role %q (want Incoming, Master or Outgoing)", args[2])
		}
		var format render.Format
		if versionsFormat != "" {
			var err error
			if format, err = render.ParseFormat(versionsFormat); err != nil {
				return err
			}
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Execute(ctx, command.NewListSchemaVersionsCommand(command.SourceCLI, args[0], args[1], role))
			if err != nil {
				return err
			}
			versions := render.Versions(res.Data.([]*domain.DataSchema))
			if format != "" {
				return render.NewFormatter(cmd.OutOrStdout(), format).Encode(versions)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), render.VersionTable(versions))
			return err
		})
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateForPublish, "for-publish", false, "apply publish-strict checks")
	compileCmd.Flags().StringVarP(&compileFormat, "format", "f", "json", "output format: json or yaml")
	describeCmd.Flags().BoolVar(&describeRaw, "raw", false, "print markdown without rendering")
	describeCmd.Flags().StringVarP(&describeFormat, "format", "f", "", "print the entity as json or yaml")
	diffSchemaCmd.Flags().IntVarP(&diffContext, "context", "U", 3, "unchanged lines shown around changes, -1 for all")
	versionsSchemaCmd.Flags().StringVarP(&versionsFormat, "format", "f", "", "print versions as json or yaml")

	diffCmd.AddCommand(diffSchemaCmd)
	versionsCmd.AddCommand(versionsSchemaCmd)
	rootCmd.AddCommand(validateCmd, compileCmd, describeCmd, diffCmd, versionsCmd)
}

// describe loads an entity and returns its DTO and markdown description.
func describe(ctx context.Context, a *app.App, kind domain.EntityKind, id string) (any, string, error) {
	getType := map[domain.EntityKind]command.CommandType{
		domain.KindDataModel:      command.CmdGetDataModel,
		domain.KindSchema:         command.CmdGetSchema,
		domain.KindTransformation: command.CmdGetTransformation,
		domain.KindValidation:     command.CmdGetValidation,
	}[kind]

	res, err := a.Execute(ctx, command.NewGetCommand(command.SourceCLI, getType, id))
	if err != nil {
		return nil, "", err
	}
	switch e := res.Data.(type) {
	case *domain.DataModel:
		dto := render.FromDataModel(e)
		return dto, render.DataModelMarkdown(dto), nil
	case *domain.DataSchema:
		dto := render.FromSchema(e)
		return dto, render.SchemaMarkdown(dto), nil
	case *domain.TransformationSpec:
		dto := render.FromTransformation(e)
		return dto, render.TransformationMarkdown(dto), nil
	case *domain.ValidationSpec:
		dto := render.FromValidation(e)
		return dto, render.ValidationMarkdown(dto), nil
	default:
		return nil, "", fmt.Errorf("cannot describe %T", res.Data)
	}
}
