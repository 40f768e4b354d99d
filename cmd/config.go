package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/specforge/internal/config"
	"github.com/zjrosen/specforge/internal/render"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the specforge config file",
	// An explicit --config may not exist yet; only look one up otherwise.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			return nil
		}
		return loadConfig(cmd, args)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Long: `Write the default configuration to --config, or .specforge/config.yaml
in the current directory. An existing file is kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configTarget(false)
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", render.SuccessStyle.Render("✓ wrote"), path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one config value",
	Long: `Set a dotted config key in the config file in use, keeping comments and
the rest of the file intact. When no config file exists yet,
.specforge/config.yaml is created.

Examples:
  specforge config set database.driver postgres
  specforge config set schemas.reject_element_cycles true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configTarget(true)
		if err := config.SetValue(path, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s\n",
			render.SuccessStyle.Render("✓"), args[0], args[1], render.MutedStyle.Render("("+path+")"))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configTarget picks the file config commands write: --config, then the
// file that was loaded when useLoaded is set, then the project-local path.
func configTarget(useLoaded bool) string {
	switch {
	case cfgFile != "":
		return cfgFile
	case useLoaded && cfgUsed != "":
		return cfgUsed
	default:
		return config.LocalConfigPath
	}
}
