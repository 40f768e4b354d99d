package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/specforge/internal/app"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/config"
	"github.com/zjrosen/specforge/internal/log"
)

var (
	version = "dev"
	cfgFile string
	debug   bool

	cfg        config.Config
	cfgUsed    string
	logCleanup = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "specforge",
	Short: "Versioned schema and transformation catalog",
	Long: `specforge keeps a catalog of data schemas, transformation specs and
validation specs. Every entity is versioned: edits happen on Draft versions,
publishing archives the previous Published version, and published
transformations compile into immutable execution plans.

Catalogs are usually described in plan files and loaded with 'specforge apply'.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(*cobra.Command, []string) { logCleanup() },
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .specforge/config.yaml, then ~/.config/specforge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"enable debug logging (also SPECFORGE_DEBUG=1)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	_ = v.BindPFlag("log.debug", cmd.Flags().Lookup("debug"))

	loaded, used, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if os.Getenv("SPECFORGE_DEBUG") != "" {
		loaded.Log.Debug = true
	}
	cfg, cfgUsed = loaded, used

	cleanup, err := app.InitLogging(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logCleanup = cleanup
	log.Debug(log.CatConfig, "Starting command", "command", cmd.CommandPath(), "config", cfgUsed)
	return nil
}

// withApp opens the catalog, runs fn and closes it again. fn's context is
// cancelled on SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.ErrorErr(log.CatDB, "Closing catalog", err)
		}
	}()
	return fn(ctx, a)
}

// parseKind maps a command line entity kind to its domain kind.
func parseKind(s string) (domain.EntityKind, error) {
	switch strings.ToLower(s) {
	case "schema", "schemas":
		return domain.KindSchema, nil
	case "transformation", "transformations", "transform":
		return domain.KindTransformation, nil
	case "validation", "validations":
		return domain.KindValidation, nil
	case "datamodel", "data-model", "model":
		return domain.KindDataModel, nil
	default:
		return "", fmt.Errorf("unknown kind %q (want schema, transformation, validation or datamodel)", s)
	}
}

// currentUser names the publisher when --by is not given.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "specforge"
}

func markdownStyle() string {
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
