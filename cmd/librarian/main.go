package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/librarian/pkg/logger"
	"github.com/jingkaihe/librarian/pkg/presenter"
)

func init() {
	// Environment variables, e.g. LIBRARIAN_POLICY_AUTO_THRESHOLD
	viper.SetEnvPrefix("LIBRARIAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.librarian")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "fmt")
}

var (
	shutdownTracing = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Route free-text requests to skills from a skill catalog",
	Long: `Librarian maps a natural-language request to one or more skills from a
catalog of SKILL.md files, registry.yaml manifests or schema.json descriptors,
and orders the selected skills and their dependencies into execution phases.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
			return err
		}
		presenter.SetQuiet(viper.GetBool("quiet"))
		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to initialize tracing")
		}
		shutdownTracing = shutdown
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "fmt", "Log format (fmt, json)")
	flags.StringP("output", "o", "text", "Output format (text, json)")
	flags.BoolP("quiet", "q", false, "Print errors only; the exit status still reports the decision")
	flags.StringSlice("manifest", nil, "registry.yaml manifest paths or doublestar patterns")
	flags.StringSlice("skills-dir", nil, "Directories holding <skill>/SKILL.md, highest precedence first")
	flags.StringSlice("schema-root", nil, "Directories scanned for schema.json skill descriptors")
	flags.StringSlice("allow", nil, "Glob patterns of skill ids to keep (dependencies are kept too)")

	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("output", flags.Lookup("output"))
	viper.BindPFlag("quiet", flags.Lookup("quiet"))
	viper.BindPFlag("catalog.manifests", flags.Lookup("manifest"))
	viper.BindPFlag("catalog.dirs", flags.Lookup("skills-dir"))
	viper.BindPFlag("catalog.schemas", flags.Lookup("schema-root"))
	viper.BindPFlag("catalog.allowed", flags.Lookup("allow"))

	rootCmd.AddCommand(
		withTracing(resolveCmd),
		withTracing(planCmd),
		withTracing(listCmd),
		withTracing(validateCmd),
		replCmd,
		schemaCmd,
		versionCmd,
	)
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	err := rootCmd.ExecuteContext(ctx)

	if serr := shutdownTracing(ctx); serr != nil {
		logger.G(ctx).WithError(serr).Warn("failed to flush traces")
	}

	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	presenter.Error(err, "")
	return 1
}
