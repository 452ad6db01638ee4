package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/librarian/pkg/telemetry"
	"github.com/jingkaihe/librarian/pkg/version"
)

// initTracing installs the tracer provider described by the tracing.* keys
func initTracing(ctx context.Context) (telemetry.ShutdownFunc, error) {
	return telemetry.InitTracer(ctx, telemetry.Config{
		Enabled:        viper.GetBool("tracing.enabled"),
		Sampler:        viper.GetString("tracing.sampler"),
		Ratio:          viper.GetFloat64("tracing.ratio"),
		ServiceName:    "librarian",
		ServiceVersion: version.Get().Version,
	})
}

// withTracing runs the command's RunE inside a "cli.command" span carrying
// the command path and the flags that were set explicitly.
func withTracing(cmd *cobra.Command) *cobra.Command {
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		attrs := []attribute.KeyValue{
			attribute.String("command.path", cmd.CommandPath()),
			attribute.Int("args.count", len(args)),
		}
		cmd.Flags().Visit(func(f *pflag.Flag) {
			attrs = append(attrs, attribute.String("flag."+f.Name, f.Value.String()))
		})

		return telemetry.WithSpan(cmd.Context(), "cli.command", func(ctx context.Context) error {
			cmd.SetContext(ctx)
			return run(cmd, args)
		}, attrs...)
	}
	return cmd
}

func init() {
	rootCmd.PersistentFlags().Bool("tracing-enabled", false, "Enable OpenTelemetry tracing")
	rootCmd.PersistentFlags().String("tracing-sampler", "ratio", "Tracing sampler type (always, never, ratio)")
	rootCmd.PersistentFlags().Float64("tracing-ratio", 1, "Sampling ratio when using ratio sampler")

	viper.BindPFlag("tracing.enabled", rootCmd.PersistentFlags().Lookup("tracing-enabled"))
	viper.BindPFlag("tracing.sampler", rootCmd.PersistentFlags().Lookup("tracing-sampler"))
	viper.BindPFlag("tracing.ratio", rootCmd.PersistentFlags().Lookup("tracing-ratio"))
}
