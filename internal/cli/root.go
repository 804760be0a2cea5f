package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/roach88/ndc-test/internal/config"
	"github.com/roach88/ndc-test/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigFile string

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the ndc-test CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ndc-test",
		Short: "ndc-test - connector conformance harness",
		Long: `Check that a data connector speaks the NDC protocol correctly.

ndc-test fetches the connector's capabilities and schema, validates
them, synthesizes a query for every table, function and procedure it
can exercise without guessing inputs, runs them and checks the shape
of every response.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.ConfigFile != "" {
				if err := config.ReadFile(opts.viper(), opts.ConfigFile); err != nil {
					return WrapExitError(ExitCommandError, "config", err)
				}
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (yaml, toml or json)")
	opts.bind(config.KeyVerbose, cmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// viper returns the settings layered under the flags, creating them on
// first use.
func (o *RootOptions) viper() *viper.Viper {
	if o.v == nil {
		// config.New only fails reading a file, and none is given here.
		o.v, _ = config.New("")
	}
	return o.v
}

// bind ties a flag to a config key.
func (o *RootOptions) bind(key string, flag *pflag.Flag) {
	if err := o.viper().BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

// settings resolves the effective configuration.
func (o *RootOptions) settings() (*config.Config, error) {
	cfg, err := config.Load(o.viper())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "config", err)
	}
	return cfg, nil
}

// logger builds the logger for a command. Logs go to w, never to the
// report stream.
func (o *RootOptions) logger(cfg *config.Config, w io.Writer) *zap.Logger {
	return logging.New(w, cfg.Log.Verbose || o.Verbose, cfg.Log.JSON || o.Format == "json")
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
