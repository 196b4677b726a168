package commands

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/drcash-dev/drcash/internal/buildinfo"
	"github.com/drcash-dev/drcash/internal/config"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "drcash",
		Short:   "Column mapping for bank statement and tax invoice exports",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", config.FileName, "config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newPreviewCommand(flags))
	rootCmd.AddCommand(newRunCommand(flags))
	rootCmd.AddCommand(newServeCommand(flags))

	return rootCmd
}

// load reads the config file, or defaults when it does not exist, and
// builds the logger. Logs go to the command's stderr.
func (f *globalFlags) load(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", f.configPath, err)
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:           level,
		Prefix:          "drcash",
		ReportTimestamp: true,
	})
	return cfg, logger, nil
}
