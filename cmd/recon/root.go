package main

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"inventory-recon/internal/config"
)

type commandContext struct {
	flags        *pflag.FlagSet
	configFlag   *string
	logLevelFlag *string
	logFileFlag  *string

	once   sync.Once
	cfg    config.Config
	logger zerolog.Logger
	err    error
}

// ensureConfig loads the configuration once. The CLI logs to stderr at warn
// and to no file unless the config file, the environment or a flag says
// otherwise; flags win.
func (c *commandContext) ensureConfig() (config.Config, error) {
	c.once.Do(func() {
		base := config.Default()
		base.LogLevel = "warn"
		base.LogFile = ""
		cfg, err := config.LoadOver(base, strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		if c.flags.Changed("log-level") {
			cfg.LogLevel = *c.logLevelFlag
		}
		if c.flags.Changed("log-file") {
			cfg.LogFile = *c.logFileFlag
		}
		c.cfg = cfg
		c.logger = config.SetupLogger(cfg)
	})
	return c.cfg, c.err
}

func newRootCommand() *cobra.Command {
	var configFlag, logLevel, logFile string
	ctx := &commandContext{configFlag: &configFlag, logLevelFlag: &logLevel, logFileFlag: &logFile}

	rootCmd := &cobra.Command{
		Use:           "recon",
		Short:         "Reconcile two inventory exports by SKU",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	ctx.flags = rootCmd.PersistentFlags()
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "TOML configuration file (default $RECON_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this rotating file")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	return rootCmd
}
