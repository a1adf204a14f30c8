// Package cmd defines the careerwatch CLI: the long-running service, a single
// pass, and a page diagnostic.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/careerwatch/internal/config"
	"github.com/JakeFAU/careerwatch/internal/logging"
)

// cli holds state shared by the subcommands once PersistentPreRunE has run.
type cli struct {
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "careerwatch",
		Short: "Watches company career pages and announces new job postings.",
		Long: `careerwatch crawls the career pages of a list of companies, recognizes
job postings, and sends each new posting to a notification channel exactly
once across runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "path to a YAML config file")

	cmd.AddCommand(newRunCmd(c))
	cmd.AddCommand(newOnceCmd(c))
	cmd.AddCommand(newCheckCmd(c))
	return cmd
}

func (c *cli) init() error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewWithFile(cfg.Logging.Development, logging.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	c.cfg = cfg
	c.logger = logger
	return nil
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
