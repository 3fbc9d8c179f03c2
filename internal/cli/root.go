// Package cli provides the dendrexctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dendrex/internal/config"
	logpkg "github.com/kailas-cloud/dendrex/internal/logger"
	analysisuc "github.com/kailas-cloud/dendrex/internal/usecase/analysis"
	"github.com/kailas-cloud/dendrex/internal/version"
)

// app carries the state shared by subcommands, built once in PersistentPreRunE.
type app struct {
	// Global flags
	env      string
	logLevel string

	cfg    config.Config
	opts   analysisuc.Options
	logger *zap.Logger
}

// NewRootCommand builds the dendrexctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dendrexctl",
		Short: "Cluster text and card sorts into heatmaps and dendrograms",
		Long: `dendrexctl runs the dendrex analysis pipeline on local CSV files.

Rows sharing an id are merged into one document, vectorized with TF-IDF,
compared by cosine similarity and clustered hierarchically. The result is
written as the same JSON envelope the HTTP API returns.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Nothing to build for help
			if cmd.Name() == "help" {
				return nil
			}
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.env, "env", "",
		"load config/<env>.yaml instead of the built-in defaults")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"log level: debug, info, warn, error (default warn)")

	root.AddCommand(newAnalyzeCommand(a))
	root.AddCommand(newCardSortCommand(a))
	return root
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) init() error {
	if a.env == "" {
		a.cfg = config.Default()
	} else {
		cfg, err := config.Load(a.env)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
	}

	logger, err := logpkg.NewLogger("cli", a.logLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger

	opts := a.cfg.AnalysisOptions()
	// Short-lived process, the OS reclaims everything on exit
	opts.ReclaimBetweenStages = false
	a.opts = opts
	return nil
}

// service builds the pipeline after applying command-level overrides.
func (a *app) service(override func(*analysisuc.Options)) (*analysisuc.Service, error) {
	opts := a.opts
	if override != nil {
		override(&opts)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis options: %w", err)
	}
	return analysisuc.New(opts, nil, a.logger), nil
}
