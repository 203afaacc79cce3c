// Package cli wires the cobra root command and binds its flags into
// config.Config, the way the teacher's root command binds its flags
// through viper.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aquilairreale/mongohoneypot/config"
)

// Run is the value a cobra Command's RunE is given: config resolved from
// flags, ready for main to wire up the rest of the process.
type Run func(cfg *config.Config) error

// RootCommand builds the single top-level command: mongohoneypot has no
// subcommands, only flags, so SetFlags and the Run callback are composed
// directly here rather than split across a command tree.
func RootCommand(logger *zap.Logger, run Run) *cobra.Command {
	cfg := config.New()

	cmd := &cobra.Command{
		Use:   "mongohoneypot",
		Short: "A MongoDB honeypot interception proxy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cfg)
		},
	}

	if err := SetFlags(logger, cmd, cfg); err != nil {
		logger.Fatal("failed to register flags", zap.Error(err))
	}

	return cmd
}

// SetFlags registers every documented flag on cmd and binds them into cfg
// through viper, mirroring the teacher's SetFlags/viper.BindPFlags idiom.
func SetFlags(logger *zap.Logger, cmd *cobra.Command, cfg *config.Config) error {
	cmd.Flags().VarP(&cfg.Host, "host", "H", "ADDRESS:PORT to bind the honeypot to")
	cmd.Flags().VarP(&cfg.MongoHost, "mongo-host", "m", "ADDRESS:PORT of the upstream mongod (only ADDRESS is dialed; the port is the one the sandboxed container publishes)")
	cmd.Flags().DurationVarP(&cfg.CheckInterval, "check-interval", "t", cfg.CheckInterval, "how often the supervisor probes the upstream")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "dump decoded messages to stderr")
	cmd.Flags().StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "path to the structured event log")
	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "raise the diagnostic log level to debug")
	cmd.Flags().Int32Var(&cfg.MaxMessageBytes, "max-message-bytes", cfg.MaxMessageBytes, "reject wire frames larger than this many bytes")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		logger.Error("failed to bind flags to config", zap.Error(err))
		return err
	}

	return nil
}
