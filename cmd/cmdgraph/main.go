// Command cmdgraph compiles command files into a DeclareCommands graph and
// serves the result to game servers and tooling.
//
//	cmdgraph serve --config configs/commands.yaml
//	cmdgraph dump --format hex
//	cmdgraph validate --config configs/commands.hcl
//
// Settings come from the environment (CMDGRAPH_ADDR, CMDGRAPH_CONFIG,
// CMDGRAPH_LOG_LEVEL, CMDGRAPH_RELOAD_PER_MINUTE, CMDGRAPH_QUEUE_DEPTH) or an
// optional .env file; flags override both.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/config"
)

// Populated by ldflags.
var version = "dev"

// app carries state shared by every subcommand once settings are resolved.
type app struct {
	settings *config.Settings
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	a := &app{}
	var configPath, logLevel string

	rootCmd := &cobra.Command{
		Use:          "cmdgraph",
		Short:        "Build and serve Minecraft command graphs",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("config") {
				s.ConfigPath = configPath
			}
			if cmd.Flags().Changed("log-level") {
				s.LogLevel = logLevel
			}
			a.settings = s
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: s.Level()})))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the command file (.yaml or .hcl)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		buildServeCmd(a),
		buildDumpCmd(a),
		buildValidateCmd(a),
	)
	return rootCmd
}

// loadCommandSet reads and validates the configured command file.
func (a *app) loadCommandSet() (*config.Loader, error) {
	loader, err := config.NewLoader(a.settings.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(loader.Config()); err != nil {
		return nil, fmt.Errorf("%s: %w", a.settings.ConfigPath, err)
	}
	return loader, nil
}
