package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"threadstream/internal/app"
	"threadstream/pkg/config"
	"threadstream/pkg/logger"
	"threadstream/pkg/state/shutdown"
)

// set build metadata
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// load .env file if present
	_ = godotenv.Load(".env")

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "threadstream",
		Short:         "Chat thread backend with character-paced assistant replies",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.AddCommand(newServeCmd(), newConfigCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
	}
	flags := config.BindFlags(cmd.Flags())
	cmd.Run = func(cmd *cobra.Command, _ []string) {
		eff, err := config.LoadEffectiveConfig(flags)
		if err != nil {
			shutdown.Abort("invalid configuration", err)
		}

		// initialize logger after config is fully loaded
		logger.Init(eff.Config.Logging.Level)
		defer logger.Sync()

		logger.Info("effective_config_loaded", "source", eff.Source(), "addr", eff.Addr, "config_path", eff.ConfigPath)
		logger.Info("system_logical_cores", "logical_cores", runtime.NumCPU())

		a, err := app.New(eff, version, commit, buildDate)
		if err != nil {
			shutdown.Abort("failed to initialize app", err)
		}

		// set up context and signal handling for graceful shutdown
		ctx, cancel := shutdown.SetupSignalHandler(cmd.Context())
		defer cancel()

		if err := a.Run(ctx); err != nil {
			shutdown.Abort("app run failed", err)
		}
	}
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
	}
	flags := config.BindFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		eff, err := config.LoadEffectiveConfig(flags)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", eff.Source())
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(eff.Config)
	}
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "threadstream %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
