// Command loom runs the event orchestrator described by a configuration
// document.
//
//	loom run config.yaml     start the orchestrator
//	loom config.yaml         same as run
//	loom validate config.yaml  check the document and exit
//	loom version             print the version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eventloom/eventloom"
)

func main() {
	viper.SetEnvPrefix("LOOM")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	setupLogging()

	root := &cobra.Command{
		Use:           "loom [config]",
		Short:         "Declarative config-driven event orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runOrchestrator(cmd.Context(), args[0])
		},
	}
	root.AddCommand(newRunCmd(), newValidateCmd(), newVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("loom failed", "error", err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog handler. LOOM_LOG picks the
// level; anything unrecognized falls back to info.
func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(viper.GetString("log")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the loom version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "loom %s\n", eventloom.Version)
		},
	}
}
