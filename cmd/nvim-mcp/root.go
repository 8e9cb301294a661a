package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/mcpconfig"
	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/mcporch"
)

var (
	flagConfig   string
	flagLogLevel string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nvim-mcp",
		Short: "MCP multi-server client for editor integration",
		Long: `nvim-mcp connects to the MCP servers declared in a configuration file,
routes tool calls and resource reads to them, and serves code completions
over JSON-RPC for editor plugins.

Run without a subcommand to print server status and enter interactive mode.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			orch, err := connectOrchestrator(ctx, logger)
			if err != nil {
				return err
			}
			defer orch.Shutdown()
			printStatus(orch)
			return runInteractive(ctx, orch, logger)
		},
	}

	cmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to MCP server configuration file")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newListToolsCmd())
	cmd.AddCommand(newListResourcesCmd())
	cmd.AddCommand(newCallToolCmd())
	cmd.AddCommand(newReadResourceCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newReconnectCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInteractiveCmd())
	cmd.AddCommand(newInitConfigCmd())

	return cmd
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(flagLogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(logger *slog.Logger) (*mcpconfig.Config, error) {
	loader := mcpconfig.NewLoader(logger)
	if flagConfig != "" {
		return loader.LoadFile(flagConfig)
	}
	return loader.Load()
}

// connectOrchestrator loads configuration, builds the orchestrator, and
// brings up every enabled server. Individual connection failures are
// reported through status, not returned here.
func connectOrchestrator(ctx context.Context, logger *slog.Logger) (*mcporch.Orchestrator, error) {
	cfg, err := loadConfig(logger)
	if err != nil {
		return nil, err
	}
	orch := mcporch.New(cfg,
		mcporch.WithLogger(logger),
		mcporch.WithSessionFactory(mcporch.NewSDKSessionFactory(logger)),
	)
	if err := orch.Initialize(ctx); err != nil {
		return nil, err
	}
	return orch, nil
}

func printStatus(orch *mcporch.Orchestrator) {
	statuses := orch.Status()
	if len(statuses) == 0 {
		fmt.Println("No MCP servers configured.")
		return
	}
	fmt.Println("MCP servers:")
	for _, st := range statuses {
		line := fmt.Sprintf("  %-20s %s", st.Name, st.Status)
		if st.Reason != "" {
			line += " (" + st.Reason + ")"
		}
		fmt.Println(line)
	}
}
