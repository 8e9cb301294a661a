package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/completion"
	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/mcpconfig"
	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/rpcserver"
)

func newListToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools",
		Short: "List tools exposed by every connected server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			orch, err := connectOrchestrator(ctx, logger)
			if err != nil {
				return err
			}
			defer orch.Shutdown()

			tools, degraded := orch.ListAllTools(ctx)
			if err := printJSON(tools); err != nil {
				return err
			}
			warnDegraded(degraded)
			return nil
		},
	}
}

func newListResourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-resources",
		Short: "List resources exposed by every connected server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			orch, err := connectOrchestrator(ctx, logger)
			if err != nil {
				return err
			}
			defer orch.Shutdown()

			resources, degraded := orch.ListAllResources(ctx)
			if err := printJSON(resources); err != nil {
				return err
			}
			warnDegraded(degraded)
			return nil
		},
	}
}

func newCallToolCmd() *cobra.Command {
	var (
		server   string
		tool     string
		argsJSON string
	)
	cmd := &cobra.Command{
		Use:   "call-tool",
		Short: "Invoke a tool on a specific server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var toolArgs map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("parse --args: %w", err)
				}
			}

			logger := newLogger()
			orch, err := connectOrchestrator(ctx, logger)
			if err != nil {
				return err
			}
			defer orch.Shutdown()

			result, err := orch.CallTool(ctx, server, tool, toolArgs)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "", "server name")
	cmd.Flags().StringVarP(&tool, "tool", "t", "", "tool name")
	cmd.Flags().StringVarP(&argsJSON, "args", "a", "", "tool arguments as JSON")
	cmd.MarkFlagRequired("server")
	cmd.MarkFlagRequired("tool")
	return cmd
}

func newReadResourceCmd() *cobra.Command {
	var (
		server string
		uri    string
	)
	cmd := &cobra.Command{
		Use:   "read-resource",
		Short: "Read a resource from a specific server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			orch, err := connectOrchestrator(ctx, logger)
			if err != nil {
				return err
			}
			defer orch.Shutdown()

			content, err := orch.ReadResource(ctx, server, uri)
			if err != nil {
				return err
			}
			return printJSON(content)
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "", "server name")
	cmd.Flags().StringVarP(&uri, "uri", "u", "", "resource URI")
	cmd.MarkFlagRequired("server")
	cmd.MarkFlagRequired("uri")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection status for every configured server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			orch, err := connectOrchestrator(ctx, logger)
			if err != nil {
				return err
			}
			defer orch.Shutdown()
			printStatus(orch)
			return nil
		},
	}
}

func newReconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconnect <server>",
		Short: "Tear down and re-establish one server connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			orch, err := connectOrchestrator(ctx, logger)
			if err != nil {
				return err
			}
			defer orch.Shutdown()

			if err := orch.Reconnect(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Reconnected %s\n", args[0])
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve JSON-RPC on stdio for editor plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			orch, err := connectOrchestrator(ctx, logger)
			if err != nil {
				return err
			}
			defer orch.Shutdown()

			engine := completion.NewEngine(logger)
			engine.AddProvider(completion.NewStaticProvider())

			srv := rpcserver.NewServer(engine, orch, logger)
			return srv.Serve(ctx, os.Stdin, os.Stdout)
		},
	}
}

func newInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session against the configured servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			orch, err := connectOrchestrator(ctx, logger)
			if err != nil {
				return err
			}
			defer orch.Shutdown()
			return runInteractive(ctx, orch, logger)
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a sample server configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("refusing to overwrite existing file %s", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			data, err := json.MarshalIndent(mcpconfig.Sample(), "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote sample configuration to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "output", "o", filepath.Join(".mcphub", "servers.json"), "where to write the sample configuration")
	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func warnDegraded(degraded []string) {
	if len(degraded) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: no response from: %v\n", degraded)
	}
}
