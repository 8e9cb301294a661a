package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/mcporch"
)

const interactiveHelp = `Commands:
  tools                      list tools on every connected server
  resources                  list resources on every connected server
  call <server> <tool> [js]  invoke a tool; js is a JSON arguments object
  read <server> <uri>        read a resource
  status                     show connection status
  reconnect <server>         re-establish one server connection
  help                       show this help
  quit                       exit`

// runInteractive drives a simple REPL against the orchestrator.
func runInteractive(ctx context.Context, orch *mcporch.Orchestrator, logger *slog.Logger) error {
	fmt.Println("Interactive mode. Type 'help' for commands, 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, rest := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Println(interactiveHelp)
		case "status":
			printStatus(orch)
		case "tools":
			tools, degraded := orch.ListAllTools(ctx)
			if err := printJSON(tools); err != nil {
				fmt.Println("error:", err)
			}
			warnDegraded(degraded)
		case "resources":
			resources, degraded := orch.ListAllResources(ctx)
			if err := printJSON(resources); err != nil {
				fmt.Println("error:", err)
			}
			warnDegraded(degraded)
		case "call":
			if len(rest) < 2 {
				fmt.Println("usage: call <server> <tool> [json-args]")
				continue
			}
			var args map[string]any
			if len(rest) > 2 {
				raw := strings.Join(rest[2:], " ")
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					fmt.Println("invalid arguments:", err)
					continue
				}
			}
			result, err := orch.CallTool(ctx, rest[0], rest[1], args)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if err := printJSON(result); err != nil {
				fmt.Println("error:", err)
			}
		case "read":
			if len(rest) != 2 {
				fmt.Println("usage: read <server> <uri>")
				continue
			}
			content, err := orch.ReadResource(ctx, rest[0], rest[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if err := printJSON(content); err != nil {
				fmt.Println("error:", err)
			}
		case "reconnect":
			if len(rest) != 1 {
				fmt.Println("usage: reconnect <server>")
				continue
			}
			if err := orch.Reconnect(ctx, rest[0]); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("reconnected", rest[0])
		default:
			fmt.Printf("unknown command %q, type 'help'\n", cmd)
		}
	}
}
