package mcpconfig

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{env:([^}]+)\}`)

// Loader discovers and parses MCP server configuration files. The default
// search paths mirror the locations used by MCPHub, VS Code, Cursor, and
// Claude Desktop so existing configurations work unchanged.
type Loader struct {
	searchPaths []string
	logger      *slog.Logger
}

// NewLoader builds a Loader with the default search paths.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		searchPaths: defaultSearchPaths(),
		logger:      logger,
	}
}

func defaultSearchPaths() []string {
	paths := []string{
		filepath.Join(".mcphub", "servers.json"),
		filepath.Join(".mcphub", "servers.yaml"),
		filepath.Join(".vscode", "mcp.json"),
		filepath.Join(".cursor", "mcp.json"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "mcphub", "servers.json"),
			filepath.Join(home, ".config", "mcphub", "servers.yaml"),
			filepath.Join(home, ".config", "mcp", "servers.json"),
			filepath.Join(home, "mcp", "servers.json"),
		)
		if runtime.GOOS == "darwin" {
			paths = append(paths, filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"))
		}
	}
	return paths
}

// AddSearchPath appends a custom path to the search list.
func (l *Loader) AddSearchPath(path string) {
	l.searchPaths = append(l.searchPaths, path)
}

// Load returns the configuration from the first search path that exists. No
// configuration file at all yields an empty Config, not an error.
func (l *Loader) Load() (*Config, error) {
	for _, path := range l.searchPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		l.logger.Info("loading MCP config", "path", path)
		return l.LoadFile(path)
	}
	l.logger.Warn("no MCP configuration found in search paths")
	return &Config{}, nil
}

// LoadFile parses the configuration at path. Both the MCPHub/Claude Desktop
// layout ("mcpServers") and the VS Code layout ("servers") are accepted, as
// JSON or YAML.
func (l *Loader) LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mcpconfig: read config file %s: %w", path, err)
	}
	expanded := l.expandVariables(string(content))

	var doc struct {
		MCPServers *ServerMap `json:"mcpServers" yaml:"mcpServers"`
		Servers    *ServerMap `json:"servers" yaml:"servers"`
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
			return nil, fmt.Errorf("mcpconfig: parse config file %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal([]byte(expanded), &doc); err != nil {
			return nil, fmt.Errorf("mcpconfig: parse config file %s: %w", path, err)
		}
	}

	switch {
	case doc.MCPServers != nil:
		return &Config{Servers: *doc.MCPServers}, nil
	case doc.Servers != nil:
		return &Config{Servers: *doc.Servers}, nil
	default:
		return nil, fmt.Errorf("mcpconfig: config file %s has no mcpServers or servers section", path)
	}
}

// expandVariables substitutes ${env:NAME} references and home-relative paths
// before parsing, so expanded values flow into every config format alike.
func (l *Loader) expandVariables(content string) string {
	expanded := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		value, ok := os.LookupEnv(name)
		if !ok {
			l.logger.Warn("environment variable not found", "name", name)
		}
		return value
	})
	if home, err := os.UserHomeDir(); err == nil {
		expanded = strings.ReplaceAll(expanded, `"~/`, `"`+home+`/`)
	}
	return expanded
}
