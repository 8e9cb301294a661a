package mcpconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig is implemented by all transport-specific server configurations.
// Exactly one variant applies to each configured server: LocalServerConfig for
// stdio child processes and RemoteServerConfig for HTTP endpoints.
type ServerConfig interface {
	IsDisabled() bool
	validate(name string) error
}

// LocalServerConfig describes an MCP server launched as a child process and
// spoken to over stdio.
type LocalServerConfig struct {
	Command  string            `json:"command" yaml:"command"`
	Args     []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env      map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Disabled bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

func (c *LocalServerConfig) IsDisabled() bool { return c.Disabled }

func (c *LocalServerConfig) validate(name string) error {
	if c.Command == "" {
		return fmt.Errorf("mcpconfig: server %q has empty command", name)
	}
	return nil
}

// LookupCommand reports whether the configured command resolves on PATH. A
// missing command is not a validation failure; the spawn attempt surfaces the
// real error later.
func (c *LocalServerConfig) LookupCommand() error {
	_, err := exec.LookPath(c.Command)
	return err
}

// RemoteServerConfig describes an MCP server reachable over HTTP. Headers are
// attached verbatim to every outbound request.
type RemoteServerConfig struct {
	URL      string            `json:"url" yaml:"url"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Disabled bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

func (c *RemoteServerConfig) IsDisabled() bool { return c.Disabled }

func (c *RemoteServerConfig) validate(name string) error {
	if c.URL == "" {
		return fmt.Errorf("mcpconfig: server %q has empty URL", name)
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("mcpconfig: server %q has invalid URL: %s", name, c.URL)
	}
	return nil
}

// ServerMap is an insertion-ordered mapping from server name to its
// configuration. Iteration order matches the order servers appeared in the
// configuration file so user-facing listings stay deterministic.
type ServerMap struct {
	names   []string
	entries map[string]ServerConfig
}

// Names returns the server names in insertion order.
func (m *ServerMap) Names() []string {
	return append([]string(nil), m.names...)
}

// Get returns the configuration for a named server.
func (m *ServerMap) Get(name string) (ServerConfig, bool) {
	cfg, ok := m.entries[name]
	return cfg, ok
}

// Set inserts or replaces a server configuration. First insertion fixes the
// server's position in iteration order.
func (m *ServerMap) Set(name string, cfg ServerConfig) {
	if m.entries == nil {
		m.entries = make(map[string]ServerConfig)
	}
	if _, ok := m.entries[name]; !ok {
		m.names = append(m.names, name)
	}
	m.entries[name] = cfg
}

// Len returns the number of configured servers.
func (m *ServerMap) Len() int { return len(m.names) }

// UnmarshalJSON decodes the object with the token stream so the original key
// order survives, unlike a plain map decode.
func (m *ServerMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("mcpconfig: expected object of servers, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("mcpconfig: expected server name, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		cfg, err := parseServerConfig(name, raw)
		if err != nil {
			return err
		}
		m.Set(name, cfg)
	}
	return nil
}

// MarshalJSON emits the servers as an object in insertion order.
func (m *ServerMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.entries[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping node, which already preserves key order.
func (m *ServerMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("mcpconfig: expected mapping of servers, got yaml kind %d", node.Kind)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		value := node.Content[i+1]
		cfg, err := parseServerConfigYAML(name, value)
		if err != nil {
			return err
		}
		m.Set(name, cfg)
	}
	return nil
}

// parseServerConfig picks the config variant by probing for the discriminating
// key: "command" means local, "url" means remote.
func parseServerConfig(name string, raw json.RawMessage) (ServerConfig, error) {
	var probe struct {
		Command *string `json:"command"`
		URL     *string `json:"url"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("mcpconfig: server %q: %w", name, err)
	}
	switch {
	case probe.Command != nil:
		var cfg LocalServerConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("mcpconfig: server %q: %w", name, err)
		}
		return &cfg, nil
	case probe.URL != nil:
		var cfg RemoteServerConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("mcpconfig: server %q: %w", name, err)
		}
		return &cfg, nil
	default:
		return nil, fmt.Errorf("mcpconfig: server %q has neither command nor url", name)
	}
}

func parseServerConfigYAML(name string, node *yaml.Node) (ServerConfig, error) {
	var probe struct {
		Command *string `yaml:"command"`
		URL     *string `yaml:"url"`
	}
	if err := node.Decode(&probe); err != nil {
		return nil, fmt.Errorf("mcpconfig: server %q: %w", name, err)
	}
	switch {
	case probe.Command != nil:
		var cfg LocalServerConfig
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("mcpconfig: server %q: %w", name, err)
		}
		return &cfg, nil
	case probe.URL != nil:
		var cfg RemoteServerConfig
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("mcpconfig: server %q: %w", name, err)
		}
		return &cfg, nil
	default:
		return nil, fmt.Errorf("mcpconfig: server %q has neither command nor url", name)
	}
}

// Config is the top-level MCP server configuration, compatible with the
// formats used by MCPHub, VS Code, Claude Desktop, and Cursor.
type Config struct {
	Servers ServerMap `json:"mcpServers" yaml:"mcpServers"`
}

// Validate checks every configured server, enabled or not. Local servers must
// name a command; remote servers must carry an http(s) URL.
func (c *Config) Validate() error {
	for _, name := range c.Servers.names {
		if err := c.Servers.entries[name].validate(name); err != nil {
			return err
		}
	}
	return nil
}

// EnabledNames returns the names of servers not marked disabled, in insertion
// order.
func (c *Config) EnabledNames() []string {
	var names []string
	for _, name := range c.Servers.names {
		if !c.Servers.entries[name].IsDisabled() {
			names = append(names, name)
		}
	}
	return names
}

// Sample returns a starter configuration for init-config.
func Sample() *Config {
	var cfg Config
	cfg.Servers.Set("filesystem", &LocalServerConfig{
		Command: "npx",
		Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"},
	})
	cfg.Servers.Set("fetch", &LocalServerConfig{
		Command: "uvx",
		Args:    []string{"mcp-server-fetch"},
	})
	cfg.Servers.Set("github", &RemoteServerConfig{
		URL: "https://api.githubcopilot.com/mcp/",
		Headers: map[string]string{
			"Authorization": "Bearer ${env:GITHUB_PERSONAL_ACCESS_TOKEN}",
		},
		Disabled: true,
	})
	return &cfg
}
