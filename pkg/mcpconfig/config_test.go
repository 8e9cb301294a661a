package mcpconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestServerMapPreservesJSONOrder(t *testing.T) {
	t.Parallel()

	raw := `{
		"zeta":  {"command": "zeta-server"},
		"alpha": {"command": "alpha-server"},
		"mid":   {"url": "https://example.com/mcp"}
	}`

	var m ServerMap
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Names())
	assert.Equal(t, 3, m.Len())
}

func TestServerMapVariantDispatch(t *testing.T) {
	t.Parallel()

	raw := `{
		"local":  {"command": "npx", "args": ["-y", "server"], "env": {"KEY": "v"}},
		"remote": {"url": "https://example.com/mcp", "headers": {"Authorization": "Bearer tok"}}
	}`

	var m ServerMap
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	localCfg, ok := m.Get("local")
	require.True(t, ok)
	local, ok := localCfg.(*LocalServerConfig)
	require.True(t, ok, "command key must produce a local config")
	assert.Equal(t, "npx", local.Command)
	assert.Equal(t, []string{"-y", "server"}, local.Args)
	assert.Equal(t, "v", local.Env["KEY"])

	remoteCfg, ok := m.Get("remote")
	require.True(t, ok)
	remote, ok := remoteCfg.(*RemoteServerConfig)
	require.True(t, ok, "url key must produce a remote config")
	assert.Equal(t, "https://example.com/mcp", remote.URL)
	assert.Equal(t, "Bearer tok", remote.Headers["Authorization"])
}

func TestServerMapRejectsAmbiguousEntry(t *testing.T) {
	t.Parallel()

	var m ServerMap
	err := json.Unmarshal([]byte(`{"broken": {"timeout": 5}}`), &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither command nor url")
}

func TestServerMapMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	var m ServerMap
	m.Set("b", &LocalServerConfig{Command: "b-server"})
	m.Set("a", &RemoteServerConfig{URL: "https://a.example.com"})

	data, err := json.Marshal(&m)
	require.NoError(t, err)

	var back ServerMap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"b", "a"}, back.Names())
}

func TestServerMapYAML(t *testing.T) {
	t.Parallel()

	raw := `
first:
  command: npx
  args: ["-y", "server"]
second:
  url: https://example.com/mcp
  disabled: true
`
	var m ServerMap
	require.NoError(t, yaml.Unmarshal([]byte(raw), &m))
	assert.Equal(t, []string{"first", "second"}, m.Names())

	second, _ := m.Get("second")
	assert.True(t, second.IsDisabled())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.Servers.Set("ok", &LocalServerConfig{Command: "srv"})
	require.NoError(t, cfg.Validate())

	cfg.Servers.Set("empty", &LocalServerConfig{})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty command")

	var cfg2 Config
	cfg2.Servers.Set("bad-url", &RemoteServerConfig{URL: "ftp://example.com"})
	err = cfg2.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestConfigValidateCoversDisabledServers(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.Servers.Set("off-and-broken", &LocalServerConfig{Disabled: true})
	assert.Error(t, cfg.Validate(), "disabled servers are validated too")
}

func TestEnabledNames(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.Servers.Set("a", &LocalServerConfig{Command: "a"})
	cfg.Servers.Set("b", &LocalServerConfig{Command: "b", Disabled: true})
	cfg.Servers.Set("c", &RemoteServerConfig{URL: "https://c.example.com"})

	assert.Equal(t, []string{"a", "c"}, cfg.EnabledNames())
}

func TestSampleIsValid(t *testing.T) {
	t.Parallel()

	cfg := Sample()
	require.NoError(t, cfg.Validate())
	assert.Greater(t, cfg.Servers.Len(), 0)
	assert.NotContains(t, cfg.EnabledNames(), "github", "the remote sample ships disabled")
}
