package mcporch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/mcpconfig"
)

type fakeSession struct {
	mu            sync.Mutex
	tools         []Tool
	resources     []Resource
	listToolsErr  error
	callResult    *ToolResult
	callErr       error
	content       *ResourceContent
	readErr       error
	disconnects   int
	disconnectErr error

	lastTool string
	lastArgs map[string]any
	lastURI  string
}

func (f *fakeSession) ListTools(ctx context.Context) ([]Tool, error) {
	return f.tools, f.listToolsErr
}

func (f *fakeSession) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	f.mu.Lock()
	f.lastTool = name
	f.lastArgs = args
	f.mu.Unlock()
	return f.callResult, f.callErr
}

func (f *fakeSession) ListResources(ctx context.Context) ([]Resource, error) {
	return f.resources, nil
}

func (f *fakeSession) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	f.mu.Lock()
	f.lastURI = uri
	f.mu.Unlock()
	return f.content, f.readErr
}

func (f *fakeSession) Disconnect() error {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	return f.disconnectErr
}

func localConfig(command string) *mcpconfig.LocalServerConfig {
	return &mcpconfig.LocalServerConfig{Command: command}
}

func disabledConfig(command string) *mcpconfig.LocalServerConfig {
	cfg := localConfig(command)
	cfg.Disabled = true
	return cfg
}

func testConfig(names ...string) *mcpconfig.Config {
	cfg := &mcpconfig.Config{}
	for _, name := range names {
		cfg.Servers.Set(name, localConfig("true"))
	}
	return cfg
}

// factoryFor returns a factory serving sessions from a fixed map. Names
// mapped to nil fail to connect.
func factoryFor(sessions map[string]*fakeSession) SessionFactory {
	return func(ctx context.Context, name string, cfg mcpconfig.ServerConfig) (Session, error) {
		s, ok := sessions[name]
		if !ok || s == nil {
			return nil, fmt.Errorf("dial %s: connection refused", name)
		}
		return s, nil
	}
}

func statusOf(t *testing.T, o *Orchestrator, name string) ServerStatus {
	t.Helper()
	for _, st := range o.Status() {
		if st.Name == name {
			return st
		}
	}
	t.Fatalf("no status entry for %s", name)
	return ServerStatus{}
}

func TestInitializeSeedsEnabledServersInOrder(t *testing.T) {
	t.Parallel()

	cfg := &mcpconfig.Config{}
	cfg.Servers.Set("alpha", localConfig("true"))
	cfg.Servers.Set("beta", disabledConfig("true"))
	cfg.Servers.Set("gamma", localConfig("true"))

	sessions := map[string]*fakeSession{"alpha": {}, "gamma": {}}
	o := New(cfg, WithSessionFactory(factoryFor(sessions)))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	if got, want := o.Servers(), []string{"alpha", "gamma"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Servers() = %v, expected %v", got, want)
	}
	for _, name := range []string{"alpha", "gamma"} {
		if st := statusOf(t, o, name); st.Status != StatusConnected {
			t.Fatalf("%s status = %s, expected connected", name, st.Status)
		}
	}
}

func TestConnectAllMixedOutcomesAllSettle(t *testing.T) {
	t.Parallel()

	cfg := testConfig("good", "bad", "also-good")
	sessions := map[string]*fakeSession{"good": {}, "also-good": {}}
	o := New(cfg, WithSessionFactory(factoryFor(sessions)))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	if st := statusOf(t, o, "good"); st.Status != StatusConnected {
		t.Fatalf("good status = %s", st.Status)
	}
	bad := statusOf(t, o, "bad")
	if bad.Status != StatusFailed {
		t.Fatalf("bad status = %s, expected failed", bad.Status)
	}
	if bad.Reason == "" {
		t.Fatalf("failed server should record a reason")
	}
	if st := statusOf(t, o, "also-good"); st.Status != StatusConnected {
		t.Fatalf("also-good status = %s", st.Status)
	}
}

func TestConnectAllIsolatesFactoryPanic(t *testing.T) {
	t.Parallel()

	cfg := testConfig("panicky", "steady")
	steady := &fakeSession{}
	factory := func(ctx context.Context, name string, _ mcpconfig.ServerConfig) (Session, error) {
		if name == "panicky" {
			panic("boom")
		}
		return steady, nil
	}

	o := New(cfg, WithSessionFactory(factory))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	st := statusOf(t, o, "panicky")
	if st.Status != StatusFailed {
		t.Fatalf("panicky status = %s, expected failed", st.Status)
	}
	if st.Reason == "" {
		t.Fatalf("panic should surface as the failure reason")
	}
	if st := statusOf(t, o, "steady"); st.Status != StatusConnected {
		t.Fatalf("steady status = %s, panic should not affect other servers", st.Status)
	}
}

func TestCallToolRouting(t *testing.T) {
	t.Parallel()

	cfg := testConfig("up", "down")
	up := &fakeSession{callResult: &ToolResult{Content: []ToolResultContent{{Type: "text", Text: "ok"}}}}
	sessions := map[string]*fakeSession{"up": up}
	o := New(cfg, WithSessionFactory(factoryFor(sessions)))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	result, err := o.CallTool(context.Background(), "up", "echo", map[string]any{"msg": "hi"})
	if err != nil {
		t.Fatalf("CallTool(up) = %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "ok" {
		t.Fatalf("unexpected tool result: %#v", result)
	}
	if up.lastTool != "echo" || up.lastArgs["msg"] != "hi" {
		t.Fatalf("call not forwarded: tool=%s args=%v", up.lastTool, up.lastArgs)
	}

	if _, err := o.CallTool(context.Background(), "missing", "echo", nil); !errors.Is(err, ErrServerNotFound) {
		t.Fatalf("CallTool(missing) = %v, expected ErrServerNotFound", err)
	}
	if _, err := o.CallTool(context.Background(), "down", "echo", nil); !errors.Is(err, ErrServerNotConnected) {
		t.Fatalf("CallTool(down) = %v, expected ErrServerNotConnected", err)
	}
}

func TestCallToolSessionErrorPropagates(t *testing.T) {
	t.Parallel()

	cfg := testConfig("flaky")
	callErr := errors.New("tool exploded")
	sessions := map[string]*fakeSession{"flaky": {callErr: callErr}}
	o := New(cfg, WithSessionFactory(factoryFor(sessions)))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	if _, err := o.CallTool(context.Background(), "flaky", "x", nil); !errors.Is(err, callErr) {
		t.Fatalf("CallTool(flaky) = %v, expected session error", err)
	}
	if st := statusOf(t, o, "flaky"); st.Status != StatusConnected {
		t.Fatalf("a tool error must not change connection status, got %s", st.Status)
	}
}

func TestReadResourceRouting(t *testing.T) {
	t.Parallel()

	cfg := testConfig("files")
	content := &ResourceContent{URI: "file:///tmp/a.txt", MIMEType: "text/plain", Text: "hello"}
	files := &fakeSession{content: content}
	o := New(cfg, WithSessionFactory(factoryFor(map[string]*fakeSession{"files": files})))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	got, err := o.ReadResource(context.Background(), "files", "file:///tmp/a.txt")
	if err != nil {
		t.Fatalf("ReadResource() = %v", err)
	}
	if got.Text != "hello" || files.lastURI != "file:///tmp/a.txt" {
		t.Fatalf("resource not routed: %#v (uri seen: %s)", got, files.lastURI)
	}
}

func TestListAllToolsPartialAggregation(t *testing.T) {
	t.Parallel()

	cfg := testConfig("ok", "broken", "never-up")
	okSession := &fakeSession{tools: []Tool{{Name: "search"}}}
	broken := &fakeSession{listToolsErr: errors.New("list failed")}
	sessions := map[string]*fakeSession{"ok": okSession, "broken": broken}
	o := New(cfg, WithSessionFactory(factoryFor(sessions)))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	tools, degraded := o.ListAllTools(context.Background())
	if len(tools) != 1 {
		t.Fatalf("expected one healthy server in listing, got %v", tools)
	}
	if tools["ok"][0].Name != "search" {
		t.Fatalf("tool list mismatch: %v", tools["ok"])
	}
	// "broken" errored during discovery; "never-up" was excluded before it.
	if !reflect.DeepEqual(degraded, []string{"broken"}) {
		t.Fatalf("degraded = %v, expected [broken]", degraded)
	}
}

func TestReconnectFailureRecordsAndDetaches(t *testing.T) {
	t.Parallel()

	cfg := testConfig("srv")
	first := &fakeSession{}
	connects := 0
	factory := func(ctx context.Context, name string, _ mcpconfig.ServerConfig) (Session, error) {
		connects++
		if connects == 1 {
			return first, nil
		}
		return nil, errors.New("gone away")
	}
	o := New(cfg, WithSessionFactory(factory))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	err := o.Reconnect(context.Background(), "srv")
	if err == nil || err.Error() != "gone away" {
		t.Fatalf("Reconnect() = %v, expected factory error", err)
	}
	if first.disconnects != 1 {
		t.Fatalf("old session disconnects = %d, expected 1", first.disconnects)
	}
	st := statusOf(t, o, "srv")
	if st.Status != StatusFailed || st.Reason != "gone away" {
		t.Fatalf("status after failed reconnect = %+v", st)
	}
	if _, err := o.CallTool(context.Background(), "srv", "x", nil); !errors.Is(err, ErrServerNotConnected) {
		t.Fatalf("stale session must not serve calls, got %v", err)
	}
}

func TestReconnectRecoversFailedServer(t *testing.T) {
	t.Parallel()

	cfg := testConfig("srv")
	session := &fakeSession{}
	connects := 0
	factory := func(ctx context.Context, name string, _ mcpconfig.ServerConfig) (Session, error) {
		connects++
		if connects == 1 {
			return nil, errors.New("initial refusal")
		}
		return session, nil
	}
	o := New(cfg, WithSessionFactory(factory))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	if st := statusOf(t, o, "srv"); st.Status != StatusFailed {
		t.Fatalf("precondition: status = %s", st.Status)
	}

	if err := o.Reconnect(context.Background(), "srv"); err != nil {
		t.Fatalf("Reconnect() = %v", err)
	}
	st := statusOf(t, o, "srv")
	if st.Status != StatusConnected || st.Reason != "" {
		t.Fatalf("status after reconnect = %+v", st)
	}
}

func TestReconnectUnknownServer(t *testing.T) {
	t.Parallel()

	o := New(testConfig("srv"), WithSessionFactory(factoryFor(map[string]*fakeSession{"srv": {}})))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	if err := o.Reconnect(context.Background(), "nope"); !errors.Is(err, ErrServerNotFound) {
		t.Fatalf("Reconnect(nope) = %v, expected ErrServerNotFound", err)
	}
}

func TestShutdownNormalizesStatuses(t *testing.T) {
	t.Parallel()

	cfg := testConfig("up", "down")
	up := &fakeSession{disconnectErr: errors.New("already closed")}
	o := New(cfg, WithSessionFactory(factoryFor(map[string]*fakeSession{"up": up})))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	o.Shutdown()

	for _, st := range o.Status() {
		if st.Status != StatusDisconnected || st.Reason != "" {
			t.Fatalf("after shutdown %s = %+v, expected clean disconnected", st.Name, st)
		}
	}
	if up.disconnects != 1 {
		t.Fatalf("disconnects = %d, expected 1", up.disconnects)
	}

	// Idempotent: a second shutdown must not touch the session again.
	o.Shutdown()
	if up.disconnects != 1 {
		t.Fatalf("second shutdown disconnected again: %d", up.disconnects)
	}
}

func TestConnectAllAfterShutdownReconnects(t *testing.T) {
	t.Parallel()

	cfg := testConfig("srv")
	o := New(cfg, WithSessionFactory(factoryFor(map[string]*fakeSession{"srv": {}})))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	o.Shutdown()

	o.ConnectAll(context.Background())
	if st := statusOf(t, o, "srv"); st.Status != StatusConnected {
		t.Fatalf("status after reconnect cycle = %s", st.Status)
	}
}

func TestStatusSnapshotOrder(t *testing.T) {
	t.Parallel()

	cfg := testConfig("c", "a", "b")
	sessions := map[string]*fakeSession{"c": {}, "a": {}, "b": {}}
	o := New(cfg, WithSessionFactory(factoryFor(sessions)))
	if err := o.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	var names []string
	for _, st := range o.Status() {
		names = append(names, st.Name)
	}
	if !reflect.DeepEqual(names, []string{"c", "a", "b"}) {
		t.Fatalf("status order = %v, expected configuration order", names)
	}
}
