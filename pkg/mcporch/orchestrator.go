package mcporch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nvim-mcp/nvim-mcp-client-go/pkg/mcpconfig"
)

// ConnectionStatus represents the lifecycle of a managed server connection.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusFailed       ConnectionStatus = "failed"
)

// Routed operations fail with these sentinels when the target server cannot
// serve the call. Session errors propagate unwrapped alongside them.
var (
	ErrServerNotFound     = errors.New("server not found")
	ErrServerNotConnected = errors.New("server not connected")
)

// ServerStatus is one entry of a status snapshot. Reason carries the last
// failure message when Status is StatusFailed.
type ServerStatus struct {
	Name   string           `json:"name"`
	Status ConnectionStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

// SessionFactory produces a Session for a named server configuration. The
// default factory dials real MCP servers via the go-sdk; tests substitute
// fakes through WithSessionFactory.
type SessionFactory func(ctx context.Context, name string, cfg mcpconfig.ServerConfig) (Session, error)

type serverEntry struct {
	name    string
	config  mcpconfig.ServerConfig
	status  ConnectionStatus
	reason  string
	session Session
}

// Orchestrator owns every configured server entry and routes or aggregates
// operations across them. Entries are seeded once from configuration and live
// for the orchestrator's whole lifetime; sessions come and go as servers
// connect, fail, and reconnect.
type Orchestrator struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*serverEntry

	config  *mcpconfig.Config
	factory SessionFactory
	logger  *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSessionFactory overrides how sessions are acquired.
func WithSessionFactory(factory SessionFactory) Option {
	return func(o *Orchestrator) { o.factory = factory }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New builds an Orchestrator for the given configuration. Call Initialize to
// validate the configuration, seed the server entries, and connect.
func New(cfg *mcpconfig.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		entries: make(map[string]*serverEntry),
		config:  cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.factory == nil {
		o.factory = NewSDKSessionFactory(o.logger)
	}
	return o
}

// Initialize validates the configuration, seeds one entry per enabled server
// in configuration order, and connects to all of them concurrently. Partial
// connectivity is a normal operating state: Initialize fails only on invalid
// configuration, never because individual servers refused to come up.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.logger.Info("initializing orchestrator", "servers", o.config.Servers.Len())

	if err := o.config.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	for _, name := range o.config.EnabledNames() {
		if _, ok := o.entries[name]; ok {
			continue
		}
		cfg, _ := o.config.Servers.Get(name)
		if local, ok := cfg.(*mcpconfig.LocalServerConfig); ok {
			if err := local.LookupCommand(); err != nil {
				o.logger.Warn("command not found in PATH", "server", name, "command", local.Command)
			}
		}
		o.entries[name] = &serverEntry{
			name:   name,
			config: cfg,
			status: StatusDisconnected,
		}
		o.order = append(o.order, name)
	}
	o.mu.Unlock()

	o.ConnectAll(ctx)
	o.logger.Info("orchestrator initialization complete")
	return nil
}

// ConnectAll attempts to connect every currently disconnected server, one
// concurrent acquisition per server. Each server settles in StatusConnected or
// StatusFailed before ConnectAll returns; no single failure aborts the batch.
// Acquisitions have no built-in deadline, so callers needing bounded startup
// latency must pass a context with one.
func (o *Orchestrator) ConnectAll(ctx context.Context) {
	type pending struct {
		name string
		cfg  mcpconfig.ServerConfig
	}
	o.mu.Lock()
	var batch []pending
	for _, name := range o.order {
		entry := o.entries[name]
		if entry.status != StatusDisconnected {
			continue
		}
		entry.status = StatusConnecting
		entry.reason = ""
		batch = append(batch, pending{name: name, cfg: entry.config})
	}
	o.mu.Unlock()

	type outcome struct {
		name    string
		session Session
		err     error
	}
	results := make(chan outcome, len(batch))
	var wg sync.WaitGroup
	for _, p := range batch {
		wg.Add(1)
		go func(p pending) {
			defer wg.Done()
			session, err := o.acquire(ctx, p.name, p.cfg)
			results <- outcome{name: p.name, session: session, err: err}
		}(p)
	}
	wg.Wait()
	close(results)

	o.mu.Lock()
	defer o.mu.Unlock()
	for res := range results {
		entry := o.entries[res.name]
		if res.err != nil {
			entry.status = StatusFailed
			entry.reason = res.err.Error()
			o.logger.Error("failed to connect to MCP server", "server", res.name, "error", res.err)
			continue
		}
		entry.session = res.session
		entry.status = StatusConnected
		o.logger.Info("connected to MCP server", "server", res.name)
	}
}

// acquire runs the session factory with panic isolation so one misbehaving
// acquisition cannot take down the whole connect batch.
func (o *Orchestrator) acquire(ctx context.Context, name string, cfg mcpconfig.ServerConfig) (session Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			session = nil
			err = fmt.Errorf("mcporch: connect task for %q panicked: %v", name, r)
		}
	}()
	return o.factory(ctx, name, cfg)
}

// ListAllTools gathers tool lists from every connected server concurrently.
// A server that errors during discovery is omitted from the result and named
// in the degraded slice; callers that only want the silent-omission projection
// can ignore the second value.
func (o *Orchestrator) ListAllTools(ctx context.Context) (map[string][]Tool, []string) {
	targets := o.connectedTargets()

	tools := make([][]Tool, len(targets))
	failed := make([]bool, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			list, err := t.session.ListTools(ctx)
			if err != nil {
				o.logger.Warn("failed to list tools", "server", t.name, "error", err)
				failed[i] = true
				return nil
			}
			tools[i] = list
			return nil
		})
	}
	_ = g.Wait()

	result := make(map[string][]Tool)
	var degraded []string
	for i, t := range targets {
		if failed[i] {
			degraded = append(degraded, t.name)
			continue
		}
		result[t.name] = tools[i]
	}
	return result, degraded
}

// ListAllResources gathers resource lists from every connected server
// concurrently, with the same best-effort semantics as ListAllTools.
func (o *Orchestrator) ListAllResources(ctx context.Context) (map[string][]Resource, []string) {
	targets := o.connectedTargets()

	resources := make([][]Resource, len(targets))
	failed := make([]bool, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			list, err := t.session.ListResources(ctx)
			if err != nil {
				o.logger.Warn("failed to list resources", "server", t.name, "error", err)
				failed[i] = true
				return nil
			}
			resources[i] = list
			return nil
		})
	}
	_ = g.Wait()

	result := make(map[string][]Resource)
	var degraded []string
	for i, t := range targets {
		if failed[i] {
			degraded = append(degraded, t.name)
			continue
		}
		result[t.name] = resources[i]
	}
	return result, degraded
}

type sessionTarget struct {
	name    string
	session Session
}

func (o *Orchestrator) connectedTargets() []sessionTarget {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var targets []sessionTarget
	for _, name := range o.order {
		entry := o.entries[name]
		if entry.status == StatusConnected && entry.session != nil {
			targets = append(targets, sessionTarget{name: name, session: entry.session})
		}
	}
	return targets
}

// CallTool invokes a tool on one named server. Unlike the aggregate listings,
// routed calls surface their errors: ErrServerNotFound for unknown names,
// ErrServerNotConnected when the server is not connected, and the session's
// own error otherwise.
func (o *Orchestrator) CallTool(ctx context.Context, server, tool string, args map[string]any) (*ToolResult, error) {
	session, err := o.connectedSession(server)
	if err != nil {
		return nil, err
	}
	return session.CallTool(ctx, tool, args)
}

// ReadResource reads a resource from one named server, with the same error
// semantics as CallTool.
func (o *Orchestrator) ReadResource(ctx context.Context, server, uri string) (*ResourceContent, error) {
	session, err := o.connectedSession(server)
	if err != nil {
		return nil, err
	}
	return session.ReadResource(ctx, uri)
}

// connectedSession snapshots one entry's session. A routed call racing a
// Reconnect or Shutdown on the same server may observe ErrServerNotConnected
// while a connection attempt is in flight; that race is accepted, callers
// retry or consult Status.
func (o *Orchestrator) connectedSession(name string) (Session, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entry, ok := o.entries[name]
	if !ok {
		return nil, fmt.Errorf("mcporch: server %q: %w", name, ErrServerNotFound)
	}
	if entry.status != StatusConnected || entry.session == nil {
		return nil, fmt.Errorf("mcporch: server %q: %w", name, ErrServerNotConnected)
	}
	return entry.session, nil
}

// Reconnect tears down any existing session for the named server and acquires
// a fresh one. The teardown is best-effort; the acquisition result is recorded
// in the entry's status and, unlike ConnectAll, also returned to the caller.
func (o *Orchestrator) Reconnect(ctx context.Context, name string) error {
	o.mu.Lock()
	entry, ok := o.entries[name]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("mcporch: server %q: %w", name, ErrServerNotFound)
	}
	old := entry.session
	entry.session = nil
	entry.status = StatusConnecting
	entry.reason = ""
	cfg := entry.config
	o.mu.Unlock()

	if old != nil {
		if err := old.Disconnect(); err != nil {
			o.logger.Warn("error disconnecting before reconnect", "server", name, "error", err)
		}
	}

	session, err := o.acquire(ctx, name, cfg)

	o.mu.Lock()
	defer o.mu.Unlock()
	entry = o.entries[name]
	if err != nil {
		entry.status = StatusFailed
		entry.reason = err.Error()
		return err
	}
	entry.session = session
	entry.status = StatusConnected
	o.logger.Info("reconnected to MCP server", "server", name)
	return nil
}

// Status returns a snapshot of every tracked server in configuration order.
// It never mutates state or triggers connection attempts.
func (o *Orchestrator) Status() []ServerStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	statuses := make([]ServerStatus, 0, len(o.order))
	for _, name := range o.order {
		entry := o.entries[name]
		statuses = append(statuses, ServerStatus{
			Name:   name,
			Status: entry.status,
			Reason: entry.reason,
		})
	}
	return statuses
}

// Servers returns the tracked server names in configuration order.
func (o *Orchestrator) Servers() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.order...)
}

// Shutdown disconnects every attached session best-effort and normalizes
// every entry to StatusDisconnected, including previously failed ones. It is
// idempotent; entries stay tracked and can be reconnected later.
func (o *Orchestrator) Shutdown() {
	o.logger.Info("shutting down orchestrator")
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, name := range o.order {
		entry := o.entries[name]
		if entry.session != nil {
			if err := entry.session.Disconnect(); err != nil {
				o.logger.Warn("error disconnecting from server", "server", name, "error", err)
			}
			entry.session = nil
		}
		entry.status = StatusDisconnected
		entry.reason = ""
	}
}
