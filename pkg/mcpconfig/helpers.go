package mcpconfig

// Lightweight helpers for narrowing and inspecting ServerConfig values without
// forcing consumers to use a type switch at every call site.

// Transport identifies the transport family used by a ServerConfig.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// TransportOf returns the transport kind for a ServerConfig.
// Returns an empty string when the value is nil or an unknown implementation.
func TransportOf(cfg ServerConfig) Transport {
	switch cfg.(type) {
	case *LocalServerConfig:
		return TransportStdio
	case *RemoteServerConfig:
		return TransportHTTP
	default:
		return ""
	}
}

// IsLocal reports whether cfg is a *LocalServerConfig.
func IsLocal(cfg ServerConfig) bool {
	_, ok := cfg.(*LocalServerConfig)
	return ok
}

// IsRemote reports whether cfg is a *RemoteServerConfig.
func IsRemote(cfg ServerConfig) bool {
	_, ok := cfg.(*RemoteServerConfig)
	return ok
}

// AsLocal narrows cfg to *LocalServerConfig, returning (nil, false) when it
// does not match.
func AsLocal(cfg ServerConfig) (*LocalServerConfig, bool) {
	c, ok := cfg.(*LocalServerConfig)
	return c, ok
}

// AsRemote narrows cfg to *RemoteServerConfig, returning (nil, false) when it
// does not match.
func AsRemote(cfg ServerConfig) (*RemoteServerConfig, bool) {
	c, ok := cfg.(*RemoteServerConfig)
	return c, ok
}
