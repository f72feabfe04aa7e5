package mcp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// DefaultSessionTimeout bounds each server's handshake unless overridden.
const DefaultSessionTimeout = 10 * time.Second

// TransportType selects how a tool server is reached.
type TransportType string

const (
	TransportStdio          TransportType = "stdio"
	TransportStreamableHTTP TransportType = "streamable-http"
)

// ErrInvalidDescriptor marks a malformed server definition.
var ErrInvalidDescriptor = errors.New("invalid tool server descriptor")

// MaxServerNameLength keeps namespaced tool names well inside the 64
// character limit model APIs place on function names.
const MaxServerNameLength = 32

var serverNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ServerDescriptor defines one external tool server.
type ServerDescriptor struct {
	Name      string
	Transport TransportType

	// Stdio transport
	Command string
	Args    []string
	Env     map[string]string // Values name a fallback default; see ResolveEnv
	Cwd     string

	// Streamable HTTP transport
	URL     string
	Headers map[string]string

	Timeout        time.Duration // Zero means the manager default
	CacheToolsList bool
}

// Validate checks the descriptor shape. It does not touch the environment.
func (d ServerDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: server name is required", ErrInvalidDescriptor)
	}
	if err := validateServerName(d.Name); err != nil {
		return err
	}
	if d.Timeout < 0 {
		return fmt.Errorf("%w: %s: timeout must be positive, got %s", ErrInvalidDescriptor, d.Name, d.Timeout)
	}

	switch d.transport() {
	case TransportStdio:
		if d.Command == "" {
			return fmt.Errorf("%w: %s: command is required", ErrInvalidDescriptor, d.Name)
		}
	case TransportStreamableHTTP:
		if d.URL == "" {
			return fmt.Errorf("%w: %s: url is required", ErrInvalidDescriptor, d.Name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown transport %q", ErrInvalidDescriptor, d.Name, d.Transport)
	}

	return nil
}

// validateServerName ensures NamespacedTool output is a legal function name
// that ParseToolName splits back at the right place.
func validateServerName(name string) error {
	switch {
	case !serverNamePattern.MatchString(name):
		return fmt.Errorf("%w: server name %q may only contain letters, digits, '_' and '-'", ErrInvalidDescriptor, name)
	case strings.Contains(name, ToolSeparator), strings.HasSuffix(name, "_"):
		return fmt.Errorf("%w: server name %q must not contain %q or end in '_'", ErrInvalidDescriptor, name, ToolSeparator)
	case len(name) > MaxServerNameLength:
		return fmt.Errorf("%w: server name %q is longer than %d characters", ErrInvalidDescriptor, name, MaxServerNameLength)
	}
	return nil
}

func (d ServerDescriptor) transport() TransportType {
	if d.Transport == "" {
		return TransportStdio
	}
	return d.Transport
}

// ConnectionError reports a tool server whose session could not be established.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("tool server %q: connect failed: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Session is a live request/response channel to one tool server. Variants
// differ only in how the underlying transport is established.
type Session interface {
	Name() string
	// Connect establishes the transport and completes the protocol handshake.
	Connect(ctx context.Context) error
	ListTools(ctx context.Context) ([]mcptypes.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error)
	Close() error
}

// SessionFactory builds an unconnected Session for a descriptor.
type SessionFactory func(d ServerDescriptor) (Session, error)
