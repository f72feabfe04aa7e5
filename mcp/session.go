package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	clientName    = "slackagent"
	clientVersion = "1.0.0"

	closeTimeout = 1 * time.Second
)

// dialFunc creates a started client. cmd is nil for non-subprocess transports.
type dialFunc func(ctx context.Context) (c *client.Client, cmd *exec.Cmd, err error)

// clientSession adapts an mcp-go client to Session. The transport variant is
// entirely captured by dial.
type clientSession struct {
	name   string
	dial   dialFunc
	logger *slog.Logger

	mu     sync.Mutex
	client *client.Client
	cmd    *exec.Cmd
}

// NewSessionFactory returns the default factory: stdio descriptors spawn a
// subprocess, streamable-http descriptors connect to a remote server.
func NewSessionFactory(logger *slog.Logger) SessionFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(d ServerDescriptor) (Session, error) {
		switch d.transport() {
		case TransportStdio:
			return newStdioSession(d, logger), nil
		case TransportStreamableHTTP:
			return newStreamableHTTPSession(d, logger), nil
		default:
			return nil, fmt.Errorf("%w: %s: unknown transport %q", ErrInvalidDescriptor, d.Name, d.Transport)
		}
	}
}

func newStdioSession(d ServerDescriptor, logger *slog.Logger) *clientSession {
	s := &clientSession{name: d.Name, logger: logger}
	s.dial = func(ctx context.Context) (*client.Client, *exec.Cmd, error) {
		if _, err := lookupCommand(d); err != nil {
			return nil, nil, err
		}

		var capturedCmd *exec.Cmd
		cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
			cmd := exec.CommandContext(ctx, command, args...)
			cmd.Env = env
			if d.Cwd != "" {
				cmd.Dir = d.Cwd
			}
			capturedCmd = cmd
			return cmd, nil
		}

		env := subprocessEnv(d.Env)
		logger.Debug("spawning tool server",
			"server", d.Name,
			"command", d.Command,
			"args", d.Args,
			"env_count", len(env))

		c, err := client.NewStdioMCPClientWithOptions(d.Command, env, d.Args, transport.WithCommandFunc(cmdFunc))
		if err != nil {
			return nil, nil, fmt.Errorf("start %s: %w", d.Command, err)
		}
		if capturedCmd != nil && capturedCmd.Process != nil {
			logger.Debug("tool server process started", "server", d.Name, "pid", capturedCmd.Process.Pid)
		}
		if stderr, ok := client.GetStderr(c); ok {
			go drainStderr(stderr, logger.With("server", d.Name))
		}
		return c, capturedCmd, nil
	}
	return s
}

// maxStderrLine bounds one logged stderr record; longer lines are split.
const maxStderrLine = 4096

// drainStderr reads the subprocess's stderr until it closes. Nothing else
// reads the pipe, and a server blocked on a full stderr pipe stops
// answering requests.
func drainStderr(r io.Reader, logger *slog.Logger) {
	br := bufio.NewReaderSize(r, maxStderrLine)
	for {
		line, err := br.ReadSlice('\n')
		if len(line) > 0 {
			logger.Debug("tool server stderr", "line", strings.TrimRight(string(line), "\r\n"))
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return
		}
	}
}

func newStreamableHTTPSession(d ServerDescriptor, logger *slog.Logger) *clientSession {
	s := &clientSession{name: d.Name, logger: logger}
	s.dial = func(ctx context.Context) (*client.Client, *exec.Cmd, error) {
		var opts []transport.StreamableHTTPCOption
		if len(d.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(ResolveEnv(d.Headers)))
		}

		c, err := client.NewStreamableHttpClient(d.URL, opts...)
		if err != nil {
			return nil, nil, err
		}
		if err := c.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("start HTTP transport: %w", err)
		}
		return c, nil, nil
	}
	return s
}

// NewInProcessSession serves tools from an in-process MCP server, skipping
// subprocess and network transports entirely.
func NewInProcessSession(name string, srv *server.MCPServer, logger *slog.Logger) Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &clientSession{name: name, logger: logger}
	s.dial = func(ctx context.Context) (*client.Client, *exec.Cmd, error) {
		c, err := client.NewInProcessClient(srv)
		if err != nil {
			return nil, nil, err
		}
		if err := c.Start(ctx); err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
	return s
}

func (s *clientSession) Name() string { return s.name }

func (s *clientSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return fmt.Errorf("session %s already connected", s.name)
	}

	c, cmd, err := s.dial(ctx)
	if err != nil {
		return err
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: mcptypes.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	}

	if _, err := c.Initialize(ctx, initReq); err != nil {
		s.teardown(c, cmd)
		return fmt.Errorf("initialize: %w", err)
	}

	s.client = c
	s.cmd = cmd
	return nil
}

func (s *clientSession) ListTools(ctx context.Context) ([]mcptypes.Tool, error) {
	c, err := s.current()
	if err != nil {
		return nil, err
	}
	result, err := c.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools for %s: %w", s.name, err)
	}
	return result.Tools, nil
}

func (s *clientSession) CallTool(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error) {
	c, err := s.current()
	if err != nil {
		return nil, err
	}
	return c.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
}

// Close shuts the client down and kills the subprocess if the graceful close
// hangs or fails. Closing an unconnected session is a no-op.
func (s *clientSession) Close() error {
	s.mu.Lock()
	c, cmd := s.client, s.cmd
	s.client, s.cmd = nil, nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	return s.teardown(c, cmd)
}

func (s *clientSession) current() (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, fmt.Errorf("tool server %s not connected", s.name)
	}
	return s.client, nil
}

func (s *clientSession) teardown(c *client.Client, cmd *exec.Cmd) error {
	closeDone := make(chan error, 1)
	go func() {
		closeDone <- c.Close()
	}()

	var closeErr error
	clientClosed := false
	select {
	case closeErr = <-closeDone:
		clientClosed = closeErr == nil
		if closeErr != nil {
			s.logger.Warn("error closing tool server client", "server", s.name, "error", closeErr)
		}
	case <-time.After(closeTimeout):
		closeErr = fmt.Errorf("close timed out after %s", closeTimeout)
		s.logger.Warn("tool server close timed out, killing process", "server", s.name)
	}

	if !clientClosed && cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			s.logger.Debug("kill tool server process", "server", s.name, "pid", cmd.Process.Pid, "error", err)
		}
	}

	return closeErr
}
