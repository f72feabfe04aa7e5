package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ToolSeparator joins server and tool names. Model APIs restrict function
// names to [a-zA-Z0-9_-], so a dot is not an option.
const ToolSeparator = "__"

// NamespacedTool returns the name under which a server's tool is exposed.
func NamespacedTool(server, tool string) string {
	return server + ToolSeparator + tool
}

// ParseToolName splits a namespaced tool name at the first separator.
// Names without a separator yield an empty server.
func ParseToolName(namespaced string) (server, tool string) {
	idx := strings.Index(namespaced, ToolSeparator)
	if idx == -1 {
		return "", namespaced
	}
	return namespaced[:idx], namespaced[idx+len(ToolSeparator):]
}

// Tools aggregates the tools of every live session, namespaced by server.
// A server whose listing fails is skipped and logged so one broken server
// does not take the others down with it.
func (m *Manager) Tools(ctx context.Context) ([]mcptypes.Tool, error) {
	m.mu.RLock()
	servers := append([]*serverSession(nil), m.servers...)
	m.mu.RUnlock()

	var all []mcptypes.Tool
	for _, ss := range servers {
		tools, err := ss.tools(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Warn("failed to list tools", "server", ss.desc.Name, "error", err)
			continue
		}
		for _, tool := range tools {
			namespaced := tool
			namespaced.Name = NamespacedTool(ss.desc.Name, tool.Name)
			all = append(all, namespaced)
		}
	}
	return all, nil
}

// CallTool routes a namespaced tool call to the server that owns it.
func (m *Manager) CallTool(ctx context.Context, namespaced string, args map[string]any) (*mcptypes.CallToolResult, error) {
	serverName, toolName := ParseToolName(namespaced)

	ss := m.server(serverName)
	if ss == nil {
		return nil, fmt.Errorf("no connected tool server for %q", namespaced)
	}

	start := time.Now()
	result, err := ss.session.CallTool(ctx, toolName, args)
	m.observer.ToolCalled(serverName, toolName, time.Since(start), err)
	if err != nil {
		m.logger.Warn("tool call failed", "server", serverName, "tool", toolName, "error", err)
		return nil, fmt.Errorf("call %s: %w", namespaced, err)
	}
	m.logger.Debug("tool call completed", "server", serverName, "tool", toolName, "is_error", result.IsError)
	return result, nil
}

func (m *Manager) server(name string) *serverSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ss := range m.servers {
		if ss.desc.Name == name {
			return ss
		}
	}
	return nil
}

// tools returns the cached list when caching is enabled, listing (and
// caching) on first use; otherwise it asks the server every time.
func (ss *serverSession) tools(ctx context.Context) ([]mcptypes.Tool, error) {
	if !ss.desc.CacheToolsList {
		return ss.session.ListTools(ctx)
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.cachedTools != nil {
		return ss.cachedTools, nil
	}
	tools, err := ss.session.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	ss.cachedTools = tools
	return tools, nil
}
