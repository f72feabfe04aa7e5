package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"slackagent/agent"
	"slackagent/mcp"
	"slackagent/provider"
)

// ErrConfiguration marks a bad config file, a bad value or a missing credential.
var ErrConfiguration = errors.New("configuration error")

// DefaultConfigFile is read when no --config-file is given.
const DefaultConfigFile = "mcp_servers.json"

// ServerConfig is one entry of mcp_servers.
type ServerConfig struct {
	Command        string            `json:"command" toml:"command"`
	Args           []string          `json:"args" toml:"args"`
	Env            map[string]string `json:"env" toml:"env"`
	Cwd            string            `json:"cwd" toml:"cwd"`
	Transport      string            `json:"transport" toml:"transport"`
	URL            string            `json:"url" toml:"url"`
	Headers        map[string]string `json:"headers" toml:"headers"`
	TimeoutSeconds *float64          `json:"timeout_seconds" toml:"timeout_seconds"`
	CacheToolsList *bool             `json:"cache_tools_list" toml:"cache_tools_list"`
}

// AgentConfig configures the single agent shared by every conversation.
type AgentConfig struct {
	Name         string   `json:"name" toml:"name"`
	Instructions string   `json:"instructions" toml:"instructions"`
	Provider     string   `json:"provider" toml:"provider"`
	Model        string   `json:"model" toml:"model"`
	BaseURL      string   `json:"base_url" toml:"base_url"`
	Temperature  *float64 `json:"temperature" toml:"temperature"`
	MaxTurns     int      `json:"max_turns" toml:"max_turns"`
}

// BotConfig is the parsed config file.
type BotConfig struct {
	MCPServers                  map[string]ServerConfig `json:"mcp_servers" toml:"mcp_servers"`
	ClientSessionTimeoutSeconds *float64                `json:"client_session_timeout_seconds" toml:"client_session_timeout_seconds"`
	CacheToolsList              bool                    `json:"cache_tools_list" toml:"cache_tools_list"`
	Agent                       AgentConfig             `json:"agent" toml:"agent"`
	OnError                     string                  `json:"on_error" toml:"on_error"`
	ErrorReply                  string                  `json:"error_reply" toml:"error_reply"`
}

// Load reads a .json or .toml config file. Every failure wraps ErrConfiguration.
func Load(path string) (*BotConfig, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("%w: %s is not a JSON or TOML file", ErrConfiguration, path)
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrConfiguration, path, err)
	}

	cfg, err := Parse(data, strings.TrimPrefix(ext, "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config data in the given format ("json" or "toml") and
// validates it.
func Parse(data []byte, format string) (*BotConfig, error) {
	cfg := &BotConfig{}

	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON: %w", ErrConfiguration, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: invalid JSON: trailing data", ErrConfiguration)
		}
	case "toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("%w: invalid TOML: %w", ErrConfiguration, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrConfiguration, format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that decode fine but make no sense.
func (c *BotConfig) Validate() error {
	if c.ClientSessionTimeoutSeconds != nil && *c.ClientSessionTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: client_session_timeout_seconds must be positive, got %v",
			ErrConfiguration, *c.ClientSessionTimeoutSeconds)
	}

	switch c.OnError {
	case "", OnErrorSilent, OnErrorReply:
	default:
		return fmt.Errorf("%w: on_error must be %q or %q, got %q", ErrConfiguration, OnErrorSilent, OnErrorReply, c.OnError)
	}

	if c.Agent.Provider != "" && !provider.IsValidType(provider.ProviderType(c.Agent.Provider)) {
		return fmt.Errorf("%w: unknown agent provider %q", ErrConfiguration, c.Agent.Provider)
	}
	if c.Agent.MaxTurns < 0 {
		return fmt.Errorf("%w: agent.max_turns must not be negative", ErrConfiguration)
	}

	for _, d := range c.Descriptors() {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}
	return nil
}

// SessionTimeout is the default tool-server handshake timeout.
func (c *BotConfig) SessionTimeout() time.Duration {
	if c.ClientSessionTimeoutSeconds == nil {
		return mcp.DefaultSessionTimeout
	}
	return seconds(*c.ClientSessionTimeoutSeconds)
}

// Descriptors converts mcp_servers into tool-server descriptors, sorted by
// name. Env values are left unresolved.
func (c *BotConfig) Descriptors() []mcp.ServerDescriptor {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptors := make([]mcp.ServerDescriptor, 0, len(names))
	for _, name := range names {
		s := c.MCPServers[name]
		d := mcp.ServerDescriptor{
			Name:           name,
			Transport:      mcp.TransportType(s.Transport),
			Command:        s.Command,
			Args:           s.Args,
			Env:            s.Env,
			Cwd:            ExpandPath(s.Cwd),
			URL:            s.URL,
			Headers:        s.Headers,
			CacheToolsList: c.CacheToolsList,
		}
		if s.TimeoutSeconds != nil {
			d.Timeout = seconds(*s.TimeoutSeconds)
			if *s.TimeoutSeconds <= 0 {
				// Keep it negative so Validate rejects it.
				d.Timeout = -1
			}
		}
		if s.CacheToolsList != nil {
			d.CacheToolsList = *s.CacheToolsList
		}
		descriptors = append(descriptors, d)
	}
	return descriptors
}

// ProviderType is the configured provider, openai when unset.
func (c *BotConfig) ProviderType() provider.ProviderType {
	if c.Agent.Provider == "" {
		return provider.ProviderTypeOpenAI
	}
	return provider.ProviderType(c.Agent.Provider)
}

// AgentConfig builds the agent configuration. Temperature defaults to 0.
func (c *BotConfig) AgentConfig() agent.Config {
	cfg := agent.DefaultConfig()
	if c.Agent.Name != "" {
		cfg.Name = c.Agent.Name
	}
	if c.Agent.Instructions != "" {
		cfg.Instructions = c.Agent.Instructions
	}
	cfg.Model = c.Agent.Model
	if cfg.Model == "" {
		cfg.Model = c.ProviderType().DefaultModel()
	}
	if c.Agent.Temperature != nil {
		cfg.Temperature = *c.Agent.Temperature
	}
	if c.Agent.MaxTurns > 0 {
		cfg.MaxTurns = c.Agent.MaxTurns
	}
	return cfg
}

// ProviderConfig builds the provider configuration with the key from creds.
func (c *BotConfig) ProviderConfig(creds *Credentials) provider.Config {
	return provider.Config{
		Type:    c.ProviderType(),
		BaseURL: c.Agent.BaseURL,
		Model:   c.AgentConfig().Model,
		APIKey:  creds.ProviderAPIKey,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
