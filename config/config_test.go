package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slackagent/agent"
	"slackagent/mcp"
	"slackagent/provider"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "mcp_servers.json", `{
  "mcp_servers": {
    "calc": {"command": "uvx", "args": ["mcp-server-calculator"], "env": {"PRECISION": "10"}, "timeout_seconds": 2.5},
    "web": {"transport": "streamable-http", "url": "http://localhost:8080/mcp", "cache_tools_list": false}
  },
  "client_session_timeout_seconds": 20,
  "cache_tools_list": true
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionTimeout() != 20*time.Second {
		t.Errorf("SessionTimeout() = %s", cfg.SessionTimeout())
	}

	ds := cfg.Descriptors()
	if len(ds) != 2 {
		t.Fatalf("got %d descriptors", len(ds))
	}
	calc, web := ds[0], ds[1]
	if calc.Name != "calc" || calc.Command != "uvx" || calc.Env["PRECISION"] != "10" {
		t.Errorf("calc = %+v", calc)
	}
	if calc.Timeout != 2500*time.Millisecond {
		t.Errorf("calc timeout = %s", calc.Timeout)
	}
	if !calc.CacheToolsList {
		t.Error("calc should inherit cache_tools_list")
	}
	if web.Transport != mcp.TransportStreamableHTTP || web.CacheToolsList || web.Timeout != 0 {
		t.Errorf("web = %+v", web)
	}
}

func TestDescriptorsSortedByName(t *testing.T) {
	path := writeFile(t, "mcp_servers.json", `{
  "mcp_servers": {
    "zeta": {"command": "z"},
    "alpha": {"command": "a"},
    "mid": {"command": "m"}
  }
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var names []string
	for _, d := range cfg.Descriptors() {
		names = append(names, d.Name)
	}
	if strings.Join(names, ",") != "alpha,mid,zeta" {
		t.Errorf("descriptor order = %v, want alpha,mid,zeta", names)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "bot.toml", GenerateTOMLTemplate())

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ds := cfg.Descriptors()
	if len(ds) != 1 || ds[0].Name != "calculator" || ds[0].Timeout != 15*time.Second {
		t.Errorf("descriptors = %+v", ds)
	}
	if cfg.ProviderType() != provider.ProviderTypeOpenAI || cfg.OnError != OnErrorSilent {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestJSONTemplateParses(t *testing.T) {
	cfg, err := Parse([]byte(GenerateJSONTemplate()), "json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.MCPServers) != 1 {
		t.Errorf("servers = %v", cfg.MCPServers)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeFile(t, "empty.json", `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionTimeout() != mcp.DefaultSessionTimeout {
		t.Errorf("SessionTimeout() = %s", cfg.SessionTimeout())
	}
	if len(cfg.Descriptors()) != 0 {
		t.Error("expected no servers")
	}

	ac := cfg.AgentConfig()
	want := agent.DefaultConfig()
	if ac != want {
		t.Errorf("AgentConfig() = %+v, want %+v", ac, want)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "bot.yaml", "mcp_servers: {}"},
		{"malformed json", "bot.json", `{"mcp_servers": `},
		{"trailing json", "bot.json", `{} {}`},
		{"mistyped field", "bot.json", `{"client_session_timeout_seconds": "ten"}`},
		{"mistyped args", "bot.json", `{"mcp_servers": {"a": {"command": "x", "args": "y"}}}`},
		{"missing command", "bot.json", `{"mcp_servers": {"a": {"args": ["y"]}}}`},
		{"non-positive session timeout", "bot.json", `{"client_session_timeout_seconds": 0}`},
		{"non-positive server timeout", "bot.json", `{"mcp_servers": {"a": {"command": "x", "timeout_seconds": -1}}}`},
		{"server name with separator", "bot.json", `{"mcp_servers": {"my__tools": {"command": "x"}}}`},
		{"server name with dot", "bot.json", `{"mcp_servers": {"my.tools": {"command": "x"}}}`},
		{"bad on_error", "bot.json", `{"on_error": "shout"}`},
		{"unknown provider", "bot.json", `{"agent": {"provider": "gemini"}}`},
		{"malformed toml", "bot.toml", `mcp_servers = [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := Load(path)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Load() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Load() error = %v, want ErrConfiguration", err)
	}
}

func TestAgentAndProviderConfig(t *testing.T) {
	cfg, err := Parse([]byte(`{
  "agent": {"name": "helper", "instructions": "Be brief.", "provider": "ollama", "base_url": "http://gpu:11434", "temperature": 0.3, "max_turns": 4}
}`), "json")
	if err != nil {
		t.Fatal(err)
	}

	ac := cfg.AgentConfig()
	if ac.Name != "helper" || ac.Instructions != "Be brief." || ac.Temperature != 0.3 || ac.MaxTurns != 4 {
		t.Errorf("AgentConfig() = %+v", ac)
	}
	if ac.Model != provider.ProviderTypeOllama.DefaultModel() {
		t.Errorf("model = %q, want the ollama default", ac.Model)
	}

	pc := cfg.ProviderConfig(&Credentials{ProviderAPIKey: "k"})
	if pc.Type != provider.ProviderTypeOllama || pc.BaseURL != "http://gpu:11434" || pc.Model != ac.Model || pc.APIKey != "k" {
		t.Errorf("ProviderConfig() = %+v", pc)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/bot")
	t.Setenv("SLACKAGENT_TEST_DIR", "/srv")

	tests := map[string]string{
		"":                         "",
		"~/tools":                  "/home/bot/tools",
		"$SLACKAGENT_TEST_DIR/mcp": "/srv/mcp",
		"/a/../b":                  "/b",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}
