package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slackagent/config"
	"slackagent/mcp"
)

func TestRootCommandFlags(t *testing.T) {
	cmd := buildRootCmd()

	tests := map[string]string{
		"config-file":  config.DefaultConfigFile,
		"env-file":     ".env",
		"metrics-addr": "",
	}
	for name, want := range tests {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Errorf("flag --%s not registered", name)
			continue
		}
		if f.DefValue != want {
			t.Errorf("--%s default = %q, want %q", name, f.DefValue, want)
		}
	}
	if f := cmd.Flags().ShorthandLookup("c"); f == nil || f.Name != "config-file" {
		t.Error("-c is not an alias for --config-file")
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"bot.json", "bot.toml"} {
		path := filepath.Join(dir, name)

		cmd := buildRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"init", path})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("init %s: %v", name, err)
		}
		if !strings.Contains(out.String(), path) {
			t.Errorf("output = %q", out.String())
		}

		if _, err := config.Load(path); err != nil {
			t.Errorf("generated %s does not load: %v", name, err)
		}

		cmd = buildRootCmd()
		cmd.SetArgs([]string{"init", path})
		cmd.SetErr(&bytes.Buffer{})
		if err := cmd.Execute(); err == nil {
			t.Errorf("init overwrote %s without --force", name)
		}
	}
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	err := writeTemplate(filepath.Join(t.TempDir(), "bot.yaml"), false)
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, k := range []string{config.EnvSlackBotToken, config.EnvSlackAppToken, config.EnvCacheURL, "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp_servers.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

var validEnv = map[string]string{
	config.EnvSlackBotToken: "xoxb-test",
	config.EnvSlackAppToken: "xapp-test",
	"OPENAI_API_KEY":        "sk-test",
}

func TestRunStartupFailures(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "missing config file",
			env:     validEnv,
			wantErr: config.ErrConfiguration,
		},
		{
			name:    "missing slack tokens",
			config:  `{}`,
			env:     map[string]string{"OPENAI_API_KEY": "sk-test"},
			wantErr: config.ErrConfiguration,
		},
		{
			name:   "bad cache url",
			config: `{}`,
			env: map[string]string{
				config.EnvSlackBotToken: "xoxb-test",
				config.EnvSlackAppToken: "xapp-test",
				"OPENAI_API_KEY":        "sk-test",
				config.EnvCacheURL:      "mongodb://localhost",
			},
			wantErr: config.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)

			path := filepath.Join(t.TempDir(), "missing.json")
			if tt.config != "" {
				path = writeConfig(t, tt.config)
			}

			err := run(context.Background(), runOptions{
				configFile: path,
				envFile:    filepath.Join(t.TempDir(), ".env"),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("run() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunAbortsWhenToolServerFails(t *testing.T) {
	setEnv(t, validEnv)
	path := writeConfig(t, `{
  "mcp_servers": {"broken": {"command": "/nonexistent/slackagent-test-server"}},
  "client_session_timeout_seconds": 1
}`)

	err := run(context.Background(), runOptions{
		configFile: path,
		envFile:    filepath.Join(t.TempDir(), ".env"),
	})
	var connErr *mcp.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("run() error = %v, want *mcp.ConnectionError", err)
	}
	if connErr.Server != "broken" {
		t.Errorf("failing server = %q", connErr.Server)
	}
}

func TestLoadEnvFileOverrides(t *testing.T) {
	t.Setenv("SLACKAGENT_TEST_VALUE", "from-process")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SLACKAGENT_TEST_VALUE=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("SLACKAGENT_TEST_VALUE"); got != "from-file" {
		t.Errorf("value = %q, want from-file", got)
	}

	if err := loadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
}

func TestRunAppliesDebugFromEnvFile(t *testing.T) {
	setEnv(t, validEnv)
	t.Setenv(config.EnvDebug, "")
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte(config.EnvDebug+"=1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), runOptions{
		configFile: filepath.Join(t.TempDir(), "missing.json"),
		envFile:    envFile,
	})
	if !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("run() error = %v, want ErrConfiguration", err)
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level from the env file was not applied to the logger")
	}
}

func TestCheckCommand(t *testing.T) {
	path := writeConfig(t, `{
  "mcp_servers": {
    "broken": {"command": "/nonexistent/slackagent-test-server"},
    "remote": {"transport": "streamable-http", "url": "http://localhost:1/mcp"}
  }
}`)

	cmd := buildRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check", "-c", path})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected check to fail for a missing command")
	}
	for _, want := range []string{"2 tool servers", "broken", "not found", "remote"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
