package config

// Values accepted by on_error.
const (
	OnErrorSilent = "silent"
	OnErrorReply  = "reply"
)

// GenerateJSONTemplate returns a starter mcp_servers.json.
func GenerateJSONTemplate() string {
	return `{
  "mcp_servers": {
    "calculator": {
      "command": "uvx",
      "args": ["mcp-server-calculator"],
      "env": {"CALCULATOR_PRECISION": "10"},
      "timeout_seconds": 15
    }
  },
  "client_session_timeout_seconds": 10.0,
  "cache_tools_list": true,
  "agent": {
    "name": "slack-agent",
    "instructions": "You are a Slack agent.",
    "provider": "openai",
    "model": "gpt-4o",
    "temperature": 0.0,
    "max_turns": 10
  },
  "on_error": "silent"
}
`
}

// GenerateTOMLTemplate returns a starter config in TOML.
func GenerateTOMLTemplate() string {
	return `# slackagent configuration
# This file uses TOML format: https://toml.io

# Handshake timeout for every tool server, in seconds
client_session_timeout_seconds = 10.0

# Cache each server's tool list for the lifetime of its session
cache_tools_list = true

# What users see when a turn fails: "silent" or "reply"
on_error = "silent"
# error_reply = "Sorry, something went wrong while handling that request."

[agent]
name = "slack-agent"
instructions = "You are a Slack agent."
# openai, openrouter, anthropic or ollama
provider = "openai"
model = "gpt-4o"
temperature = 0.0
max_turns = 10

[mcp_servers.calculator]
command = "uvx"
args = ["mcp-server-calculator"]
timeout_seconds = 15.0

# Env values name a fallback; a set environment variable of the same name wins
[mcp_servers.calculator.env]
CALCULATOR_PRECISION = "10"
`
}
