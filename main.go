// Package main provides the CLI entry point for slackagent.
//
// slackagent answers Slack mentions with an LLM agent that can call tools
// served by MCP tool servers. Each channel is one conversation whose history
// is kept in the configured conversation cache.
//
// # Basic Usage
//
// Write a starter config, then start the bot:
//
//	slackagent init mcp_servers.json
//	slackagent check -c mcp_servers.json
//	slackagent -c mcp_servers.json
//
// # Environment Variables
//
//   - SLACK_BOT_TOKEN: Slack bot OAuth token (required)
//   - SLACK_APP_TOKEN: Slack app-level token for Socket Mode (required)
//   - OPENAI_API_KEY, OPENROUTER_API_KEY, ANTHROPIC_API_KEY: key for the configured provider
//   - CACHE_URL: memory://, redis://host:6379/0 or sqlite:///path/to/db (default memory://)
//   - SLACKAGENT_DEBUG: set to 1 or true for debug logging
//
// A .env file in the working directory is loaded first and overrides the
// process environment.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"slackagent/config"
)

// Build information, set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	config.InitLogger()

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// run may have replaced the default logger.
		slog.Error("slackagent failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	opts := runOptions{}

	rootCmd := &cobra.Command{
		Use:   "slackagent",
		Short: "Slack bot backed by an LLM agent with MCP tools",
		Long: `slackagent connects to Slack over Socket Mode and answers every
mention of the bot with one agent turn. The agent can call the tools of
the MCP servers listed in the config file.`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configFile, "config-file", "c", config.DefaultConfigFile, "Path to the JSON or TOML config file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before the config (missing file is ignored)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090 (disabled when empty)")
	flags.BoolVar(&opts.allowPartialTools, "allow-partial-tools", false, "Start even if some tool servers fail to connect")
	flags.DurationVar(&opts.shutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "How long in-flight turns may run after a shutdown signal")

	rootCmd.AddCommand(buildInitCmd(), buildCheckCmd())
	return rootCmd
}
