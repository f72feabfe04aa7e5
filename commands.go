package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"slackagent/config"
	"slackagent/mcp"
)

func buildInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file",
		Long: `Write a starter config file. The format follows the extension:
.json (default) or .toml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := writeTemplate(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func writeTemplate(path string, force bool) error {
	var content string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		content = config.GenerateJSONTemplate()
	case ".toml":
		content = config.GenerateTOMLTemplate()
	default:
		return fmt.Errorf("%w: %s must end in .json or .toml", config.ErrConfiguration, path)
	}

	path = config.ExpandPath(path)
	if config.FileExists(path) && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.EnsureParentDir(path); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0600)
}

func buildCheckCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file and the tool server commands",
		Long: `Load the config file and resolve the launch command of every stdio
tool server without starting it. Exits non-zero when anything is wrong.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config %s is valid (%d tool servers, provider %s)\n",
				configFile, len(cfg.MCPServers), cfg.ProviderType())

			statuses := mcp.CheckCommands(cmd.Context(), cfg.Descriptors())
			if len(statuses) == 0 {
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SERVER\tCOMMAND\tSTATUS")
			failed := 0
			for _, s := range statuses {
				state := "ok"
				switch {
				case s.Err != nil:
					state = s.Err.Error()
					failed++
				case s.Command == "":
					state = "remote"
				case s.Version != "":
					state = "ok (" + s.Version + ")"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Server, s.Command, state)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d tool server command(s) not found", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configFile, "config-file", "c", config.DefaultConfigFile, "Path to the JSON or TOML config file")
	return cmd
}
