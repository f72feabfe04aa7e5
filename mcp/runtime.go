package mcp

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// CommandStatus describes how a stdio server's launch command resolves.
type CommandStatus struct {
	Server  string
	Command string
	Path    string
	// Version is only probed for well-known launchers; see launcherVersionArgs.
	Version string
	Err     error
}

// launcherVersionArgs lists the launchers that are safe to run with a
// version flag. Arbitrary server binaries are never executed.
var launcherVersionArgs = map[string][]string{
	"node":    {"--version"},
	"npx":     {"--version"},
	"python":  {"--version"},
	"python3": {"--version"},
	"uv":      {"--version"},
	"uvx":     {"--version"},
	"docker":  {"--version"},
	"go":      {"version"},
}

var versionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

const versionProbeTimeout = 5 * time.Second

// lookupCommand resolves d.Command the way the subprocess will: bare names
// through PATH, relative paths against d.Cwd.
func lookupCommand(d ServerDescriptor) (string, error) {
	cmd := d.Command
	if strings.ContainsRune(cmd, filepath.Separator) && !filepath.IsAbs(cmd) && d.Cwd != "" {
		cmd = filepath.Join(d.Cwd, cmd)
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		return "", fmt.Errorf("command %q not found: %w", d.Command, err)
	}
	return path, nil
}

// CheckCommand resolves a stdio descriptor's command and, for well-known
// launchers, reports its version. Non-stdio descriptors report no command.
func CheckCommand(ctx context.Context, d ServerDescriptor) CommandStatus {
	status := CommandStatus{Server: d.Name, Command: d.Command}
	if d.transport() != TransportStdio {
		return status
	}

	path, err := lookupCommand(d)
	if err != nil {
		status.Err = err
		return status
	}
	status.Path = path

	args, ok := launcherVersionArgs[filepath.Base(d.Command)]
	if !ok {
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return status
	}
	if m := versionPattern.FindStringSubmatch(string(output)); len(m) > 1 {
		status.Version = m[1]
	}
	return status
}

// CheckCommands runs CheckCommand for each descriptor in order.
func CheckCommands(ctx context.Context, descriptors []ServerDescriptor) []CommandStatus {
	statuses := make([]CommandStatus, 0, len(descriptors))
	for _, d := range descriptors {
		statuses = append(statuses, CheckCommand(ctx, d))
	}
	return statuses
}
