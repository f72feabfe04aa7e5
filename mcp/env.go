package mcp

import (
	"fmt"
	"os"
	"sort"
)

// inheritedEnv lists the variables a stdio server inherits from the bridge.
// Everything else must be passed explicitly through the descriptor.
var inheritedEnv = []string{"HOME", "LOGNAME", "PATH", "SHELL", "TERM", "USER"}

// ResolveEnv maps each descriptor entry {K: default} to the current value of
// K in the process environment, or to default when K is unset. A variable
// that is set to the empty string still wins over the default.
func ResolveEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	resolved := make(map[string]string, len(env))
	for k, v := range env {
		if val, ok := os.LookupEnv(k); ok {
			resolved[k] = val
			continue
		}
		resolved[k] = v
	}
	return resolved
}

// subprocessEnv builds the KEY=VALUE list handed to a stdio server.
func subprocessEnv(resolved map[string]string) []string {
	env := make([]string, 0, len(inheritedEnv)+len(resolved))
	for _, k := range inheritedEnv {
		if _, override := resolved[k]; override {
			continue
		}
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	keys := make([]string, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, resolved[k]))
	}
	return env
}
