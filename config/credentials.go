package config

import (
	"fmt"
	"os"
	"strings"

	"slackagent/provider"
)

// Environment variables read at startup.
const (
	EnvSlackBotToken = "SLACK_BOT_TOKEN"
	EnvSlackAppToken = "SLACK_APP_TOKEN"
	EnvCacheURL      = "CACHE_URL"
)

// Credentials holds secrets taken from the environment.
type Credentials struct {
	SlackBotToken  string
	SlackAppToken  string
	ProviderAPIKey string
	// CacheURL is empty when CACHE_URL is unset.
	CacheURL string
}

// LoadCredentials reads credentials from the environment. Both Slack tokens
// are required, as is the API key of a provider that needs one.
func LoadCredentials(pt provider.ProviderType) (*Credentials, error) {
	creds := &Credentials{
		SlackBotToken: strings.TrimSpace(os.Getenv(EnvSlackBotToken)),
		SlackAppToken: strings.TrimSpace(os.Getenv(EnvSlackAppToken)),
		CacheURL:      strings.TrimSpace(os.Getenv(EnvCacheURL)),
	}

	var missing []string
	if creds.SlackBotToken == "" {
		missing = append(missing, EnvSlackBotToken)
	}
	if creds.SlackAppToken == "" {
		missing = append(missing, EnvSlackAppToken)
	}

	if pt.RequiresAPIKey() {
		env := pt.APIKeyEnv()
		creds.ProviderAPIKey = strings.TrimSpace(os.Getenv(env))
		if creds.ProviderAPIKey == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing environment variable(s): %s",
			ErrConfiguration, strings.Join(missing, ", "))
	}
	return creds, nil
}
