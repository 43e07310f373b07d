package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Option Strategist Configuration

[engine]
# Maximum strategies kept from one generator batch
max_strategies = 3
# Shares per option contract
contract_multiplier = 100
# Probability used when a strategy does not state one
default_probability = 50

[data]
# SQLite database holding pricing rows and the strategy journal
# database_path = "~/.config/option-strategist/strategist.db"
# Directory scanned for snapshot files
# snapshot_dir = "~/.config/option-strategist/snapshots"

[server]
addr = "127.0.0.1:8080"
read_timeout = "15s"
write_timeout = "60s"

[logging]
# debug, info, warn, error
level = "info"
console = true
file = false
max_size = 50
max_backups = 5
max_age = 30
`

const agentsTemplate = `# Strategy Generator Configuration
# The API key is read from OPENAI_API_KEY (a .env file is honoured).
# Alternatively store it with "strategist config set-key"; it is then read from
# credentials.enc when STRATEGIST_MASTER_PASSWORD is set.

# Model used to propose strategies
model = "gpt-4o-mini"

# Optional reference text included in every prompt
knowledge_base_path = ""

# Generator calls per minute (0 disables pacing)
requests_per_minute = 20

# Per-call timeout
timeout = "60s"
`

// createTemplateConfig creates a template config.toml file.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

// createTemplateAgentConfig creates a template agents.toml file.
func createTemplateAgentConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "agents.toml")
	if err := os.WriteFile(path, []byte(agentsTemplate), 0644); err != nil {
		return fmt.Errorf("writing agents template: %w", err)
	}

	return nil
}
