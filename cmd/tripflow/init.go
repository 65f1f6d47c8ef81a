package tripflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	forceInit  bool
	outputPath string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Long: `Init writes a tripflow.toml with default settings to the current
directory (or --output). Edit it to add your LLM and map provider keys,
then start the server with "tripflow serve".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := outputPath
		if configPath == "" {
			configPath = "tripflow.toml"
		}

		if !forceInit {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
			}
		}

		if dir := filepath.Dir(configPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}

		if err := os.WriteFile(configPath, []byte(defaultConfigTOML), 0644); err != nil {
			return fmt.Errorf("failed to write configuration file: %w", err)
		}

		fmt.Printf("✅ Configuration file created at: %s\n", configPath)
		fmt.Println("\nSet your provider keys, then start the server:")
		fmt.Printf("   tripflow --config %s serve\n", configPath)
		return nil
	},
}

const defaultConfigTOML = `# TripFlow Configuration File

[server]
host = "0.0.0.0"
port = 8910
cors_origins = ["*"]

[database]
# path = "~/.tripflow/data/tripflow.db"

[llm]
# Any OpenAI-compatible chat completions endpoint works.
base_url = "https://api.deepseek.com/v1"
api_key = ""
model = "deepseek-chat"
temperature = 0.7
max_tokens = 2000

[map]
# Baidu Map web service API key (AK).
api_key = ""
base_url = "https://api.map.baidu.com"
timeout_seconds = 10
requests_per_sec = 10.0
cache_ttl_minutes = 30

[auth]
jwt_secret = ""
token_ttl_hours = 24
`

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite existing configuration file")
	initCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path for the configuration file")
}
