// Package tripflow holds the CLI commands.
package tripflow

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tripflow/tripflow/pkg/config"
)

var (
	cfgFile string
	dbPath  string
	cfg     *config.Config
	version = "dev"
)

var RootCmd = &cobra.Command{
	Use:   "tripflow",
	Short: "TripFlow - AI travel planning service",
	Long: `TripFlow is an AI-assisted travel planning backend. It serves trip,
itinerary, and expense management over a REST API and streams agent
conversations to clients using an SSE event protocol.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init and version run without an existing config.
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		return nil
	},
}

func Execute() error {
	return RootCmd.Execute()
}

// GetRootCmd returns the root cobra command for testing purposes.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// SetVersion sets the version reported by the CLI.
func SetVersion(v string) {
	version = v
	RootCmd.Version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("TripFlow version %s\n", version)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path (default: ~/.tripflow/tripflow.toml or ./tripflow.toml)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "database path (default: ~/.tripflow/data/tripflow.db)")

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(serveCmd)
}
