package tripflow

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tripflow/tripflow/api"
)

var (
	port int
	host string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API service",
	Long:  `Start the HTTP server exposing the REST API and the streaming chat endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if port != 0 {
			cfg.Server.Port = port
		}
		if host != "" {
			cfg.Server.Host = host
		}

		deps, err := api.BuildDeps(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := deps.Close(); err != nil {
				fmt.Printf("Warning: failed to close store: %v\n", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := api.New(cfg, deps)
		return server.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "server port (overrides config)")
	serveCmd.Flags().StringVar(&host, "host", "", "server host (overrides config)")
}
