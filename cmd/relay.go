package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"answer-assistant/internal/config"
	"answer-assistant/internal/provider"
	providerfactory "answer-assistant/internal/provider/factory"
	"answer-assistant/internal/router"
	"answer-assistant/internal/server"
)

func newRelayCmd() *cobra.Command {
	var (
		cfgPath      string
		overridePort int
	)

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the token-authenticated relay in front of the provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfgPath == "" {
				return errors.New("relay command requires --config <path>")
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				if overridePort <= 0 || overridePort > 65535 {
					return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
				}
				cfg.Relay.Port = overridePort
			}
			if err := cfg.Relay.Validate(); err != nil {
				return err
			}

			registry := provider.NewRegistry()
			client := providerfactory.NewHTTPClient(providerfactory.DefaultHTTPTimeout)
			if err := providerfactory.RegisterConfiguredUpstreams(cfg.Relay, registry, client); err != nil {
				return err
			}

			srv, err := server.New(cfg.Relay, router.New(registry))
			if err != nil {
				return err
			}

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML configuration file (required)")
	cmd.Flags().IntVar(&overridePort, "port", 0, "Override relay port from configuration")
	return cmd
}
