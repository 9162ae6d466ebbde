package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration without starting a session.

This is useful for pre-checking a config file before deploying it.

Examples:
  meshmon validate -c meshmon.yml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := globalCfg
		source := configFile
		if source == "" {
			source = "(defaults)"
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(),
			"VALID: %s: %d extra channel(s), intake %s:%d, metrics=%t, kafka=%t, nats=%t\n",
			source,
			len(cfg.Keyring.Channels),
			cfg.Monitor.Group, cfg.Monitor.Port,
			cfg.Metrics.Enabled,
			cfg.Reporters.Kafka.Enabled,
			cfg.Reporters.NATS.Enabled,
		)
		return err
	},
}
