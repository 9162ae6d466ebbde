// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/meshmon/internal/config"
	"firestige.xyz/meshmon/internal/daemon"
	"firestige.xyz/meshmon/internal/log"
)

var (
	// Global flags
	configFile string
	verbose    bool
	logLevel   string

	// globalCfg is loaded once per invocation by loadConfig.
	globalCfg *config.GlobalConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "meshmon",
	Short: "meshmon - Meshtastic UDP multicast monitor",
	Long: `meshmon passively monitors Meshtastic traffic carried over UDP multicast.
It decrypts packets with the known channel keys, decodes the application
payloads and prints one block per packet.

Features:
  - Live monitoring of the mesh multicast group
  - Trial decryption against default, named and generated channel keys
  - Capture to daily TSV files and deterministic replay (TSV, pcap, stdin)
  - Prometheus metrics and Kafka/NATS export`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"print verbose packet blocks with hex dump")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level override (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig reads the configuration, applies the global flag overrides
// and initializes logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	globalCfg = cfg
	return nil
}

// runSession starts a daemon and blocks until it finishes.
func runSession(cfg *config.GlobalConfig, opts daemon.Options) error {
	d := daemon.New(cfg, opts)
	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", opts.Mode, err)
	}
	return d.Run()
}
