package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"firestige.xyz/meshmon/internal/config"
	"firestige.xyz/meshmon/internal/daemon"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor live mesh traffic",
	Long: `Join the mesh multicast group and print every packet received.

With --capture-dir every datagram is also appended to a daily
YYYY-MM-DD.tsv file that can later be fed to "meshmon replay".
Press Ctrl-C to stop; statistics are printed on exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyMonitorFlags(globalCfg, cmd.Flags())
		return runSession(globalCfg, daemon.Options{
			Mode:   daemon.ModeMonitor,
			Stdout: cmd.OutOrStdout(),
		})
	},
}

func init() {
	addMonitorFlags(monitorCmd.Flags())
}

func addMonitorFlags(f *pflag.FlagSet) {
	f.String("capture-dir", "", "append received packets to daily TSV files in this directory")
	f.String("group", config.DefaultGroup, "multicast group to join")
	f.Int("port", config.DefaultPort, "UDP port")
	f.String("interface", "", "network interface for the multicast join")
	f.Int("workers", 0, "decode workers (0 means one per CPU)")
	f.String("metrics-listen", "", "serve Prometheus metrics on this address")
}

// applyMonitorFlags copies explicitly set flags over the loaded config.
func applyMonitorFlags(cfg *config.GlobalConfig, flags *pflag.FlagSet) {
	if flags.Changed("capture-dir") {
		cfg.Capture.Dir, _ = flags.GetString("capture-dir")
	}
	if flags.Changed("group") {
		cfg.Monitor.Group, _ = flags.GetString("group")
	}
	if flags.Changed("port") {
		cfg.Monitor.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("interface") {
		cfg.Monitor.Interface, _ = flags.GetString("interface")
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("metrics-listen") {
		cfg.Metrics.Listen, _ = flags.GetString("metrics-listen")
		cfg.Metrics.Enabled = true
	}
}
