package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/meshmon/internal/capture"
	"firestige.xyz/meshmon/internal/config"
	"firestige.xyz/meshmon/internal/daemon"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay [PATH|-]",
	Short: "Replay captured packets",
	Long: `Feed previously captured packets through the decoder.

PATH may be:
  - a TSV capture file written by "meshmon monitor --capture-dir"
  - a directory, replayed file by file in name order
  - a .pcap or .pcapng file (UDP datagrams to --port are extracted)
  - "-" or nothing, to read TSV lines from stdin

Examples:
  meshmon replay captures/2024-01-01.tsv
  meshmon replay captures/
  cat captures/*.tsv | meshmon replay -v`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := capture.Stdin
		if len(args) == 1 {
			path = args[0]
		}

		flags := cmd.Flags()
		if flags.Changed("workers") {
			globalCfg.Pipeline.Workers, _ = flags.GetInt("workers")
		}
		if flags.Changed("port") {
			globalCfg.Replay.Port, _ = flags.GetInt("port")
		}

		return runSession(globalCfg, daemon.Options{
			Mode:       daemon.ModeReplay,
			ReplayPath: path,
			Stdin:      cmd.InOrStdin(),
			Stdout:     cmd.OutOrStdout(),
		})
	},
}

func init() {
	replayCmd.Flags().Int("workers", 0, "decode workers (0 means one per CPU)")
	replayCmd.Flags().Int("port", config.DefaultPort, "UDP destination port to extract from pcap files (0 means any)")
}
