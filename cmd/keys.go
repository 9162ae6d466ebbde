package cmd

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"firestige.xyz/meshmon/internal/daemon"
	"firestige.xyz/meshmon/internal/keyring"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show the decryption key ring",
	Long: `List the named channel keys with their channel hashes.

With --hash the full trial order for packets carrying that channel hash
is printed instead, exactly as the decryptor will try it.

Examples:
  meshmon keys
  meshmon keys --hash 8
  meshmon keys --hash 0x08 -c meshmon.yml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ring, err := daemon.BuildKeyring(globalCfg.Keyring)
		if err != nil {
			return err
		}
		if keysHash == "" {
			return printKeyRing(cmd.OutOrStdout(), ring)
		}
		hash, err := strconv.ParseUint(keysHash, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid channel hash %q: %w", keysHash, err)
		}
		return printCandidates(cmd.OutOrStdout(), ring, uint8(hash))
	},
}

var keysHash string

func init() {
	keysCmd.Flags().StringVar(&keysHash, "hash", "",
		"print the candidate order for this channel hash (decimal or 0x hex)")
}

func printKeyRing(w io.Writer, ring *keyring.Ring) error {
	named := ring.Named()
	fmt.Fprintf(w, "Named keys (%d):\n", len(named))
	for _, k := range named {
		fmt.Fprintf(w, "  0x%02x  %-30s %s\n", k.Hash, k.Label, pskString(k.PSK))
	}
	_, err := fmt.Fprintf(w, "Generated variants: %d\n", len(ring.Variants()))
	return err
}

func printCandidates(w io.Writer, ring *keyring.Ring, hash uint8) error {
	candidates := ring.Candidates(hash)
	fmt.Fprintf(w, "Candidates for channel hash 0x%02x (%d):\n", hash, len(candidates))
	for i, k := range candidates {
		marker := ""
		if k.Hash == hash {
			marker = " *"
		}
		if _, err := fmt.Fprintf(w, "  %3d. %s%s\n", i+1, k.Label, marker); err != nil {
			return err
		}
	}
	return nil
}

func pskString(psk []byte) string {
	if len(psk) == 0 {
		return "(none)"
	}
	return base64.StdEncoding.EncodeToString(psk)
}
