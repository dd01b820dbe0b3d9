// Command castkit discovers, pairs with and controls streaming devices
// on the local network.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "castkit",
		Short: "Control streaming devices on the local network",
		Long: `castkit discovers streaming devices via DNS-SD, pairs with them
over SRP and drives them over an encrypted control session.

Typical flow:

  castkit scan
  castkit pair --address 192.168.1.20:49152
  castkit command menu --address 192.168.1.20:49152
  castkit playing --address 192.168.1.20:49152`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.castkit/castkit.yaml)")

	rootCmd.AddCommand(
		scanCmd(&configPath),
		pairCmd(&configPath),
		commandCmd(&configPath),
		playingCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
