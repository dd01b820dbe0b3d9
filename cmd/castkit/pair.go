package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func pairCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Pair with a device",
		Long: `Pair with a device over SRP.

The device shows a PIN on screen; enter it when prompted. On success the
credentials are stored in the config file and used automatically by
later commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runPair(cmd.Context(), cfg, *configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "address", "a", "", "device control endpoint (host:port)")
	cmd.MarkFlagRequired("address")

	return cmd
}

func runPair(ctx context.Context, cfg *Config, configPath, addr string) error {
	// Pairing runs over an unauthenticated session.
	facade, backend, err := connectDevice(ctx, cfg, addr, nil)
	if err != nil {
		return err
	}
	defer func() { <-facade.Close() }()

	sess := backend.Session()
	if err := sess.StartPairing(ctx); err != nil {
		return fmt.Errorf("start pairing: %w", err)
	}

	fmt.Print("Enter the PIN shown on the device: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	pin := strings.TrimSpace(line)

	creds, err := sess.FinishPairing(ctx, pin)
	if err != nil {
		return fmt.Errorf("finish pairing: %w", err)
	}

	if err := saveCredential(configPath, cfg, addr, creds.String()); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	name := addr
	if info := facade.DeviceInfo(); info["name"] != "" {
		name = info["name"]
	}
	fmt.Printf("Paired with %s.\n", name)
	return nil
}
