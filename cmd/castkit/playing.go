package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castkit/castkit/pkg/device"
)

func playingCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "playing",
		Short: "Show what the device is currently playing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runPlaying(cmd.Context(), cfg, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "address", "a", "", "device control endpoint (host:port)")
	cmd.MarkFlagRequired("address")

	return cmd
}

func runPlaying(ctx context.Context, cfg *Config, addr string) error {
	creds, err := storedCredentials(cfg, addr)
	if err != nil {
		return err
	}
	if creds == nil {
		return fmt.Errorf("no stored credentials for %s; run \"castkit pair\" first", addr)
	}
	facade, _, err := connectDevice(ctx, cfg, addr, creds)
	if err != nil {
		return err
	}
	defer func() { <-facade.Close() }()

	metadata, err := facade.Metadata().Resolve(device.MethodPlaying)
	if err != nil {
		return err
	}
	playing, err := metadata.Playing(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("State:    %s\n", playing.State)
	if playing.App != "" {
		fmt.Printf("App:      %s\n", playing.App)
	}
	if playing.Title != "" {
		fmt.Printf("Title:    %s\n", playing.Title)
	}
	if playing.Artist != "" {
		fmt.Printf("Artist:   %s\n", playing.Artist)
	}
	if playing.Album != "" {
		fmt.Printf("Album:    %s\n", playing.Album)
	}
	if playing.Duration > 0 {
		fmt.Printf("Position: %.0fs / %.0fs\n", playing.Position, playing.Duration)
	}
	return nil
}
