package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/castkit/castkit/pkg/discovery"
)

func scanCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Discover controllable devices on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runScan(cmd.Context(), cfg)
		},
	}
}

func runScan(ctx context.Context, cfg *Config) error {
	resolver, err := discovery.NewResolver(discovery.ResolverConfig{
		BrowseTimeout: cfg.BrowseTimeout,
	})
	if err != nil {
		return err
	}

	devices, err := resolver.Scan(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No devices found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tMODEL\tPROTOCOLS")
	for _, dev := range devices {
		model := ""
		protocols := ""
		for i, svc := range dev.Services {
			if model == "" {
				model = svc.Properties.Model
			}
			if i > 0 {
				protocols += ","
			}
			protocols += fmt.Sprintf("%s:%d", svc.Protocol, svc.Port)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dev.Name, dev.Address, model, protocols)
	}
	return w.Flush()
}
