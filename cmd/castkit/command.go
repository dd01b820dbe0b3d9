package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/castkit/castkit/pkg/device"
)

type commandSpec struct {
	method string
	run    func(device.RemoteControl, context.Context) error
}

var remoteCommands = map[string]commandSpec{
	"up":       {device.MethodUp, device.RemoteControl.Up},
	"down":     {device.MethodDown, device.RemoteControl.Down},
	"left":     {device.MethodLeft, device.RemoteControl.Left},
	"right":    {device.MethodRight, device.RemoteControl.Right},
	"select":   {device.MethodSelect, device.RemoteControl.Select},
	"menu":     {device.MethodMenu, device.RemoteControl.Menu},
	"home":     {device.MethodHome, device.RemoteControl.Home},
	"play":     {device.MethodPlay, device.RemoteControl.Play},
	"pause":    {device.MethodPause, device.RemoteControl.Pause},
	"next":     {device.MethodNext, device.RemoteControl.Next},
	"previous": {device.MethodPrevious, device.RemoteControl.Previous},
}

func commandNames() []string {
	names := make([]string, 0, len(remoteCommands))
	for name := range remoteCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func commandCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:       "command <name>",
		Short:     "Send a remote-control command",
		Long:      "Send a remote-control command.\n\nCommands: " + strings.Join(commandNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: commandNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runCommand(cmd.Context(), cfg, addr, args[0])
		},
	}

	cmd.Flags().StringVarP(&addr, "address", "a", "", "device control endpoint (host:port)")
	cmd.MarkFlagRequired("address")

	return cmd
}

func runCommand(ctx context.Context, cfg *Config, addr, name string) error {
	spec, ok := remoteCommands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (commands: %s)", name, strings.Join(commandNames(), ", "))
	}

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

	remote, err := facade.Remote().Resolve(spec.method)
	if err != nil {
		return err
	}
	return spec.run(remote, ctx)
}
