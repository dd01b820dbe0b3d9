package main

import (
	"context"
	"fmt"

	"github.com/castkit/castkit/pkg/device"
	"github.com/castkit/castkit/pkg/handshake"
	"github.com/castkit/castkit/pkg/mediaremote"
	"github.com/castkit/castkit/pkg/relay"
	"github.com/castkit/castkit/pkg/session"
)

// connectDevice builds a facade over a single mediaremote backend and
// connects it. The caller must drain facade.Close() when done.
func connectDevice(ctx context.Context, cfg *Config, addr string, creds *handshake.Credentials) (*device.Facade, *mediaremote.Backend, error) {
	lf, err := loggerFactory(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	backend, desc, err := mediaremote.Setup(mediaremote.Config{
		Addr:          addr,
		ClientID:      cfg.ClientID,
		Name:          cfg.Name,
		Model:         cfg.Model,
		Credentials:   creds,
		Timeout:       cfg.Timeout,
		LoggerFactory: lf,
	})
	if err != nil {
		return nil, nil, err
	}

	facade, err := device.New(device.Config{
		Priority:      []relay.Protocol{mediaremote.Protocol},
		LoggerFactory: lf,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := facade.AddProtocol(desc); err != nil {
		return nil, nil, err
	}
	if err := facade.Connect(ctx); err != nil {
		return nil, nil, err
	}

	// The facade tolerates failing backends; with a single backend a
	// failed session means nothing is controllable.
	if backend.Session().State() != session.StateReady {
		<-facade.Close()
		return nil, nil, fmt.Errorf("connect %s: session failed", addr)
	}
	return facade, backend, nil
}

// storedCredentials returns the parsed credentials for addr, or nil when
// the device was never paired.
func storedCredentials(cfg *Config, addr string) (*handshake.Credentials, error) {
	raw, ok := cfg.Credentials[addr]
	if !ok {
		return nil, nil
	}
	creds, err := handshake.ParseCredentials(raw)
	if err != nil {
		return nil, fmt.Errorf("stored credentials for %s: %w", addr, err)
	}
	return creds, nil
}
