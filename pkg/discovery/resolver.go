// Package discovery finds controllable devices on the local network via
// DNS-SD and produces the (protocol tag, port, TXT properties) tuples
// the device facade consumes to build protocol descriptors.
package discovery

import (
	"context"
	"net"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/castkit/castkit/pkg/relay"
)

// DefaultDomain is the DNS-SD browse domain.
const DefaultDomain = "local."

// DefaultBrowseTimeout is the default timeout for browse operations.
const DefaultBrowseTimeout = 10 * time.Second

// Advertised control services and the protocol tags they map to.
const (
	ServiceMediaRemote = "_mediaremote._tcp"
)

var serviceProtocols = map[string]relay.Protocol{
	ServiceMediaRemote: "mediaremote",
}

// Service is one advertised control endpoint on a device.
type Service struct {
	// Protocol is the backend tag this endpoint speaks.
	Protocol relay.Protocol

	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// HostName is the target host name.
	HostName string

	// Port is the control port.
	Port int

	// IPs are the resolved addresses, preferred first.
	IPs []net.IP

	// Properties holds the parsed TXT record.
	Properties Properties
}

// PreferredIP returns the most preferred address, or nil.
func (s *Service) PreferredIP() net.IP {
	if len(s.IPs) > 0 {
		return s.IPs[0]
	}
	return nil
}

// Device groups the services one physical device advertises.
type Device struct {
	// Name is the device name from the first service that reported one.
	Name string

	// Address is the device's preferred address.
	Address net.IP

	// Services are the control endpoints, one per protocol.
	Services []Service
}

// MDNSResolver is the browsing surface of the underlying mDNS
// implementation, injectable for tests.
type MDNSResolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

type zeroconfResolver struct {
	resolver *zeroconf.Resolver
}

func newZeroconfResolver() (*zeroconfResolver, error) {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	return &zeroconfResolver{resolver: r}, nil
}

func (z *zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.resolver.Browse(ctx, service, domain, entries)
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// MDNSResolver overrides the default zeroconf resolver, mainly for
	// tests.
	MDNSResolver MDNSResolver

	// BrowseTimeout bounds Browse and Scan when the context has no
	// deadline. Defaults to DefaultBrowseTimeout.
	BrowseTimeout time.Duration
}

// Resolver discovers control services via DNS-SD.
type Resolver struct {
	config   ResolverConfig
	resolver MDNSResolver
}

// NewResolver creates a resolver.
func NewResolver(config ResolverConfig) (*Resolver, error) {
	resolver := config.MDNSResolver
	if resolver == nil {
		zr, err := newZeroconfResolver()
		if err != nil {
			return nil, err
		}
		resolver = zr
	}
	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	return &Resolver{config: config, resolver: resolver}, nil
}

// Browse streams services of one advertised type until the context ends
// or the browse timeout expires.
func (r *Resolver) Browse(ctx context.Context, service string) (<-chan Service, error) {
	protocol, ok := serviceProtocols[service]
	if !ok {
		return nil, ErrUnknownService
	}

	cancel := context.CancelFunc(func() {})
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		ctx, cancel = context.WithTimeout(ctx, r.config.BrowseTimeout)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	results := make(chan Service)

	go func() {
		defer close(entries)
		r.resolver.Browse(ctx, service, DefaultDomain, entries)
	}()
	go func() {
		defer close(results)
		defer cancel()
		for entry := range entries {
			svc := entryToService(entry, protocol)
			select {
			case results <- svc:
			case <-ctx.Done():
				return
			}
		}
	}()
	return results, nil
}

// Scan browses every known service type and groups the results per
// device address. It returns when the context ends or the browse
// timeout expires.
func (r *Resolver) Scan(ctx context.Context) ([]Device, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.BrowseTimeout)
		defer cancel()
	}

	byAddress := make(map[string]*Device)
	var order []string

	for service := range serviceProtocols {
		services, err := r.Browse(ctx, service)
		if err != nil {
			return nil, err
		}
		for svc := range services {
			ip := svc.PreferredIP()
			if ip == nil {
				continue
			}
			key := ip.String()
			dev, ok := byAddress[key]
			if !ok {
				dev = &Device{Address: ip}
				byAddress[key] = dev
				order = append(order, key)
			}
			if dev.Name == "" {
				dev.Name = svc.Properties.Name
			}
			dev.Services = append(dev.Services, svc)
		}
	}

	devices := make([]Device, 0, len(order))
	for _, key := range order {
		devices = append(devices, *byAddress[key])
	}
	return devices, nil
}

func entryToService(entry *zeroconf.ServiceEntry, protocol relay.Protocol) Service {
	ips := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	ips = append(ips, entry.AddrIPv4...)
	ips = append(ips, entry.AddrIPv6...)
	return Service{
		Protocol:     protocol,
		InstanceName: entry.Instance,
		HostName:     entry.HostName,
		Port:         entry.Port,
		IPs:          ips,
		Properties:   ParseTXT(entry.Text),
	}
}
