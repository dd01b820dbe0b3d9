package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func newTestResolver(t *testing.T) (*Resolver, *MockMDNSResolver) {
	t.Helper()
	mock := NewMockMDNSResolver()
	r, err := NewResolver(ResolverConfig{
		MDNSResolver:  mock,
		BrowseTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r, mock
}

func collect(t *testing.T, services <-chan Service) []Service {
	t.Helper()
	var out []Service
	for svc := range services {
		out = append(out, svc)
	}
	return out
}

func TestBrowseUnknownService(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.Browse(context.Background(), "_bogus._tcp")
	if !errors.Is(err, ErrUnknownService) {
		t.Fatalf("Browse() error = %v, want ErrUnknownService", err)
	}
}

func TestBrowseMapsEntries(t *testing.T) {
	r, mock := newTestResolver(t)
	mock.RegisterService(ServiceMediaRemote, MockMediaRemoteService(
		"Living Room", 49152, net.ParseIP("192.168.1.20"), Properties{
			Name:             "Living Room",
			Model:            "Box 4K",
			UniqueIdentifier: "device-1",
		}))

	services, err := r.Browse(context.Background(), ServiceMediaRemote)
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}

	got := collect(t, services)
	if len(got) != 1 {
		t.Fatalf("Browse() yielded %d services, want 1", len(got))
	}
	svc := got[0]
	if svc.Protocol != "mediaremote" {
		t.Errorf("Protocol = %q, want %q", svc.Protocol, "mediaremote")
	}
	if svc.InstanceName != "Living Room" {
		t.Errorf("InstanceName = %q, want %q", svc.InstanceName, "Living Room")
	}
	if svc.Port != 49152 {
		t.Errorf("Port = %d, want 49152", svc.Port)
	}
	if ip := svc.PreferredIP(); !ip.Equal(net.ParseIP("192.168.1.20")) {
		t.Errorf("PreferredIP() = %v, want 192.168.1.20", ip)
	}
	if svc.Properties.Model != "Box 4K" {
		t.Errorf("Properties.Model = %q, want %q", svc.Properties.Model, "Box 4K")
	}
}

func TestBrowseNoResults(t *testing.T) {
	r, _ := newTestResolver(t)

	services, err := r.Browse(context.Background(), ServiceMediaRemote)
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}
	if got := collect(t, services); len(got) != 0 {
		t.Fatalf("Browse() yielded %d services, want 0", len(got))
	}
}

func TestScanGroupsByAddress(t *testing.T) {
	r, mock := newTestResolver(t)
	mock.RegisterService(ServiceMediaRemote, MockMediaRemoteService(
		"Living Room", 49152, net.ParseIP("192.168.1.20"), Properties{Name: "Living Room"}))
	mock.RegisterService(ServiceMediaRemote, MockMediaRemoteService(
		"Living Room (2)", 49153, net.ParseIP("192.168.1.20"), Properties{Name: "Living Room"}))
	mock.RegisterService(ServiceMediaRemote, MockMediaRemoteService(
		"Bedroom", 49152, net.ParseIP("192.168.1.30"), Properties{Name: "Bedroom"}))

	devices, err := r.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(devices) != 2 {
		t.Fatalf("Scan() yielded %d devices, want 2", len(devices))
	}
	byName := make(map[string]Device)
	for _, dev := range devices {
		byName[dev.Name] = dev
	}
	living, ok := byName["Living Room"]
	if !ok {
		t.Fatal("Scan() missing device Living Room")
	}
	if len(living.Services) != 2 {
		t.Errorf("Living Room has %d services, want 2", len(living.Services))
	}
	if !living.Address.Equal(net.ParseIP("192.168.1.20")) {
		t.Errorf("Living Room address = %v, want 192.168.1.20", living.Address)
	}
	bedroom, ok := byName["Bedroom"]
	if !ok {
		t.Fatal("Scan() missing device Bedroom")
	}
	if len(bedroom.Services) != 1 {
		t.Errorf("Bedroom has %d services, want 1", len(bedroom.Services))
	}
}

func TestScanSkipsAddresslessEntries(t *testing.T) {
	r, mock := newTestResolver(t)
	entry := MockMediaRemoteService("Ghost", 49152, net.ParseIP("192.168.1.40"), Properties{Name: "Ghost"})
	entry.AddrIPv4 = nil
	mock.RegisterService(ServiceMediaRemote, entry)

	devices, err := r.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("Scan() yielded %d devices, want 0", len(devices))
	}
}
