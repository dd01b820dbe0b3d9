package discovery

import (
	"context"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// MockMDNSResolver answers Browse from a fixed set of registered entries
// instead of the network.
type MockMDNSResolver struct {
	mu      sync.Mutex
	entries map[string][]*zeroconf.ServiceEntry
}

// NewMockMDNSResolver creates an empty mock resolver.
func NewMockMDNSResolver() *MockMDNSResolver {
	return &MockMDNSResolver{entries: make(map[string][]*zeroconf.ServiceEntry)}
}

// RegisterService adds an entry that later Browse calls for service will
// yield.
func (m *MockMDNSResolver) RegisterService(service string, entry *zeroconf.ServiceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[service] = append(m.entries[service], entry)
}

// Browse implements MDNSResolver. It delivers every registered entry for
// service and returns; delivery respects ctx like the real resolver.
func (m *MockMDNSResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.Lock()
	queued := append([]*zeroconf.ServiceEntry(nil), m.entries[service]...)
	m.mu.Unlock()

	for _, entry := range queued {
		select {
		case entries <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// MockMediaRemoteService builds a media-remote service entry for tests.
func MockMediaRemoteService(instanceName string, port int, ip net.IP, props Properties) *zeroconf.ServiceEntry {
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instanceName,
			Service:  ServiceMediaRemote,
			Domain:   DefaultDomain,
		},
		HostName: instanceName + ".local.",
		Port:     port,
		AddrIPv4: []net.IP{ip},
		Text:     props.Encode(),
	}
}
