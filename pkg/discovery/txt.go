package discovery

import (
	"fmt"
	"strings"
)

// TXT record keys advertised by the remote-control service.
const (
	// TXTKeyName is the human-readable device name.
	TXTKeyName = "Name"

	// TXTKeyModel is the device model string.
	TXTKeyModel = "Model"

	// TXTKeyUniqueIdentifier is the stable device identifier.
	TXTKeyUniqueIdentifier = "UniqueIdentifier"

	// TXTKeyBuildVersion is the system build version.
	TXTKeyBuildVersion = "SystemBuildVersion"

	// TXTKeyAllowPairing indicates whether the device accepts pairing.
	TXTKeyAllowPairing = "AllowPairing"
)

// Properties holds the parsed TXT record of an advertised service.
type Properties struct {
	// Name is the human-readable device name (optional).
	Name string

	// Model is the device model string (optional).
	Model string

	// UniqueIdentifier is the stable device identifier (optional).
	UniqueIdentifier string

	// BuildVersion is the system build version (optional).
	BuildVersion string

	// AllowPairing indicates whether the device accepts pairing requests.
	AllowPairing bool

	// All holds every key=value pair, including keys not mapped above.
	All map[string]string
}

// Encode converts the properties to DNS-SD format strings.
func (p *Properties) Encode() []string {
	var txt []string

	if p.Name != "" {
		txt = append(txt, fmt.Sprintf("%s=%s", TXTKeyName, p.Name))
	}
	if p.Model != "" {
		txt = append(txt, fmt.Sprintf("%s=%s", TXTKeyModel, p.Model))
	}
	if p.UniqueIdentifier != "" {
		txt = append(txt, fmt.Sprintf("%s=%s", TXTKeyUniqueIdentifier, p.UniqueIdentifier))
	}
	if p.BuildVersion != "" {
		txt = append(txt, fmt.Sprintf("%s=%s", TXTKeyBuildVersion, p.BuildVersion))
	}
	if p.AllowPairing {
		txt = append(txt, fmt.Sprintf("%s=1", TXTKeyAllowPairing))
	}

	return txt
}

// ParseTXT parses raw TXT record strings into Properties. Records without
// an '=' separator are ignored.
func ParseTXT(records []string) Properties {
	p := Properties{All: make(map[string]string)}
	for _, record := range records {
		idx := strings.IndexByte(record, '=')
		if idx <= 0 {
			continue
		}
		key := record[:idx]
		value := record[idx+1:]
		p.All[key] = value

		switch key {
		case TXTKeyName:
			p.Name = value
		case TXTKeyModel:
			p.Model = value
		case TXTKeyUniqueIdentifier:
			p.UniqueIdentifier = value
		case TXTKeyBuildVersion:
			p.BuildVersion = value
		case TXTKeyAllowPairing:
			p.AllowPairing = value == "1"
		}
	}
	return p
}
