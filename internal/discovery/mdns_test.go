// ABOUTME: Tests for mDNS discovery
// ABOUTME: Covers service naming and entry conversion without touching the network
package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Kitchen", Port: 8930})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if got := mgr.config.service(); got != ServiceType {
		t.Errorf("expected default service %s, got %s", ServiceType, got)
	}
	mgr.Stop()
}

func TestServiceOverride(t *testing.T) {
	cfg := Config{Service: "_test._tcp"}
	if got := cfg.service(); got != "_test._tcp" {
		t.Errorf("expected override, got %s", got)
	}
}

func TestEntryToServer(t *testing.T) {
	tests := []struct {
		name  string
		entry mdns.ServiceEntry
		want  *ServerInfo
	}{
		{
			name: "ipv4 with path",
			entry: mdns.ServiceEntry{
				Name:       "Kitchen._fifoplay._tcp.local.",
				AddrV4:     net.ParseIP("192.168.1.20"),
				Port:       8930,
				InfoFields: []string{"path=/custom"},
			},
			want: &ServerInfo{Name: "Kitchen._fifoplay._tcp.local.", Host: "192.168.1.20", Port: 8930, Path: "/custom"},
		},
		{
			name: "default path",
			entry: mdns.ServiceEntry{
				Name:   "Hall",
				AddrV4: net.ParseIP("10.0.0.5"),
				Port:   9000,
			},
			want: &ServerInfo{Name: "Hall", Host: "10.0.0.5", Port: 9000, Path: DefaultPath},
		},
		{
			name:  "no address",
			entry: mdns.ServiceEntry{Name: "Ghost", Port: 1},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := entryToServer(&tt.entry)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestServerInfoAddr(t *testing.T) {
	s := &ServerInfo{Host: "192.168.1.20", Port: 8930}
	if got := s.Addr(); got != "192.168.1.20:8930" {
		t.Errorf("expected 192.168.1.20:8930, got %s", got)
	}
}

func TestHasKey(t *testing.T) {
	if !hasKey([]string{"version=1", "path=/x"}, "path") {
		t.Error("expected path key")
	}
	if hasKey([]string{"pathology=1"}, "path") {
		t.Error("prefix without = must not match")
	}
}
