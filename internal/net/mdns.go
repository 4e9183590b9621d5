package net

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	serviceType   = "_livecanvas._tcp"
	boardTXTKey   = "board="
	browseTimeout = 2 * time.Second
)

// Service is a hub found on the LAN.
type Service struct {
	Instance string
	Addr     string // host:port
	Board    string
}

// Link is the join link for the advertised board.
func (s Service) Link() string { return ShareLink(s.Addr, s.Board) }

// Advertise announces a hub serving board on port. Shut the returned server
// down to withdraw the announcement.
func Advertise(port int, board string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	info := []string{"LiveCanvas", boardTXTKey + board}
	var ips []net.IP
	if ip := firstIPv4(); !ip.IsLoopback() {
		ips = []net.IP{ip}
	}

	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, ips, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse queries the LAN for hubs and reports each one with an IPv4 address
// and a port. It returns once the query window closes.
func Browse(timeout time.Duration, found func(Service)) error {
	if timeout <= 0 {
		timeout = browseTimeout
	}
	entries := make(chan *mdns.ServiceEntry, 8)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for e := range entries {
			if s, ok := serviceFromEntry(e); ok {
				found(s)
			}
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-finished
	if err != nil {
		return fmt.Errorf("mDNS query failed: %w", err)
	}
	return nil
}

func serviceFromEntry(e *mdns.ServiceEntry) (Service, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Service{}, false
	}
	s := Service{
		Instance: strings.TrimSuffix(e.Name, "."+serviceType+".local."),
		Addr:     fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port),
		Board:    DefaultBoard,
	}
	for _, f := range e.InfoFields {
		if strings.HasPrefix(f, boardTXTKey) {
			if b := strings.TrimPrefix(f, boardTXTKey); b != "" {
				s.Board = b
			}
		}
	}
	return s, true
}
