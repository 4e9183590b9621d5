package net

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
)

const (
	LinkScheme   = "livecanvas"
	DefaultBoard = "main"
)

// GetOutgoingIP finds the preferred local IP address for the host to share.
func GetOutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// No route to the internet; fall back to the first usable interface.
		ip := firstIPv4()
		if ip.IsLoopback() {
			log.Println("[HOST] no LAN address found, the share link only works locally")
		}
		return ip.String()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}

// ShareLink builds "livecanvas://host:port/board".
func ShareLink(addr, board string) string {
	if board == "" {
		board = DefaultBoard
	}
	return fmt.Sprintf("%s://%s/%s", LinkScheme, addr, url.PathEscape(board))
}

// ParseLink reads a share link. The board defaults to "main" when the link
// names only the host.
func ParseLink(link string) (addr, board string, err error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", "", fmt.Errorf("invalid link %q: %w", link, err)
	}
	if u.Scheme != LinkScheme || u.Host == "" {
		return "", "", fmt.Errorf("invalid link %q: want %s://host:port[/board]", link, LinkScheme)
	}
	if u.Port() == "" {
		return "", "", fmt.Errorf("invalid link %q: missing port", link)
	}
	board = strings.Trim(u.Path, "/")
	if board == "" {
		board = DefaultBoard
	}
	if strings.Contains(board, "/") {
		return "", "", fmt.Errorf("invalid link %q: board id may not contain '/'", link)
	}
	return u.Host, board, nil
}

// WebSocketURL is the hub endpoint for addr.
func WebSocketURL(addr string) string {
	return (&url.URL{Scheme: "ws", Host: addr, Path: "/ws"}).String()
}
