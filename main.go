package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"LiveCanvas/internal/config"
	boardnet "LiveCanvas/internal/net"
	"LiveCanvas/internal/session"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/store"
	"LiveCanvas/internal/ui"
)

const dialTimeout = 5 * time.Second

func main() {
	cfg := config.Load()
	args := os.Args

	var err error
	switch {
	case len(args) > 1 && strings.HasPrefix(args[1], boardnet.LinkScheme+"://"):
		err = runClient(cfg, args[1])
	case len(args) > 1 && args[1] == "discover":
		err = runDiscover()
	case len(args) > 1 && args[1] == "serve":
		err = runServe(cfg)
	case len(args) > 1:
		err = fmt.Errorf("unknown argument %q, expected a %s:// link, discover or serve", args[1], boardnet.LinkScheme)
	default:
		err = runHost(cfg)
	}
	if err != nil {
		log.Fatalf("[HOST] %v", err)
	}
}

func identity(cfg *config.Config) state.Identity {
	return state.Identity{UserID: cfg.UserID, Name: cfg.UserName}
}

// openSession is best effort: without it the window still works, it just
// forgets the viewport between runs.
func openSession(cfg *config.Config) *session.Store {
	s, err := session.Open(cfg.SessionDB)
	if err != nil {
		log.Printf("[HOST] session store unavailable: %v", err)
		return nil
	}
	return s
}

func closeSession(s *session.Store) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		log.Printf("[HOST] closing session store: %v", err)
	}
}

// startHub runs the hub and its mDNS announcement until ctx ends. The
// returned channel yields the hub's exit error.
func startHub(ctx context.Context, cfg *config.Config, mem *store.Memory) (*boardnet.Hub, <-chan error) {
	hub := boardnet.NewHub(mem)
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx, fmt.Sprintf(":%d", cfg.Port)) }()

	if cfg.MDNS {
		server, err := boardnet.Advertise(cfg.Port, cfg.Board)
		if err != nil {
			log.Printf("[HOST] mDNS advertisement failed: %v", err)
		} else {
			go func() {
				<-ctx.Done()
				if err := server.Shutdown(); err != nil {
					log.Printf("[HOST] mDNS shutdown: %v", err)
				}
			}()
		}
	}
	return hub, done
}

func runHost(cfg *config.Config) error {
	log.Println("[HOST] Starting as HOST")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := store.NewMemory()
	hub, done := startHub(ctx, cfg, mem)

	addr := fmt.Sprintf("%s:%d", boardnet.GetOutgoingIP(), cfg.Port)
	link := boardnet.ShareLink(addr, cfg.Board)
	log.Printf("[HOST] Share link: %s", link)

	notices := make(chan string, 1)
	go func() {
		if err := <-done; err != nil {
			log.Printf("[HOST] hub stopped: %v", err)
			notices <- "Hub stopped: " + err.Error()
		}
	}()

	sess := openSession(cfg)
	defer closeSession(sess)

	// The host draws on the hub's store directly, through its own session so
	// its cursor goes away like any other peer's.
	local := mem.Session(cfg.UserID)
	defer local.Disconnect()

	return ui.Run(ui.Options{
		Store:       local,
		Board:       cfg.Board,
		Identity:    identity(cfg),
		Session:     sess,
		UndoLimit:   cfg.UndoLimit,
		CursorStale: cfg.CursorStale,
		ShareLink:   link,
		Peers:       hub.Peers().Count,
		Notices:     notices,
	})
}

func runClient(cfg *config.Config, link string) error {
	log.Println("[HOST] Starting as CLIENT")
	addr, board, err := boardnet.ParseLink(link)
	if err != nil {
		return err
	}

	notices := make(chan string, 1)
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	client, err := boardnet.Dial(ctx, boardnet.WebSocketURL(addr), boardnet.WithConnectionLost(func(err error) {
		select {
		case notices <- "Disconnected from host: " + err.Error():
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("[SYNC] closing connection: %v", err)
		}
	}()
	log.Printf("[SYNC] Connected to %s, board %s", addr, board)

	sess := openSession(cfg)
	defer closeSession(sess)

	return ui.Run(ui.Options{
		Store:       client,
		Board:       board,
		Identity:    identity(cfg),
		Session:     sess,
		UndoLimit:   cfg.UndoLimit,
		CursorStale: cfg.CursorStale,
		ShareLink:   boardnet.ShareLink(addr, board),
		Notices:     notices,
	})
}

// runServe hosts a board without a window, e.g. on a shared machine.
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, done := startHub(ctx, cfg, store.NewMemory())
	log.Printf("[HOST] Share link: %s", boardnet.ShareLink(fmt.Sprintf("%s:%d", boardnet.GetOutgoingIP(), cfg.Port), cfg.Board))
	return <-done
}

func runDiscover() error {
	n := 0
	err := boardnet.Browse(0, func(s boardnet.Service) {
		n++
		fmt.Printf("%s\t%s\n", s.Instance, s.Link())
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("no boards found on the local network")
	}
	return nil
}
