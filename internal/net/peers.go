package net

import (
	"log"
	"sort"
	"sync"
	"time"
)

// PeerInfo describes one connected peer for status output.
type PeerInfo struct {
	ID          string    `json:"id"`
	Addr        string    `json:"addr"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// PeerManager is used by the hub to track every live websocket peer.
type PeerManager struct {
	peers  map[string]*peer
	mu     sync.RWMutex
	logger *log.Logger
}

func NewPeerManager(logger *log.Logger) *PeerManager {
	if logger == nil {
		logger = log.Default()
	}
	return &PeerManager{
		peers:  make(map[string]*peer),
		logger: logger,
	}
}

func (pm *PeerManager) Add(p *peer) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.peers[p.id] = p
	pm.logger.Printf("[HUB] peer %s connected from %s", p.id, p.addr)
}

func (pm *PeerManager) Remove(id string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if p, ok := pm.peers[id]; ok {
		delete(pm.peers, id)
		pm.logger.Printf("[HUB] peer %s from %s left", id, p.addr)
	}
}

func (pm *PeerManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers)
}

// List returns the peers ordered by connection time.
func (pm *PeerManager) List() []PeerInfo {
	pm.mu.RLock()
	out := make([]PeerInfo, 0, len(pm.peers))
	for _, p := range pm.peers {
		out = append(out, PeerInfo{ID: p.id, Addr: p.addr, ConnectedAt: p.connectedAt})
	}
	pm.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ConnectedAt.Before(out[j].ConnectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CloseAll disconnects every peer. Their sessions fire remove-on-disconnect.
func (pm *PeerManager) CloseAll() {
	pm.mu.RLock()
	peers := make([]*peer, 0, len(pm.peers))
	for _, p := range pm.peers {
		peers = append(peers, p)
	}
	pm.mu.RUnlock()
	for _, p := range peers {
		p.close()
	}
}
