// Package listener tracks which network listeners a process has bound,
// so lifecycle events can be enriched with the host and port they
// arrived on.
package listener

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/edgevane/httpmetrics/pkg/apperror"
)

type address struct {
	host string
	port int
}

// Registry maps listener refs to bound addresses. Safe for concurrent
// use; registration normally happens once at startup.
type Registry struct {
	mu    sync.RWMutex
	byRef map[string]address
}

func NewRegistry() *Registry {
	return &Registry{byRef: make(map[string]address)}
}

// Register records the bound address of l under ref.
func (r *Registry) Register(ref string, l net.Listener) error {
	host, portStr, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		return fmt.Errorf("split listener address %q: %w", l.Addr(), err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("parse listener port %q: %w", portStr, err)
	}
	r.RegisterAddr(ref, host, port)
	return nil
}

// RegisterAddr records an explicit host/port under ref.
func (r *Registry) RegisterAddr(ref, host string, port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRef[ref] = address{host: host, port: port}
}

// Deregister removes ref. Events referencing it afterwards fail their
// address lookup.
func (r *Registry) Deregister(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byRef, ref)
}

// GetAddress resolves ref to its host and port.
func (r *Registry) GetAddress(ref string) (string, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byRef[ref]
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", apperror.ErrUnknownListener, ref)
	}
	return a.host, a.port, nil
}
