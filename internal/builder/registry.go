package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"resume-builder/internal/shared/storage/kv"
	"resume-builder/internal/shared/telemetry"
)

const (
	DefaultIdleTTL = 15 * time.Minute
	DefaultMaxOpen = 10000
)

// ErrRegistryFull is returned when every open workspace is busy and the limit is reached.
var ErrRegistryFull = errors.New("too many open workspaces")

// RegistryOptions bound how many workspaces stay in memory.
type RegistryOptions struct {
	// IdleTTL is how long an unused workspace stays open.
	IdleTTL time.Duration
	// MaxOpen caps open workspaces. The least recently used idle one is closed to make room.
	MaxOpen int
	Now     func() time.Time
}

func (o RegistryOptions) withDefaults() RegistryOptions {
	if o.IdleTTL <= 0 {
		o.IdleTTL = DefaultIdleTTL
	}
	if o.MaxOpen <= 0 {
		o.MaxOpen = DefaultMaxOpen
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type entry struct {
	ws       *Workspace
	lastUsed time.Time
}

// Registry lazily opens one workspace per namespace over a shared backend and closes idle ones.
// Form state lives in the draft cache, so a closed workspace reopens where it left off.
type Registry struct {
	backend kv.Store
	opts    Options
	limits  RegistryOptions

	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry(backend kv.Store, opts Options) *Registry {
	return NewRegistryWithLimits(backend, opts, RegistryOptions{})
}

// NewRegistryWithLimits is NewRegistry with explicit eviction settings.
func NewRegistryWithLimits(backend kv.Store, opts Options, limits RegistryOptions) *Registry {
	return &Registry{
		backend: backend,
		opts:    opts,
		limits:  limits.withDefaults(),
		entries: make(map[string]*entry),
	}
}

// Get returns the workspace for namespace, opening it on first use.
func (r *Registry) Get(ctx context.Context, namespace string) (*Workspace, error) {
	if w := r.touch(namespace); w != nil {
		return w, nil
	}

	scoped, err := kv.Namespaced(r.backend, namespace)
	if err != nil {
		return nil, fmt.Errorf("namespace %q: %w", namespace, err)
	}
	// Opening reads the draft, so it runs without the registry lock.
	w, err := Open(ctx, namespace, scoped, r.opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.limits.Now()
	if e, ok := r.entries[namespace]; ok {
		w.Close()
		e.lastUsed = now
		return e.ws, nil
	}
	if len(r.entries) >= r.limits.MaxOpen && !r.evictLRULocked() {
		w.Close()
		return nil, ErrRegistryFull
	}
	r.entries[namespace] = &entry{ws: w, lastUsed: now}
	telemetry.Info("workspace.opened", map[string]any{"namespace": namespace})
	return w, nil
}

func (r *Registry) touch(namespace string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[namespace]
	if !ok {
		return nil
	}
	e.lastUsed = r.limits.Now()
	return e.ws
}

// evictLRULocked closes the least recently used idle workspace.
func (r *Registry) evictLRULocked() bool {
	candidates := make([]string, 0, len(r.entries))
	for ns, e := range r.entries {
		if e.ws.Idle() {
			candidates = append(candidates, ns)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return r.entries[candidates[i]].lastUsed.Before(r.entries[candidates[j]].lastUsed)
	})
	r.closeLocked(candidates[0], "capacity")
	return true
}

func (r *Registry) closeLocked(namespace, reason string) {
	e := r.entries[namespace]
	delete(r.entries, namespace)
	e.ws.Close()
	telemetry.Info("workspace.closed", map[string]any{"namespace": e.ws.Namespace(), "reason": reason})
}

// Sweep closes workspaces unused for longer than the idle TTL and returns how many it closed.
// Workspaces with live subscribers, a pending submission or a pending search are kept.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.limits.Now().Add(-r.limits.IdleTTL)
	closed := 0
	for ns, e := range r.entries {
		if e.lastUsed.After(cutoff) || !e.ws.Idle() {
			continue
		}
		r.closeLocked(ns, "idle")
		closed++
	}
	return closed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of open workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close closes every open workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ns := range r.entries {
		r.closeLocked(ns, "shutdown")
	}
}
