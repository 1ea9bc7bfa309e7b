// Package activation tracks which conversation identities have the bot
// suppressed because a human agent has taken over.
//
// The registry is an in-memory set keyed by normalized identity. State lives
// for the process lifetime only; a restart clears all takeovers.
package activation

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry is a concurrency-safe set of identities for which the bot must
// stay silent. Reads dominate writes: every inbound event checks the set,
// while toggles are rare administrative actions.
type Registry struct {
	mu     sync.RWMutex
	active map[string]struct{}
}

// NewRegistry creates an empty activation registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]struct{})}
}

// IsActive reports whether the bot must stay silent for the identity.
// Callers pass identities already normalized by util.NormalizeIdentity.
func (r *Registry) IsActive(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[identity]
	return ok
}

// SetActive toggles suppression for the identity. The operation is
// idempotent: setting an identity to its current state is a no-op.
func (r *Registry) SetActive(identity string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, present := r.active[identity]
	switch {
	case active && !present:
		r.active[identity] = struct{}{}
		slog.Debug("Registry.SetActive: identity added", "identity", identity)
	case !active && present:
		delete(r.active, identity)
		slog.Debug("Registry.SetActive: identity removed", "identity", identity)
	default:
		slog.Debug("Registry.SetActive: no change", "identity", identity, "active", active)
	}
}

// Snapshot returns the currently suppressed identities in sorted order.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.active))
	for id := range r.active {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
