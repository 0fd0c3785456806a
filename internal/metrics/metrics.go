package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Names of the counters the services bump.
const (
	OrdersPlaced          = "orders_placed"
	StatusTransitions     = "status_transitions"
	TransitionsRejected   = "status_transitions_rejected"
	TransitionConflicts   = "status_transition_conflicts"
	Handovers             = "handovers"
	VerificationFailures  = "verification_failures"
	HandoverLockouts      = "handover_lockouts"
	NotificationsSent     = "notifications_sent"
	NotificationsFailed   = "notifications_failed"
	SubscriptionsPruned   = "subscriptions_pruned"
	ScheduledNotifyRounds = "scheduled_notification_runs"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

// Registry hands out named counters. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counter)}
}

// Counter returns the named counter, creating it on first use.
func (r *Registry) Counter(name string) *Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; !ok {
		c = &Counter{}
		r.counters[name] = c
	}
	return c
}

func (r *Registry) Inc(name string) {
	r.Counter(name).Inc()
}

func (r *Registry) Add(name string, n uint64) {
	r.Counter(name).Add(n)
}

// Snapshot returns the current value of every counter.
func (r *Registry) Snapshot() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]uint64, len(r.counters))
	for name, c := range r.counters {
		out[name] = c.Load()
	}
	return out
}

// Names returns the registered counter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.counters))
	for name := range r.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the process-wide registry used by the server.
var Default = NewRegistry()
