// Package busarb serialises access to the single shared peripheral bus.
//
// Competing requesters queue in FIFO order. A released lease reserves the
// bus for the head of the queue, so a later requester cannot barge in
// between release and the waiter's next scheduling pass. The arbiter is
// used only from the scheduler's execution context and needs no locking.
package busarb

// Lease is a scoped, exclusive-acquisition token for the shared bus.
// Release is idempotent and must be called on every exit path, including
// driver error paths.
type Lease struct {
	a        *Arbiter
	owner    string
	released bool
}

// Owner returns the name the lease was acquired under.
func (l *Lease) Owner() string { return l.owner }

// Release returns the bus. Releasing twice is a no-op.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.a.release()
}

// Arbiter hands out at most one Lease at a time.
type Arbiter struct {
	held  bool
	owner string   // current holder, diagnostics only
	queue []string // FIFO of waiting owners
	grant string   // reserved next owner after a release

	// notify fires on release; wired to the scheduler's EvBusFree signal.
	notify func()
}

func New(notify func()) *Arbiter {
	return &Arbiter{notify: notify}
}

// TryAcquire grants a lease if the bus is free and owner is next in line.
// On failure the owner is queued (once) and should suspend on EvBusFree.
func (a *Arbiter) TryAcquire(owner string) (*Lease, bool) {
	if a.held || (a.grant != "" && a.grant != owner) {
		a.enqueue(owner)
		return nil, false
	}
	a.grant = ""
	a.held = true
	a.owner = owner
	return &Lease{a: a, owner: owner}, true
}

// Held reports whether a lease is outstanding.
func (a *Arbiter) Held() bool { return a.held }

// Holder returns the current lease owner, "" when free.
func (a *Arbiter) Holder() string {
	if !a.held {
		return ""
	}
	return a.owner
}

// Waiting returns the number of queued requesters.
func (a *Arbiter) Waiting() int { return len(a.queue) }

func (a *Arbiter) enqueue(owner string) {
	if a.grant == owner {
		return
	}
	for _, q := range a.queue {
		if q == owner {
			return
		}
	}
	a.queue = append(a.queue, owner)
}

// Evict drops owner's claim on the bus: its queue slot and any
// reservation held for it. A parked requester can never claim a grant,
// and an unexpired reservation for it would starve every other
// requester. Evict does not revoke a held lease; leases never span
// steps, so a parked owner cannot be holding one.
func (a *Arbiter) Evict(owner string) {
	for i, q := range a.queue {
		if q == owner {
			copy(a.queue[i:], a.queue[i+1:])
			a.queue = a.queue[:len(a.queue)-1]
			break
		}
	}
	if a.grant != owner {
		return
	}
	a.grant = ""
	if len(a.queue) > 0 {
		a.grant = a.queue[0]
		copy(a.queue, a.queue[1:])
		a.queue = a.queue[:len(a.queue)-1]
	}
	if a.notify != nil {
		a.notify()
	}
}

func (a *Arbiter) release() {
	a.held = false
	a.owner = ""
	if len(a.queue) > 0 {
		a.grant = a.queue[0]
		copy(a.queue, a.queue[1:])
		a.queue = a.queue[:len(a.queue)-1]
	}
	if a.notify != nil {
		a.notify()
	}
}
