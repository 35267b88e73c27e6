// Package network owns the radio link lifecycle and serializes all
// outbound requests. Other tasks never touch the radio: they Submit an
// endpoint and poll the returned Pending handle on their own schedule.
//
// The radio driver is asynchronous: Start* calls return immediately and
// completions arrive on an event channel that Step drains without
// blocking, so the task fits the cooperative executor.
package network

import (
	"envmon-go/bus"
	"envmon-go/cell"
	"envmon-go/errcode"
	"envmon-go/hal"
	"envmon-go/sched"
	"envmon-go/types"
)

// Association attempts per connect episode before backing off.
const connectAttempts = 3

// Pending is the handle for a submitted request. The submitter polls
// Done from its own Step; results are delivered exactly once.
type Pending struct {
	endpoint string
	seq      uint32
	done     bool
	body     []byte
	err      error
	deadline types.Tick
}

// Done reports whether the request has completed or failed.
func (p *Pending) Done() bool { return p.done }

// Result returns the response body or the failure. Valid once Done.
func (p *Pending) Result() ([]byte, error) { return p.body, p.err }

func (p *Pending) finish(body []byte, err error) {
	p.done = true
	p.body = body
	p.err = err
}

// Config holds the link parameters, all delays in ticks.
type Config struct {
	Creds          types.Credentials
	RequestTimeout types.Tick
	BackoffBase    types.Tick
	BackoffCap     types.Tick
}

// Task is the radio owner. It is the single writer of the connection
// state cell.
type Task struct {
	radio hal.Radio
	out   *cell.Cell[types.ConnState]
	conn  *bus.Connection
	cfg   Config

	link     types.LinkState
	retries  uint16
	lastErr  string
	attempts uint8
	backoff  Backoff
	nextTry  types.Tick

	queue    []*Pending
	inflight *Pending
	seq      uint32
}

func New(radio hal.Radio, out *cell.Cell[types.ConnState], conn *bus.Connection, cfg Config) *Task {
	t := &Task{radio: radio, out: out, conn: conn, cfg: cfg}
	t.backoff = Backoff{Base: cfg.BackoffBase, Cap: cfg.BackoffCap}
	return t
}

func (t *Task) Name() string { return "network" }

// Link returns the current link state. Read-only for other tasks.
func (t *Task) Link() types.LinkState { return t.link }

// Submit queues a request. It fails immediately with no_connection
// while the link is down rather than queueing indefinitely.
func (t *Task) Submit(endpoint string) (*Pending, error) {
	if !t.link.Online() {
		return nil, errcode.NoConnection
	}
	t.seq++
	p := &Pending{endpoint: endpoint, seq: t.seq}
	t.queue = append(t.queue, p)
	return p, nil
}

// Shutdown drops the association and fails every outstanding request
// with no_connection. Called when the device enters safe mode and the
// task is parked, so the radio does not hold a link nobody will pump.
func (t *Task) Shutdown() {
	t.radio.Disconnect()
	t.failAll(errcode.NoConnection)
	t.attempts = 0
	t.setLink(types.Disconnected, errcode.NoConnection.Error())
}

func (t *Task) Step(c *sched.Context) error {
	t.drainEvents(c)
	t.checkTimeout(c)
	t.maintainLink(c)
	t.dispatch(c)

	// The task is the radio pump: it must notice events and deadlines
	// even when nothing else is scheduled.
	if t.link == types.Disconnected && t.inflight == nil {
		c.SleepUntil(t.nextTry)
	} else {
		c.Sleep(1)
	}
	return nil
}

// drainEvents consumes every completion the radio has posted so far.
func (t *Task) drainEvents(c *sched.Context) {
	for {
		select {
		case ev := <-t.radio.Events():
			t.handleEvent(c, ev)
		default:
			return
		}
	}
}

func (t *Task) handleEvent(c *sched.Context, ev hal.RadioEvent) {
	switch ev.Kind {
	case hal.RadioConnectDone:
		if t.link != types.Connecting {
			return // stale, e.g. after a link drop raced the completion
		}
		if ev.Err == nil {
			t.attempts = 0
			t.backoff.Reset()
			t.setLink(types.Connected, "")
			return
		}
		t.retries++
		if t.attempts < connectAttempts && t.radio.StartConnect(t.cfg.Creds) {
			t.attempts++
			t.publish()
			return
		}
		t.attempts = 0
		t.nextTry = c.Now() + t.backoff.Next()
		t.setLink(types.Disconnected, ev.Err.Error())

	case hal.RadioRequestDone:
		if t.inflight == nil || ev.Seq != t.inflight.seq {
			return // completion of an abandoned request
		}
		p := t.inflight
		t.inflight = nil
		p.finish(ev.Body, ev.Err)
		if ev.Err != nil && t.link == types.Connected {
			t.setLink(types.Degraded, ev.Err.Error())
		} else if ev.Err == nil && t.link == types.Degraded {
			t.setLink(types.Connected, "")
		}
		c.Signal(sched.EvNetDone)

	case hal.RadioLinkDown:
		t.failAll(errcode.NoConnection)
		t.retries++
		t.nextTry = c.Now() + t.backoff.Next()
		t.setLink(types.Disconnected, errcode.NoConnection.Error())
		c.Signal(sched.EvNetDone)
	}
}

// checkTimeout abandons the in-flight request once its deadline passes.
// The radio may still be working on it; a late completion is dropped by
// the seq match in handleEvent.
func (t *Task) checkTimeout(c *sched.Context) {
	if t.inflight == nil || c.Now() < t.inflight.deadline {
		return
	}
	p := t.inflight
	t.inflight = nil
	p.finish(nil, errcode.NetTimeout)
	if t.link == types.Connected {
		t.setLink(types.Degraded, errcode.NetTimeout.Error())
	}
	c.Signal(sched.EvNetDone)
}

// maintainLink starts a connect episode when disconnected and the
// backoff window has elapsed.
func (t *Task) maintainLink(c *sched.Context) {
	if t.link != types.Disconnected || c.Now() < t.nextTry {
		return
	}
	if t.radio.StartConnect(t.cfg.Creds) {
		t.attempts = 1
		t.setLink(types.Connecting, "")
	}
}

// dispatch starts the queue head when the radio slot is free. Only one
// request is ever in flight.
func (t *Task) dispatch(c *sched.Context) {
	if t.inflight != nil || len(t.queue) == 0 || !t.link.Online() {
		return
	}
	p := t.queue[0]
	if !t.radio.StartRequest(p.seq, p.endpoint) {
		return // radio still busy with an abandoned operation
	}
	copy(t.queue, t.queue[1:])
	t.queue = t.queue[:len(t.queue)-1]
	p.deadline = c.Now() + t.cfg.RequestTimeout
	t.inflight = p
}

// failAll fails the in-flight and every queued request with code, in the
// same pass as the link drop that caused it.
func (t *Task) failAll(code errcode.Code) {
	if t.inflight != nil {
		t.inflight.finish(nil, code)
		t.inflight = nil
	}
	for _, p := range t.queue {
		p.finish(nil, code)
	}
	t.queue = t.queue[:0]
}

func (t *Task) setLink(l types.LinkState, lastErr string) {
	if t.link != l {
		println("[net] link:", t.link.String(), "->", l.String())
	}
	t.link = l
	t.lastErr = lastErr
	t.publish()
}

func (t *Task) publish() {
	st := types.ConnState{Link: t.link, Retries: t.retries, LastError: t.lastErr}
	t.out.Publish(st)
	if t.conn != nil {
		t.conn.Publish(t.conn.NewMessage(bus.T("net", "state"), st, true))
	}
}
