package platform

import (
	"sync/atomic"
	"time"

	"envmon-go/hal"
	"envmon-go/types"
)

// asyncRadio adapts the blocking connect/request primitives to the
// non-blocking driver contract: each Start* runs one worker goroutine
// and posts its completion on the event channel the network task
// drains. busy guarantees a single worker at a time.
type asyncRadio struct {
	ev      chan hal.RadioEvent
	busy    atomic.Bool
	timeout time.Duration

	connect    func(creds types.Credentials) error
	disconnect func()
}

func newAsyncRadio(timeout time.Duration, connect func(types.Credentials) error, disconnect func()) *asyncRadio {
	return &asyncRadio{
		ev:         make(chan hal.RadioEvent, 8),
		timeout:    timeout,
		connect:    connect,
		disconnect: disconnect,
	}
}

func (r *asyncRadio) StartConnect(creds types.Credentials) bool {
	if !r.busy.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		err := r.connect(creds)
		r.busy.Store(false)
		r.post(hal.RadioEvent{Kind: hal.RadioConnectDone, Err: err})
	}()
	return true
}

func (r *asyncRadio) StartRequest(seq uint32, endpoint string) bool {
	if !r.busy.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		body, err := httpGet(endpoint, r.timeout)
		r.busy.Store(false)
		r.post(hal.RadioEvent{Kind: hal.RadioRequestDone, Seq: seq, Body: body, Err: err})
	}()
	return true
}

func (r *asyncRadio) Disconnect() {
	if r.disconnect != nil {
		r.disconnect()
	}
}

func (r *asyncRadio) Events() <-chan hal.RadioEvent { return r.ev }

// linkDown is invoked from the link-layer notification callback.
func (r *asyncRadio) linkDown(err error) {
	r.post(hal.RadioEvent{Kind: hal.RadioLinkDown, Err: err})
}

// post never blocks the caller; the consumer re-polls every tick, so a
// dropped event only delays detection.
func (r *asyncRadio) post(ev hal.RadioEvent) {
	select {
	case r.ev <- ev:
	default:
		println("[platform] radio event dropped")
	}
}
