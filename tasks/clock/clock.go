// Package clock maintains the device time base. The epoch counter is
// driven from the scheduler tick and keeps running with or without a
// network; an hourly sync through the network task corrects drift with
// bounded, never-backward adjustments.
package clock

import (
	"envmon-go/cell"
	"envmon-go/errcode"
	"envmon-go/sched"
	"envmon-go/tasks/network"
	"envmon-go/types"
	"envmon-go/x/jsonx"
)

// Corrections up to this many seconds are applied in one step; larger
// ones are slewed so displayed time moves smoothly.
const jumpBound = 5

// Task is the single writer of the ClockState cell.
type Task struct {
	net      *network.Task
	out      *cell.Cell[types.ClockState]
	endpoint string
	period   types.Tick // sync interval

	epoch  uint32
	synced bool
	drift  bool
	slew   int32 // >0: extra seconds to add; <0: seconds to hold

	nextSecond types.Tick
	nextSync   types.Tick
	pending    *network.Pending
}

func New(net *network.Task, out *cell.Cell[types.ClockState], endpoint string, period types.Tick) *Task {
	return &Task{net: net, out: out, endpoint: endpoint, period: period}
}

func (t *Task) Name() string { return "clock" }

func (t *Task) Step(c *sched.Context) error {
	if t.nextSecond == 0 {
		// First step: align to the tick grid and publish the unsynced state.
		t.nextSecond = c.Now() + types.TickHz
		t.publish()
		c.SleepUntil(t.nextSecond)
		return nil
	}

	for c.Now() >= t.nextSecond {
		t.advanceSecond()
		t.nextSecond += types.TickHz
	}
	t.pollSync(c)
	t.publish()
	c.SleepUntil(t.nextSecond)
	return nil
}

// advanceSecond moves the epoch one second forward, folding in any
// outstanding correction. The epoch never decreases: backward
// corrections hold it still instead.
func (t *Task) advanceSecond() {
	switch {
	case t.slew > 0:
		t.epoch += 2
		t.slew--
	case t.slew < 0:
		t.slew++
	default:
		t.epoch++
		return
	}
	if t.slew == 0 {
		t.drift = true
	}
}

// pollSync drives the resync exchange: harvest a finished request or
// start one when the window opens.
func (t *Task) pollSync(c *sched.Context) {
	if t.pending != nil {
		if !t.pending.Done() {
			return
		}
		body, err := t.pending.Result()
		t.pending = nil
		t.nextSync = c.Now() + t.period
		if err != nil {
			println("[clock] sync failed:", err.Error())
			return
		}
		if err := t.apply(body); err != nil {
			println("[clock] sync rejected:", err.Error())
		}
		return
	}
	if c.Safe() || c.Now() < t.nextSync || !t.net.Link().Online() {
		return
	}
	p, err := t.net.Submit(t.endpoint)
	if err != nil {
		// Raced a link drop; the Online guard passes again once it is back.
		return
	}
	t.pending = p
}

// apply folds a server timestamp into the local base.
func (t *Task) apply(body []byte) error {
	obj, err := jsonx.Object(body)
	if err != nil {
		return err
	}
	v, ok := jsonx.Num(obj, "unixtime")
	if !ok || v < 1 {
		return &errcode.E{C: errcode.InvalidPayload, Op: "clock.apply", Msg: "missing unixtime"}
	}
	server := uint32(v)

	if !t.synced {
		t.epoch = server
		t.synced = true
		return nil
	}
	delta := int64(server) - int64(t.epoch)
	switch {
	case delta >= 0 && delta <= jumpBound:
		t.epoch = server
		t.drift = true
	default:
		t.slew = int32(delta)
		t.drift = false
	}
	return nil
}

func (t *Task) publish() {
	t.out.Publish(types.ClockState{Epoch: t.epoch, Synced: t.synced, DriftCorrected: t.drift})
}
