// Package sensor samples the temperature/pressure device on a fixed
// period. Each sample is two short bus transactions (trigger, collect)
// with the lease released across the conversion wait, so other tasks
// can use the bus while the chip converts.
package sensor

import (
	"envmon-go/bus"
	"envmon-go/busarb"
	"envmon-go/cell"
	"envmon-go/errcode"
	"envmon-go/hal"
	"envmon-go/sched"
	"envmon-go/types"
)

// After this many consecutive failed sample periods the published
// reading is marked invalid so the display stops showing stale numbers.
const maxFailures = 3

type phase uint8

const (
	phTrigger phase = iota
	phCollect
)

// Task drives one hal.Sensor and publishes types.Reading.
type Task struct {
	dev    hal.Sensor
	arb    *busarb.Arbiter
	out    *cell.Cell[types.Reading]
	conn   *bus.Connection
	period types.Tick

	phase    phase
	next     types.Tick
	failures uint8
	hist     History
}

// New wires a sensor task. conn may be nil in tests that only care
// about the state cell.
func New(dev hal.Sensor, arb *busarb.Arbiter, out *cell.Cell[types.Reading], conn *bus.Connection, period types.Tick) *Task {
	return &Task{dev: dev, arb: arb, out: out, conn: conn, period: period}
}

func (t *Task) Name() string { return "sensor" }

// Hist exposes the reading history for the display task.
func (t *Task) Hist() *History { return &t.hist }

func (t *Task) Step(c *sched.Context) error {
	switch t.phase {
	case phTrigger:
		if c.Now() < t.next {
			c.SleepUntil(t.next)
			return nil
		}
		lease, ok := t.arb.TryAcquire(t.Name())
		if !ok {
			c.Wait(sched.EvBusFree)
			return nil
		}
		err := t.dev.Trigger()
		lease.Release()
		if err != nil {
			return t.fail(c, err)
		}
		t.phase = phCollect
		c.Sleep(t.dev.ReadyAfter())
		return nil

	case phCollect:
		lease, ok := t.arb.TryAcquire(t.Name())
		if !ok {
			c.Wait(sched.EvBusFree)
			return nil
		}
		deciC, pressPa, err := t.dev.Collect()
		lease.Release()
		if errcode.Of(err) == errcode.NotReady {
			c.Sleep(1)
			return nil
		}
		if err != nil {
			return t.fail(c, err)
		}
		t.publish(types.Reading{DeciC: deciC, PressPa: pressPa, At: c.Now(), Valid: true})
		t.failures = 0
		t.hist.Record(deciC)
		t.rearm(c)
		return nil
	}
	return nil
}

// fail counts a failed period. Recoverable bus errors are retried next
// period; after maxFailures the published reading is invalidated.
// Fatal errors propagate to the scheduler.
func (t *Task) fail(c *sched.Context, err error) error {
	t.phase = phTrigger
	if errcode.Fatal(err) {
		return err
	}
	t.failures++
	println("[sensor] sample failed:", err.Error())
	if t.failures >= maxFailures {
		t.publish(types.Reading{At: c.Now(), Valid: false})
	}
	t.rearm(c)
	return nil
}

func (t *Task) publish(r types.Reading) {
	t.out.Publish(r)
	if t.conn != nil {
		t.conn.Publish(t.conn.NewMessage(bus.T("sensor", "reading"), r, true))
	}
}

// rearm schedules the next sample on the period grid, skipping periods
// that already elapsed while the task was blocked.
func (t *Task) rearm(c *sched.Context) {
	t.phase = phTrigger
	if t.next == 0 {
		t.next = c.Now()
	}
	for t.next <= c.Now() {
		t.next += t.period
	}
	c.SleepUntil(t.next)
}
