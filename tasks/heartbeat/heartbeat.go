// Package heartbeat emits a periodic liveness marker on the console and
// the bus, so a stuck scheduler is visible from the outside.
package heartbeat

import (
	"envmon-go/bus"
	"envmon-go/sched"
	"envmon-go/types"
	"envmon-go/x/conv"
)

const period = 5 * types.TickHz

type Task struct {
	conn *bus.Connection
	next types.Tick
	beat uint32
}

func New(conn *bus.Connection) *Task {
	return &Task{conn: conn}
}

func (t *Task) Name() string { return "heartbeat" }

func (t *Task) Step(c *sched.Context) error {
	t.beat++
	uptime := uint32(c.Now() / types.TickHz)
	println("[heartbeat] alive, uptime", conv.Str(int64(uptime)), "s")
	if t.conn != nil {
		t.conn.Publish(t.conn.NewMessage(bus.T("sys", "heartbeat"), uptime, true))
	}
	t.next = c.Now() + period
	c.SleepUntil(t.next)
	return nil
}
