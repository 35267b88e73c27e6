// Package button turns a GPIO press into a display control message.
package button

import (
	"envmon-go/bus"
	"envmon-go/hal"
	"envmon-go/sched"
)

// Poll interval in ticks. Two consecutive identical samples debounce
// the contact.
const pollEvery = 1

// Task publishes next_mode on the display control topic on each
// press edge.
type Task struct {
	btn  hal.Button
	conn *bus.Connection

	last bool // debounced level
	raw  bool // previous raw sample
}

func New(btn hal.Button, conn *bus.Connection) *Task {
	return &Task{btn: btn, conn: conn}
}

func (t *Task) Name() string { return "button" }

func (t *Task) Step(c *sched.Context) error {
	sample := t.btn.Pressed()
	if sample == t.raw && sample != t.last {
		t.last = sample
		if sample {
			t.conn.Publish(t.conn.NewMessage(bus.T("display", "control"), "next_mode", false))
		}
	}
	t.raw = sample
	c.Sleep(pollEvery)
	return nil
}
