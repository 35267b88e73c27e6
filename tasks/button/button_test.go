package button

import (
	"testing"

	"envmon-go/bus"
	"envmon-go/hal"
	"envmon-go/sched"
)

func TestPressEdgePublishesOnce(t *testing.T) {
	b := bus.NewBus(0)
	sub := b.NewConnection("test").Subscribe(bus.T("display", "control"))
	btn := &hal.FakeButton{}
	s := sched.New()
	s.Add(New(btn, b.NewConnection("button")))

	s.RunTick()
	s.RunTick()
	if _, ok := sub.TryRecv(); ok {
		t.Fatal("message without a press")
	}

	// Press held across several polls publishes a single next_mode.
	btn.Down = true
	for i := 0; i < 6; i++ {
		s.RunTick()
	}
	msg, ok := sub.TryRecv()
	if !ok || msg.Payload != "next_mode" {
		t.Fatalf("msg = %+v, want next_mode", msg)
	}
	if _, ok := sub.TryRecv(); ok {
		t.Fatal("press repeated while held")
	}

	// Release, then a second press fires again.
	btn.Down = false
	for i := 0; i < 4; i++ {
		s.RunTick()
	}
	btn.Down = true
	for i := 0; i < 4; i++ {
		s.RunTick()
	}
	if _, ok := sub.TryRecv(); !ok {
		t.Fatal("second press not delivered")
	}
}
