package sched

import (
	"testing"

	"envmon-go/errcode"
	"envmon-go/types"
)

// scriptTask runs a caller-provided step function.
type scriptTask struct {
	name string
	step func(c *Context) error
}

func (t *scriptTask) Name() string          { return t.name }
func (t *scriptTask) Step(c *Context) error { return t.step(c) }

func TestRoundRobinOrderIsRegistrationOrder(t *testing.T) {
	s := New()
	var order []string
	mk := func(name string) *scriptTask {
		return &scriptTask{name: name, step: func(c *Context) error {
			order = append(order, name)
			c.Sleep(1)
			return nil
		}}
	}
	s.Add(mk("a"))
	s.Add(mk("b"))
	s.Add(mk("c"))

	for i := 0; i < 3; i++ {
		s.RunTick()
	}

	want := []string{"a", "b", "c", "a", "b", "c", "a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("expected %d steps, got %d (%v)", len(want), len(order), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("step %d: got %q, want %q (%v)", i, order[i], want[i], order)
		}
	}
}

func TestSleepSuspendsUntilDue(t *testing.T) {
	s := New()
	runs := 0
	s.Add(&scriptTask{name: "sleeper", step: func(c *Context) error {
		runs++
		c.Sleep(3)
		return nil
	}})

	for i := 0; i < 6; i++ {
		s.RunTick()
	}
	// Runs on ticks 1 and 4.
	if runs != 2 {
		t.Fatalf("expected 2 runs in 6 ticks with Sleep(3), got %d", runs)
	}
}

func TestSignalWakesWaiter(t *testing.T) {
	s := New()
	woken := 0
	s.Add(&scriptTask{name: "waiter", step: func(c *Context) error {
		woken++
		c.Wait(EvNetDone)
		return nil
	}})

	s.RunTick() // first step, then waits
	if woken != 1 {
		t.Fatalf("expected first step, got %d", woken)
	}

	s.Signal(EvNetDone)
	if !s.RunPass() {
		t.Fatal("expected waiter runnable after Signal")
	}
	if woken != 2 {
		t.Fatalf("expected wake via Signal, got %d runs", woken)
	}
}

func TestWaitIsReArmedByTick(t *testing.T) {
	s := New()
	runs := 0
	s.Add(&scriptTask{name: "waiter", step: func(c *Context) error {
		runs++
		c.Wait(EvBusFree)
		return nil
	}})

	// No Signal ever fires; the tick re-arm bounds the wait to one tick.
	for i := 0; i < 4; i++ {
		s.RunTick()
	}
	if runs != 4 {
		t.Fatalf("expected one run per tick without Signal, got %d", runs)
	}
}

func TestStepErrorDoesNotStopTheLoop(t *testing.T) {
	s := New()
	runs := 0
	s.Add(&scriptTask{name: "flaky", step: func(c *Context) error {
		runs++
		c.Sleep(1)
		if runs == 1 {
			return errcode.BusNack
		}
		return nil
	}})

	s.RunTick()
	s.RunTick()
	if runs != 2 {
		t.Fatalf("task should be resumed after a recoverable error, runs=%d", runs)
	}
	if s.SafeMode() {
		t.Fatal("recoverable error must not trigger safe mode")
	}
}

func TestFatalErrorEntersSafeMode(t *testing.T) {
	s := New()
	var fatalTask string
	s.OnFatal = func(task string, err error) { fatalTask = task }

	sensorRuns, clockRuns := 0, 0
	s.Add(&scriptTask{name: "sensor", step: func(c *Context) error {
		sensorRuns++
		c.Sleep(1)
		return errcode.DriverFatal
	}})
	s.AddEssential(&scriptTask{name: "clock", step: func(c *Context) error {
		clockRuns++
		c.Sleep(1)
		return nil
	}})

	for i := 0; i < 4; i++ {
		s.RunTick()
	}

	if !s.SafeMode() {
		t.Fatal("expected safe mode after driver_fatal")
	}
	if fatalTask != "sensor" {
		t.Fatalf("OnFatal task: got %q, want sensor", fatalTask)
	}
	if sensorRuns != 1 {
		t.Fatalf("non-essential task must be parked in safe mode, ran %d times", sensorRuns)
	}
	if clockRuns != 4 {
		t.Fatalf("essential task must keep cycling in safe mode, ran %d times", clockRuns)
	}
}

func TestOnParkReportsEveryParkedTask(t *testing.T) {
	s := New()
	var parked []string
	s.OnPark = func(task string) { parked = append(parked, task) }

	step := func(c *Context) error { c.Sleep(1); return nil }
	s.Add(&scriptTask{name: "sensor", step: step})
	s.AddEssential(&scriptTask{name: "clock", step: step})
	s.Add(&scriptTask{name: "weather", step: step})
	s.Add(&scriptTask{name: "bad", step: func(c *Context) error {
		c.Sleep(1)
		return errcode.DriverFatal
	}})

	s.RunTick()

	want := map[string]bool{"sensor": true, "weather": true, "bad": true}
	if len(parked) != len(want) {
		t.Fatalf("parked %v, want each non-essential task once", parked)
	}
	for _, name := range parked {
		if !want[name] {
			t.Fatalf("parked %v, unexpected task %q", parked, name)
		}
		delete(want, name)
	}
}

func TestPassBudgetBoundsSpinners(t *testing.T) {
	s := New()
	spins := 0
	s.Add(&scriptTask{name: "spinner", step: func(c *Context) error {
		spins++ // never suspends
		return nil
	}})

	s.RunTick()
	if spins == 0 || spins > passBudget {
		t.Fatalf("spinner ran %d times in one tick, budget is %d", spins, passBudget)
	}
}

func TestNowAdvancesWithTicks(t *testing.T) {
	s := New()
	var seen types.Tick
	s.Add(&scriptTask{name: "obs", step: func(c *Context) error {
		seen = c.Now()
		c.Sleep(1)
		return nil
	}})
	s.RunTick()
	s.RunTick()
	if seen != 2 || s.Now() != 2 {
		t.Fatalf("tick accounting off: seen=%d now=%d", seen, s.Now())
	}
}
