// Package sched is the cooperative executor. Tasks are explicit state
// machines polled in a fixed round-robin order; a task "suspends" by
// returning from Step after asking its Context to sleep until a tick or
// wait for a named event. There is no preemption: a step always runs to
// completion before any other task runs.
package sched

import (
	"envmon-go/errcode"
	"envmon-go/types"
)

const maxTasks = 32

// passBudget bounds how many scheduling passes a single tick may drive,
// so a task that stays runnable cannot starve the tick loop.
const passBudget = 8

// Event names a wake-up source a task may suspend on. Every event either
// fires on peripheral progress (Signal) or is re-armed by the next tick,
// so no suspension is unbounded.
type Event uint8

const (
	// EvBusFree fires when a bus lease is released.
	EvBusFree Event = iota
	// EvNetDone fires when a network operation completes or fails.
	EvNetDone

	numEvents
)

// Task is a cooperative unit of execution.
//
// Step runs one unit of work. A non-nil error is logged and the task is
// resumed from its own recovery state on a later pass; an error carrying
// errcode.DriverFatal switches the scheduler into safe mode.
type Task interface {
	Name() string
	Step(c *Context) error
}

type taskState uint8

const (
	stRunnable taskState = iota
	stSleeping           // until entry.due
	stWaiting            // for entry.ev, re-armed each tick
	stParked             // excluded in safe mode
)

type entry struct {
	task      Task
	essential bool
	state     taskState
	due       types.Tick
	ev        Event
	failures  uint16
}

// Scheduler drives all registered tasks from a single execution context.
type Scheduler struct {
	tasks []entry
	now   types.Tick
	safe  bool

	// OnFatal, when set, is invoked once on the transition into safe
	// mode with the offending task name and error.
	OnFatal func(task string, err error)

	// OnPark, when set, is invoked for each task parked on the
	// transition into safe mode, so shared-resource claims held in the
	// task's name (bus queue slots, grant reservations) can be revoked.
	OnPark func(task string)
}

func New() *Scheduler {
	return &Scheduler{}
}

// Add registers a task. Registration order fixes the round-robin order.
func (s *Scheduler) Add(t Task) { s.add(t, false) }

// AddEssential registers a task that keeps running in safe mode
// (clock, display, heartbeat).
func (s *Scheduler) AddEssential(t Task) { s.add(t, true) }

func (s *Scheduler) add(t Task, essential bool) {
	if len(s.tasks) >= maxTasks {
		println("[sched] task table full, dropping:", t.Name())
		return
	}
	s.tasks = append(s.tasks, entry{task: t, essential: essential})
}

// Now returns the current tick count.
func (s *Scheduler) Now() types.Tick { return s.now }

// SafeMode reports whether a fatal driver error has degraded the device.
func (s *Scheduler) SafeMode() bool { return s.safe }

// Tick advances time by one tick and wakes tasks whose sleep elapsed.
// Event waiters are also re-armed so a missed signal costs at most one
// tick of latency.
func (s *Scheduler) Tick() {
	s.now++
	for i := range s.tasks {
		e := &s.tasks[i]
		switch e.state {
		case stSleeping:
			if s.now >= e.due {
				e.state = stRunnable
			}
		case stWaiting:
			e.state = stRunnable
		}
	}
}

// Signal wakes every task waiting on ev.
func (s *Scheduler) Signal(ev Event) {
	for i := range s.tasks {
		e := &s.tasks[i]
		if e.state == stWaiting && e.ev == ev {
			e.state = stRunnable
		}
	}
}

// RunPass gives each runnable task one step, in registration order.
// It reports whether any task ran.
func (s *Scheduler) RunPass() bool {
	ran := false
	for i := range s.tasks {
		e := &s.tasks[i]
		if e.state != stRunnable {
			continue
		}
		if s.safe && !e.essential {
			e.state = stParked
			continue
		}
		ran = true

		c := Context{s: s, idx: i}
		if err := e.task.Step(&c); err != nil {
			e.failures++
			println("[sched] step error:", e.task.Name(), err.Error())
			if errcode.Fatal(err) {
				s.enterSafeMode(e.task.Name(), err)
			}
		}
		// A task that neither slept nor waited stays runnable; the
		// pass budget in RunTick bounds how often it spins.
	}
	return ran
}

// RunTick is the per-tick drive: advance time, then run passes until the
// system is quiescent or the pass budget is spent.
func (s *Scheduler) RunTick() {
	s.Tick()
	for p := 0; p < passBudget; p++ {
		if !s.RunPass() {
			return
		}
	}
}

func (s *Scheduler) enterSafeMode(task string, err error) {
	if s.safe {
		return
	}
	s.safe = true
	println("[sched] fatal driver error from", task, "- entering safe display mode")
	for i := range s.tasks {
		if !s.tasks[i].essential {
			s.tasks[i].state = stParked
			if s.OnPark != nil {
				s.OnPark(s.tasks[i].task.Name())
			}
		}
	}
	if s.OnFatal != nil {
		s.OnFatal(task, err)
	}
}

// -----------------------------------------------------------------------------
// Context
// -----------------------------------------------------------------------------

// Context provides task-local access to scheduler operations for the
// duration of one step.
type Context struct {
	s   *Scheduler
	idx int
}

// Now returns the current tick count.
func (c *Context) Now() types.Tick { return c.s.now }

// Safe reports whether the scheduler is in safe display mode.
func (c *Context) Safe() bool { return c.s.safe }

// Sleep suspends the task for n ticks (at least one).
func (c *Context) Sleep(n types.Tick) {
	if n == 0 {
		n = 1
	}
	c.SleepUntil(c.s.now + n)
}

// SleepUntil suspends the task until the given tick.
func (c *Context) SleepUntil(t types.Tick) {
	e := &c.s.tasks[c.idx]
	e.state = stSleeping
	e.due = t
}

// Signal wakes every task waiting on ev.
func (c *Context) Signal(ev Event) { c.s.Signal(ev) }

// Wait suspends the task until ev is signalled or the next tick,
// whichever comes first.
func (c *Context) Wait(ev Event) {
	e := &c.s.tasks[c.idx]
	e.state = stWaiting
	e.ev = ev
}
