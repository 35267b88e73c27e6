// Package display renders the panel. Every pass reads the latest
// published cells and draws a full frame off-bus; only the final
// frame write holds the bus lease. The task never waits on the
// producers, so the panel keeps updating when a sensor or the network
// is slow.
package display

import (
	"image/color"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"envmon-go/bus"
	"envmon-go/busarb"
	"envmon-go/cell"
	"envmon-go/errcode"
	"envmon-go/hal"
	"envmon-go/sched"
	"envmon-go/tasks/sensor"
	"envmon-go/types"
	"envmon-go/x/conv"
	"envmon-go/x/timex"
)

// Mode is the current page.
type Mode uint8

const (
	ModeClock Mode = iota
	ModeTemp
	ModeWeather
	numModes

	// ModeError replaces the rotation in safe mode.
	ModeError
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	font  = &proggy.TinySZ8pt7b
)

// Cells are the read-only inputs of the render pass.
type Cells struct {
	Reading *cell.Cell[types.Reading]
	Clock   *cell.Cell[types.ClockState]
	Weather *cell.Cell[types.WeatherSnapshot]
	Conn    *cell.Cell[types.ConnState]
}

// Config holds the render cadence, all in ticks.
type Config struct {
	Render     types.Tick
	Rotate     types.Tick
	StaleAfter types.Tick
}

// Task owns the panel and the mode rotation.
type Task struct {
	dev   hal.Display
	arb   *busarb.Arbiter
	cells Cells
	hist  *sensor.History
	cfg   Config

	sub *bus.Subscription

	mode       Mode
	frame      Frame
	framed     bool // frame built, flush pending
	nextRender types.Tick
	nextRotate types.Tick
}

// New wires the display task. conn may be nil when no control bus is
// present; hist may be nil to omit the average line.
func New(dev hal.Display, arb *busarb.Arbiter, conn *bus.Connection, cells Cells, hist *sensor.History, cfg Config) *Task {
	t := &Task{dev: dev, arb: arb, cells: cells, hist: hist, cfg: cfg}
	if conn != nil {
		t.sub = conn.Subscribe(bus.T("display", "control"))
	}
	return t
}

func (t *Task) Name() string { return "display" }

// Mode returns the page currently shown.
func (t *Task) CurrentMode() Mode { return t.mode }

func (t *Task) Step(c *sched.Context) error {
	t.drainControl(c)

	if c.Now() >= t.nextRotate {
		if t.nextRotate != 0 {
			t.mode = (t.mode + 1) % numModes
		}
		t.nextRotate = c.Now() + t.cfg.Rotate
	}
	if !t.framed && c.Now() >= t.nextRender {
		t.render(c)
		t.framed = true
	}
	if t.framed {
		lease, ok := t.arb.TryAcquire(t.Name())
		if !ok {
			c.Wait(sched.EvBusFree)
			return nil
		}
		err := t.dev.WriteFrame(t.frame.Bytes())
		lease.Release()
		t.framed = false
		t.nextRender = c.Now() + t.cfg.Render
		if err != nil {
			if errcode.Fatal(err) {
				return err
			}
			println("[display] frame write failed:", err.Error())
		}
	}
	c.SleepUntil(t.nextRender)
	return nil
}

// drainControl applies queued next_mode commands from the button task or
// any bus client.
func (t *Task) drainControl(c *sched.Context) {
	if t.sub == nil {
		return
	}
	for {
		msg, ok := t.sub.TryRecv()
		if !ok {
			return
		}
		if s, _ := msg.Payload.(string); s == "next_mode" {
			t.mode = (t.mode + 1) % numModes
			t.nextRotate = c.Now() + t.cfg.Rotate
		}
	}
}

func (t *Task) render(c *sched.Context) {
	t.frame.Clear()
	mode := t.mode
	if c.Safe() {
		mode = ModeError
	}
	switch mode {
	case ModeClock:
		t.renderClock()
	case ModeTemp:
		t.renderTemp()
	case ModeWeather:
		t.renderWeather(c)
	case ModeError:
		t.renderError()
	}
	t.renderFooter()
}

func (t *Task) line(y int16, s string) {
	tinyfont.WriteLine(&t.frame, font, 2, y, s, white)
}

func (t *Task) renderClock() {
	t.line(12, "CLOCK")
	t.line(34, timeString(t.cells.Clock.Get()))
	cs := t.cells.Clock.Get()
	switch {
	case !cs.Synced:
		t.line(48, "waiting for sync")
	case cs.DriftCorrected:
		t.line(48, "synced")
	}
}

func (t *Task) renderTemp() {
	t.line(12, "TEMPERATURE")
	r := t.cells.Reading.Get()
	if !r.Valid {
		t.line(34, "sensor unavailable")
		return
	}
	t.line(34, conv.Deci(r.DeciC)+"C  "+conv.Str(int64(r.PressPa/100))+"hPa")
	if t.hist != nil {
		if avg, ok := t.hist.Average(); ok {
			t.line(48, "avg "+conv.Deci(avg)+"C "+t.hist.Status())
		}
	}
}

func (t *Task) renderWeather(c *sched.Context) {
	t.line(12, "WEATHER")
	w := t.cells.Weather.Get()
	if !w.Valid {
		if !t.cells.Conn.Get().Link.Online() {
			t.line(34, "no connection")
		} else {
			t.line(34, "no data yet")
		}
		return
	}
	t.line(34, conv.Deci(w.DeciC)+"C  "+types.ConditionText(w.Condition))
	ageMin := uint32((c.Now() - w.FetchedAt) / (60 * types.TickHz))
	if w.Stale(c.Now(), t.cfg.StaleAfter) {
		t.line(48, "RH "+conv.Centi(w.RHx100)+"%  stale "+conv.Str(int64(ageMin))+"m")
	} else {
		t.line(48, "RH "+conv.Centi(w.RHx100)+"%")
	}
}

func (t *Task) renderError() {
	t.line(12, "FAULT")
	t.line(34, timeString(t.cells.Clock.Get()))
	t.line(48, "safe mode")
}

func (t *Task) renderFooter() {
	if t.cells.Conn.Get().Link.Online() {
		t.line(62, "net up")
	} else {
		t.line(62, "net down")
	}
}

func timeString(cs types.ClockState) string {
	if !cs.Synced {
		return "--:--:--"
	}
	h, m, s := timex.HMS(cs.Epoch)
	return conv.Pad2(h) + ":" + conv.Pad2(m) + ":" + conv.Pad2(s)
}
