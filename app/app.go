// Package app assembles the device: bus, scheduler, arbiter, state
// cells and every task, wired from one immutable Config and a Hardware
// bundle supplied by the platform layer.
package app

import (
	"time"

	"envmon-go/bus"
	"envmon-go/busarb"
	"envmon-go/cell"
	"envmon-go/config"
	"envmon-go/hal"
	"envmon-go/sched"
	"envmon-go/tasks/button"
	"envmon-go/tasks/clock"
	"envmon-go/tasks/display"
	"envmon-go/tasks/heartbeat"
	"envmon-go/tasks/network"
	"envmon-go/tasks/sensor"
	"envmon-go/tasks/weather"
	"envmon-go/types"
)

// Hardware is the set of drivers the platform layer provides. Button
// may be nil on boards without one.
type Hardware struct {
	Sensor  hal.Sensor
	Display hal.Display
	Radio   hal.Radio
	Button  hal.Button
}

// Cells are the shared single-writer state slots.
type Cells struct {
	Reading *cell.Cell[types.Reading]
	Clock   *cell.Cell[types.ClockState]
	Weather *cell.Cell[types.WeatherSnapshot]
	Conn    *cell.Cell[types.ConnState]
	Device  *cell.Cell[types.DeviceState]
}

// App is the assembled device.
type App struct {
	Bus   *bus.Bus
	Sched *sched.Scheduler
	Arb   *busarb.Arbiter
	Cells Cells

	Net     *network.Task
	Display *display.Task

	cfg types.Config
}

// New wires the whole device. Task registration order is the scheduling
// order: producers first, the display last so a pass renders the state
// published in the same tick.
func New(cfg types.Config, hw Hardware) *App {
	a := &App{
		Bus: bus.NewBus(8),
		cfg: cfg,
		Cells: Cells{
			Reading: &cell.Cell[types.Reading]{},
			Clock:   &cell.Cell[types.ClockState]{},
			Weather: &cell.Cell[types.WeatherSnapshot]{},
			Conn:    &cell.Cell[types.ConnState]{},
			Device:  &cell.Cell[types.DeviceState]{},
		},
	}
	a.Sched = sched.New()
	a.Arb = busarb.New(func() { a.Sched.Signal(sched.EvBusFree) })

	sysConn := a.Bus.NewConnection("sys")
	a.Sched.OnFatal = func(task string, err error) {
		st := types.DeviceState{Safe: true, Reason: task + ": " + err.Error()}
		a.Cells.Device.Publish(st)
		sysConn.Publish(sysConn.NewMessage(bus.T("sys", "fault"), st, true))
		// Nobody pumps the radio in safe mode; drop the link.
		a.Net.Shutdown()
	}
	// Parked tasks can never claim a bus grant; revoke their slots so the
	// display is not starved by a dead reservation.
	a.Sched.OnPark = func(task string) { a.Arb.Evict(task) }

	a.Net = network.New(hw.Radio, a.Cells.Conn, a.Bus.NewConnection("network"), network.Config{
		Creds:          cfg.Wifi,
		RequestTimeout: types.TicksFromMs(cfg.RequestTimeoutMs),
		BackoffBase:    types.TicksFromMs(cfg.BackoffBaseMs),
		BackoffCap:     types.TicksFromMs(cfg.BackoffCapMs),
	})
	sns := sensor.New(hw.Sensor, a.Arb, a.Cells.Reading, a.Bus.NewConnection("sensor"),
		types.TicksFromMs(cfg.SamplePeriodMs))
	clk := clock.New(a.Net, a.Cells.Clock, cfg.TimeEndpoint, types.TicksFromMs(cfg.SyncPeriodMs))
	wx := weather.New(a.Net, a.Cells.Weather, a.Bus.NewConnection("weather"),
		cfg.WeatherEndpoint, types.TicksFromMs(cfg.FetchPeriodMs))
	a.Display = display.New(hw.Display, a.Arb, a.Bus.NewConnection("display"), display.Cells{
		Reading: a.Cells.Reading,
		Clock:   a.Cells.Clock,
		Weather: a.Cells.Weather,
		Conn:    a.Cells.Conn,
	}, sns.Hist(), display.Config{
		Render:     types.TicksFromMs(cfg.RenderPeriodMs),
		Rotate:     types.TicksFromMs(cfg.RotatePeriodMs),
		StaleAfter: types.TicksFromMs(cfg.StaleAfterMs),
	})

	a.Sched.Add(a.Net)
	a.Sched.Add(sns)
	a.Sched.AddEssential(clk)
	a.Sched.Add(wx)
	if hw.Button != nil {
		a.Sched.Add(button.New(hw.Button, a.Bus.NewConnection("button")))
	}
	a.Sched.AddEssential(a.Display)
	a.Sched.AddEssential(heartbeat.New(a.Bus.NewConnection("heartbeat")))
	return a
}

// PublishConfig mirrors the raw device config onto the bus, retained.
func (a *App) PublishConfig(device string) {
	if err := config.PublishRaw(device, a.Bus.NewConnection("config")); err != nil {
		println("[app] config publish failed:", err.Error())
	}
}

// RunTick drives one scheduler tick. Exposed for tests and simulators
// that own the clock.
func (a *App) RunTick() { a.Sched.RunTick() }

// Run drives the scheduler from wall time. It never returns; fatal
// errors degrade into safe display mode instead of halting.
func (a *App) Run() {
	println("[app] envmon starting, tick", 1000/types.TickHz, "ms")
	tick := time.NewTicker(time.Second / types.TickHz)
	for range tick.C {
		a.Sched.RunTick()
	}
}
