// Package weather fetches the remote conditions on a slow period and
// caches the last good snapshot. The cache survives fetch failures;
// consumers judge staleness by age, not by fetch outcome.
package weather

import (
	"envmon-go/bus"
	"envmon-go/cell"
	"envmon-go/errcode"
	"envmon-go/sched"
	"envmon-go/tasks/network"
	"envmon-go/types"
	"envmon-go/x/jsonx"
	"envmon-go/x/mathx"
)

// How often to re-check the link while a fetch window is blocked on
// Disconnected.
const offlineRecheck = 5 * types.TickHz

// Task is the single writer of the WeatherSnapshot cell.
type Task struct {
	net      *network.Task
	out      *cell.Cell[types.WeatherSnapshot]
	conn     *bus.Connection
	endpoint string
	period   types.Tick

	next    types.Tick
	pending *network.Pending
}

func New(net *network.Task, out *cell.Cell[types.WeatherSnapshot], conn *bus.Connection, endpoint string, period types.Tick) *Task {
	return &Task{net: net, out: out, conn: conn, endpoint: endpoint, period: period}
}

func (t *Task) Name() string { return "weather" }

func (t *Task) Step(c *sched.Context) error {
	if t.pending != nil {
		if !t.pending.Done() {
			c.Wait(sched.EvNetDone)
			return nil
		}
		body, err := t.pending.Result()
		t.pending = nil
		t.next = c.Now() + t.period
		if err == nil {
			err = t.store(c, body)
		}
		if err != nil {
			// Keep the previous snapshot; it turns stale on its own.
			println("[weather] fetch failed:", err.Error())
		}
		c.SleepUntil(t.next)
		return nil
	}

	if c.Now() < t.next {
		c.SleepUntil(t.next)
		return nil
	}
	if !t.net.Link().Online() {
		// Futile while disconnected; look again shortly.
		c.Sleep(offlineRecheck)
		return nil
	}
	p, err := t.net.Submit(t.endpoint)
	if err != nil {
		c.Sleep(offlineRecheck)
		return nil
	}
	t.pending = p
	c.Wait(sched.EvNetDone)
	return nil
}

// store parses an API response and atomically replaces the snapshot.
func (t *Task) store(c *sched.Context, body []byte) error {
	obj, err := jsonx.Object(body)
	if err != nil {
		return err
	}
	temp, okT := jsonx.Num(obj, "temperature")
	hum, okH := jsonx.Num(obj, "humidity")
	code, okC := jsonx.Num(obj, "weathercode")
	ts, okS := jsonx.Num(obj, "time")
	if !okT || !okH || !okC || !okS {
		return &errcode.E{C: errcode.InvalidPayload, Op: "weather.store", Msg: "missing field"}
	}
	// Clamp everything before narrowing: float-to-integer conversion of
	// an out-of-range value is not defined, and the API is not trusted.
	snap := types.WeatherSnapshot{
		DeciC:     deci(temp),
		RHx100:    uint16(mathx.Clamp(hum, 0, 100)*100 + 0.5),
		Condition: uint8(mathx.Clamp(code, 0, 255)),
		ServerTS:  uint32(mathx.Clamp(ts, 0, 1<<32-1)),
		FetchedAt: c.Now(),
		Valid:     true,
	}
	t.out.Publish(snap)
	if t.conn != nil {
		t.conn.Publish(t.conn.NewMessage(bus.T("weather", "snapshot"), snap, true))
	}
	return nil
}

// deci rounds a °C float to tenths, saturating at the int16 range.
func deci(v float64) int16 {
	v = mathx.Clamp(v, -3276.7, 3276.7)
	if v < 0 {
		return -int16(-v*10 + 0.5)
	}
	return int16(v*10 + 0.5)
}
