package app

import (
	"strings"
	"testing"

	"envmon-go/bus"
	"envmon-go/errcode"
	"envmon-go/hal"
	"envmon-go/types"
)

const (
	timeEP = "http://tm"
	wxEP   = "http://wx"

	timeBody = `{"unixtime":1756400000}`
	wxBody   = `{"temperature":18.5,"humidity":61.0,"weathercode":61,"time":1756400000}`
)

func testConfig() types.Config {
	cfg := types.Config{
		Wifi:             types.Credentials{SSID: "shed", Password: "hunter2"},
		WeatherEndpoint:  wxEP,
		TimeEndpoint:     timeEP,
		SamplePeriodMs:   1_000,
		RenderPeriodMs:   500,
		RotatePeriodMs:   2_000,
		FetchPeriodMs:    60_000,
		SyncPeriodMs:     60_000,
		StaleAfterMs:     120_000,
		RequestTimeoutMs: 2_000,
		BackoffBaseMs:    500,
		BackoffCapMs:     5_000,
	}
	cfg.Defaults()
	return cfg
}

// drive runs n ticks with a scripted radio peer: associations succeed
// and requests are answered by endpoint.
func drive(a *App, radio *hal.FakeRadio, n int) {
	for i := 0; i < n; i++ {
		a.RunTick()
		if radio.Connecting {
			radio.CompleteConnect(nil)
		}
		if radio.PendingSeq != 0 {
			seq := radio.PendingSeq
			switch radio.Requests[len(radio.Requests)-1] {
			case timeEP:
				radio.CompleteRequest(seq, []byte(timeBody), nil)
			default:
				radio.CompleteRequest(seq, []byte(wxBody), nil)
			}
		}
	}
}

func build() (*App, *hal.FakeRadio, *hal.FakeSensor, *hal.FakeDisplay) {
	radio := hal.NewFakeRadio()
	sns := hal.NewFakeSensor(231, 101325)
	disp := &hal.FakeDisplay{}
	a := New(testConfig(), Hardware{Sensor: sns, Display: disp, Radio: radio, Button: &hal.FakeButton{}})
	return a, radio, sns, disp
}

func TestBootBringsTheWholeDeviceUp(t *testing.T) {
	a, radio, _, disp := build()
	drive(a, radio, 700)

	if st := a.Cells.Conn.Get(); st.Link != types.Connected {
		t.Fatalf("link = %v, want Connected", st.Link)
	}
	if r := a.Cells.Reading.Get(); !r.Valid || r.DeciC != 231 {
		t.Fatalf("reading = %+v", r)
	}
	if cs := a.Cells.Clock.Get(); !cs.Synced || cs.Epoch < 1756400000 {
		t.Fatalf("clock = %+v, want synced", cs)
	}
	if w := a.Cells.Weather.Get(); !w.Valid || w.DeciC != 185 || w.Condition != 61 {
		t.Fatalf("weather = %+v", w)
	}
	if disp.Frames == 0 {
		t.Fatal("no frames rendered")
	}
	if a.Sched.SafeMode() {
		t.Fatal("healthy boot ended in safe mode")
	}
}

func TestRadioDropScenario(t *testing.T) {
	a, radio, _, _ := build()
	drive(a, radio, 700)
	good := a.Cells.Weather.Get()
	if !good.Valid {
		t.Fatal("setup: no weather snapshot")
	}

	// Run until the next request is in flight, then drop the link under it.
	for i := 0; i < 2000 && radio.PendingSeq == 0; i++ {
		a.RunTick()
	}
	if radio.PendingSeq == 0 {
		t.Fatal("no follow-up request dispatched")
	}
	radio.DropLink()
	a.RunTick()

	if st := a.Cells.Conn.Get(); st.Link != types.Disconnected {
		t.Fatalf("link = %v, want Disconnected within one pass", st.Link)
	}
	if w := a.Cells.Weather.Get(); !w.Valid || w.DeciC != good.DeciC {
		t.Fatalf("weather = %+v, want last snapshot retained", w)
	}
}

func TestFatalSensorDegradesNotHalts(t *testing.T) {
	a, radio, sns, disp := build()
	sns.PushCollectErr(&errcode.E{C: errcode.DriverFatal, Op: "bmp280.read", Msg: "bus wedged"}, 1)

	sub := a.Bus.NewConnection("test").Subscribe(bus.T("sys", "fault"))
	drive(a, radio, 50)

	if !a.Sched.SafeMode() {
		t.Fatal("fatal sensor error did not degrade the device")
	}
	st := a.Cells.Device.Get()
	if !st.Safe || !strings.Contains(st.Reason, "sensor") {
		t.Fatalf("device state = %+v", st)
	}
	msg, ok := sub.TryRecv()
	if !ok {
		t.Fatal("no fault published on the bus")
	}
	if fault, ok := msg.Payload.(types.DeviceState); !ok || !fault.Safe {
		t.Fatalf("fault payload = %+v", msg.Payload)
	}

	// Safe mode drops the link: nothing parked will pump the radio.
	if !radio.Dropped {
		t.Fatal("radio still associated in safe mode")
	}
	if cs := a.Cells.Conn.Get(); cs.Link != types.Disconnected {
		t.Fatalf("conn state = %+v in safe mode", cs)
	}

	// The panel stays alive in safe mode: the parked sensor's bus claims
	// are revoked, so no stale reservation can starve the frame writes.
	before := disp.Frames
	drive(a, radio, 50)
	if disp.Frames <= before {
		t.Fatal("display stopped in safe mode")
	}
	if a.Arb.Waiting() != 0 {
		t.Fatalf("arbiter still queues %d parked waiters", a.Arb.Waiting())
	}
}

func TestConfigMirroredOnBus(t *testing.T) {
	a, _, _, _ := build()
	a.PublishConfig("pico")
	sub := a.Bus.NewConnection("test").Subscribe(bus.T("config", bus.WildcardRest))
	seen := 0
	for {
		if _, ok := sub.TryRecv(); !ok {
			break
		}
		seen++
	}
	if seen == 0 {
		t.Fatal("no retained config keys replayed")
	}
}
