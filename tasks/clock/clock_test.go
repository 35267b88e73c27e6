package clock

import (
	"testing"

	"envmon-go/cell"
	"envmon-go/errcode"
	"envmon-go/hal"
	"envmon-go/sched"
	"envmon-go/tasks/network"
	"envmon-go/types"
)

func harness() (*sched.Scheduler, *hal.FakeRadio, *network.Task, *Task, *cell.Cell[types.ClockState]) {
	s := sched.New()
	radio := hal.NewFakeRadio()
	connState := &cell.Cell[types.ConnState]{}
	net := network.New(radio, connState, nil, network.Config{
		Creds:          types.Credentials{SSID: "shed"},
		RequestTimeout: 50,
		BackoffBase:    20,
		BackoffCap:     600,
	})
	out := &cell.Cell[types.ClockState]{}
	clk := New(net, out, "http://time", 600)
	s.Add(net)
	s.AddEssential(clk)
	return s, radio, net, clk, out
}

func TestUnsyncedCountsLocally(t *testing.T) {
	s, _, _, _, out := harness()
	for i := 0; i < 35; i++ {
		s.RunTick()
	}
	st := out.Get()
	if st.Synced {
		t.Fatal("synced without any network")
	}
	if st.Epoch != 3 {
		t.Fatalf("epoch = %d after 3 s, want 3", st.Epoch)
	}
}

func TestFirstSyncSetsEpoch(t *testing.T) {
	s, radio, _, _, out := harness()
	s.RunTick()
	radio.CompleteConnect(nil)

	// Run until the sync request goes out, then answer it.
	for i := 0; i < 15; i++ {
		s.RunTick()
	}
	if radio.PendingSeq == 0 {
		t.Fatal("no sync request dispatched while connected")
	}
	radio.CompleteRequest(radio.PendingSeq, []byte(`{"unixtime":1756400000}`), nil)
	for i := 0; i < 12; i++ {
		s.RunTick()
	}
	st := out.Get()
	if !st.Synced {
		t.Fatal("not synced after successful exchange")
	}
	if st.Epoch < 1756400000 || st.Epoch > 1756400005 {
		t.Fatalf("epoch = %d, want near 1756400000", st.Epoch)
	}
	if st.DriftCorrected {
		t.Fatal("first sync is not a drift correction")
	}
}

func TestSyncFailureKeepsLocalBase(t *testing.T) {
	s, radio, _, clk, out := harness()
	s.RunTick()
	radio.CompleteConnect(nil)
	for i := 0; i < 15; i++ {
		s.RunTick()
	}
	radio.CompleteRequest(radio.PendingSeq, nil, errcode.NetTimeout)
	before := out.Get().Epoch
	for i := 0; i < 25; i++ {
		s.RunTick()
	}
	st := out.Get()
	if st.Synced {
		t.Fatal("synced despite failed exchange")
	}
	if st.Epoch <= before {
		t.Fatal("local base stopped after sync failure")
	}
	if clk.pending != nil {
		t.Fatal("failed request not released")
	}
}

func TestSmallForwardCorrectionAppliedAtOnce(t *testing.T) {
	clk := &Task{synced: true, epoch: 1000}
	if err := clk.apply([]byte(`{"unixtime":1004}`)); err != nil {
		t.Fatal(err)
	}
	if clk.epoch != 1004 || !clk.drift {
		t.Fatalf("epoch = %d drift = %v, want 1004/true", clk.epoch, clk.drift)
	}
}

func TestLargeForwardCorrectionSlews(t *testing.T) {
	clk := &Task{synced: true, epoch: 1000}
	if err := clk.apply([]byte(`{"unixtime":1020}`)); err != nil {
		t.Fatal(err)
	}
	if clk.epoch != 1000 {
		t.Fatalf("epoch jumped to %d", clk.epoch)
	}
	prev := clk.epoch
	for i := 0; i < 20; i++ {
		clk.advanceSecond()
		if clk.epoch < prev || clk.epoch-prev > 2 {
			t.Fatalf("second %d: epoch %d -> %d, want +1 or +2", i, prev, clk.epoch)
		}
		prev = clk.epoch
	}
	// After 20 slewed seconds the base has caught up with server+elapsed.
	if clk.epoch != 1040 || !clk.drift {
		t.Fatalf("epoch = %d drift = %v, want 1040/true", clk.epoch, clk.drift)
	}
	clk.advanceSecond()
	if clk.epoch != 1041 {
		t.Fatalf("epoch = %d after landing, want 1041", clk.epoch)
	}
}

func TestBackwardCorrectionHolds(t *testing.T) {
	clk := &Task{synced: true, epoch: 1000}
	if err := clk.apply([]byte(`{"unixtime":992}`)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 8; i++ {
		clk.advanceSecond()
		if clk.epoch != 1000 {
			t.Fatalf("second %d: epoch = %d, want held at 1000", i, clk.epoch)
		}
	}
	if !clk.drift {
		t.Fatal("correction did not land")
	}
	clk.advanceSecond()
	if clk.epoch != 1001 {
		t.Fatalf("epoch = %d after hold, want 1001", clk.epoch)
	}
}

func TestBadSyncPayloadRejected(t *testing.T) {
	clk := &Task{synced: true, epoch: 1000}
	for _, body := range []string{`{`, `[1,2]`, `{"time":"noon"}`, `{"unixtime":0}`} {
		if err := clk.apply([]byte(body)); err == nil {
			t.Errorf("apply(%q) accepted", body)
		}
	}
	if clk.epoch != 1000 || clk.slew != 0 {
		t.Fatalf("state mutated by rejected payloads: epoch=%d slew=%d", clk.epoch, clk.slew)
	}
}
