package hal

import (
	"envmon-go/errcode"
	"envmon-go/types"
)

// Scripted fakes for tests, the host build, and the simulator.

// -----------------------------------------------------------------------------
// FakeSensor
// -----------------------------------------------------------------------------

type FakeSensor struct {
	DeciC   int16
	PressPa uint32
	Ready   types.Tick

	// TriggerErr/CollectErr are returned once per queued entry, then the
	// fake succeeds again. Use PushErr to script failure runs.
	triggerErrs []error
	collectErrs []error

	Triggers int
	Collects int
}

func NewFakeSensor(deciC int16, pressPa uint32) *FakeSensor {
	return &FakeSensor{DeciC: deciC, PressPa: pressPa, Ready: 1}
}

// PushTriggerErr queues an error for the next n Trigger calls.
func (f *FakeSensor) PushTriggerErr(err error, n int) {
	for i := 0; i < n; i++ {
		f.triggerErrs = append(f.triggerErrs, err)
	}
}

// PushCollectErr queues an error for the next n Collect calls.
func (f *FakeSensor) PushCollectErr(err error, n int) {
	for i := 0; i < n; i++ {
		f.collectErrs = append(f.collectErrs, err)
	}
}

func (f *FakeSensor) Trigger() error {
	f.Triggers++
	if len(f.triggerErrs) > 0 {
		err := f.triggerErrs[0]
		f.triggerErrs = f.triggerErrs[1:]
		return err
	}
	return nil
}

func (f *FakeSensor) ReadyAfter() types.Tick { return f.Ready }

func (f *FakeSensor) Collect() (int16, uint32, error) {
	f.Collects++
	if len(f.collectErrs) > 0 {
		err := f.collectErrs[0]
		f.collectErrs = f.collectErrs[1:]
		return 0, 0, err
	}
	return f.DeciC, f.PressPa, nil
}

// -----------------------------------------------------------------------------
// FakeDisplay
// -----------------------------------------------------------------------------

type FakeDisplay struct {
	Frames    int
	LastFrame []byte
	NextErr   error // returned once, then cleared
}

func (f *FakeDisplay) WriteFrame(buf []byte) error {
	if f.NextErr != nil {
		err := f.NextErr
		f.NextErr = nil
		return err
	}
	f.Frames++
	f.LastFrame = append(f.LastFrame[:0], buf...)
	return nil
}

// -----------------------------------------------------------------------------
// FakeButton
// -----------------------------------------------------------------------------

type FakeButton struct{ Down bool }

func (f *FakeButton) Pressed() bool { return f.Down }

// -----------------------------------------------------------------------------
// FakeRadio
// -----------------------------------------------------------------------------

// FakeRadio is a fully scripted Radio. Tests start operations through the
// production interface and complete them with the Complete*/DropLink
// helpers; the completions land on the same event stream the hardware
// driver uses.
type FakeRadio struct {
	ev chan RadioEvent

	busy       bool
	Connecting bool
	PendingSeq uint32 // seq of the in-flight request, 0 if none
	Connects   int
	Requests   []string // endpoints in start order
	Dropped    bool     // Disconnect was called
}

func NewFakeRadio() *FakeRadio {
	return &FakeRadio{ev: make(chan RadioEvent, 8)}
}

func (f *FakeRadio) StartConnect(creds types.Credentials) bool {
	if f.busy {
		return false
	}
	f.busy = true
	f.Connecting = true
	f.Connects++
	return true
}

func (f *FakeRadio) StartRequest(seq uint32, endpoint string) bool {
	if f.busy {
		return false
	}
	f.busy = true
	f.PendingSeq = seq
	f.Requests = append(f.Requests, endpoint)
	return true
}

func (f *FakeRadio) Disconnect() {
	f.Dropped = true
	f.busy = false
	f.Connecting = false
	f.PendingSeq = 0
}

func (f *FakeRadio) Events() <-chan RadioEvent { return f.ev }

// CompleteConnect finishes the in-flight connect attempt.
func (f *FakeRadio) CompleteConnect(err error) {
	f.busy = false
	f.Connecting = false
	f.ev <- RadioEvent{Kind: RadioConnectDone, Err: err}
}

// CompleteRequest finishes the in-flight request.
func (f *FakeRadio) CompleteRequest(seq uint32, body []byte, err error) {
	f.busy = false
	f.PendingSeq = 0
	f.ev <- RadioEvent{Kind: RadioRequestDone, Seq: seq, Body: body, Err: err}
}

// DropLink injects a link-layer disconnect event. Any in-flight request
// dies with it.
func (f *FakeRadio) DropLink() {
	f.busy = false
	f.Connecting = false
	f.PendingSeq = 0
	f.ev <- RadioEvent{Kind: RadioLinkDown, Err: errcode.NoConnection}
}
