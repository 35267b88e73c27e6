// Package hal declares the capability contracts the core drives. Each
// contract has a fixed, small set of implementations: real hardware on
// the rp2 platform build, scripted fakes everywhere else. Selection
// happens at init, never at runtime.
package hal

import (
	"envmon-go/types"
)

// I2C is the shared-bus transaction shape (write then repeated-start
// read, no internal queuing). It matches the tinygo drivers Tx contract,
// so machine.I2C satisfies it directly on hardware. Callers must
// serialise access through the bus arbiter.
type I2C interface {
	Tx(addr uint16, w, r []byte) error
}

// Sensor is the two-phase measurement contract of the onboard
// temperature/pressure device. Trigger and Collect are each a single bus
// transaction; the conversion wait between them happens without a lease.
type Sensor interface {
	// Trigger starts a one-shot measurement.
	Trigger() error
	// ReadyAfter is the conversion time as a tick count hint.
	ReadyAfter() types.Tick
	// Collect fetches the finished sample. It returns errcode.NotReady
	// while the conversion is still running.
	Collect() (deciC int16, pressPa uint32, err error)
}

// Display pushes a full frame to the panel. Invoked only while holding a
// bus lease. The buffer is in the panel's native 1bpp page layout.
type Display interface {
	WriteFrame(buf []byte) error
}

// Button reports the debounce-raw state of the mode-advance button.
type Button interface {
	Pressed() bool
}

// -----------------------------------------------------------------------------
// Radio
// -----------------------------------------------------------------------------

// RadioEventKind tags completions on the radio event stream.
type RadioEventKind uint8

const (
	// RadioConnectDone reports the outcome of StartConnect.
	RadioConnectDone RadioEventKind = iota
	// RadioRequestDone reports the outcome of StartRequest, matched by Seq.
	RadioRequestDone
	// RadioLinkDown is an unsolicited link-layer disconnect.
	RadioLinkDown
)

type RadioEvent struct {
	Kind RadioEventKind
	Seq  uint32 // request sequence, RadioRequestDone only
	Body []byte // response payload, successful RadioRequestDone only
	Err  error
}

// Radio is the asynchronous radio/network-stack contract. Start calls
// never block: the outcome arrives on Events, which the network task
// polls without blocking. At most one operation runs at a time; a Start
// while busy returns false.
type Radio interface {
	StartConnect(creds types.Credentials) bool
	StartRequest(seq uint32, endpoint string) bool
	// Disconnect drops the association. Safe to call in any state.
	Disconnect()
	Events() <-chan RadioEvent
}
