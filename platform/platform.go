// Package platform binds the abstract driver contracts to a concrete
// board. The rp2 build talks to real silicon; every other build gets
// host devices so the core runs in tests and the simulator unchanged.
package platform

import "envmon-go/hal"

// DeviceName selects the embedded config blob.
const DeviceName = "pico"

// Devices is the set of drivers handed to the application.
type Devices struct {
	Sensor  hal.Sensor
	Display hal.Display
	Radio   hal.Radio
	Button  hal.Button
}
