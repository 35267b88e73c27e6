//go:build !rp2

package platform

import (
	"time"

	"envmon-go/hal"
	"envmon-go/types"
)

// Setup on the host wires fake sensor and panel devices with a real
// HTTP radio, so the full stack runs on a workstation (and under the
// simulator) against live endpoints.
func Setup(cfg types.Config) (Devices, error) {
	radio := newAsyncRadio(
		time.Duration(cfg.RequestTimeoutMs)*time.Millisecond,
		func(types.Credentials) error { return nil }, // no association on a host NIC
		func() {},
	)
	return Devices{
		Sensor:  hal.NewFakeSensor(221, 101325),
		Display: &hal.FakeDisplay{},
		Radio:   radio,
		Button:  &hal.FakeButton{},
	}, nil
}
