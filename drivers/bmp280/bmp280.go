// Package bmp280 provides a driver for the BMP280 temperature/pressure
// sensor. It exposes a two-phase measurement API:
//
//	d.Trigger()                  // start a forced-mode measurement (fast)
//	t, p, err := d.Collect()     // fetch when ready; errcode.NotReady while busy
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when
// both w and r are provided, without releasing the bus.
//
// The driver avoids floating-point: compensation is the datasheet integer
// pipeline, returning tenths of °C and pascals.
package bmp280

import (
	"envmon-go/errcode"
	"envmon-go/hal"
	"envmon-go/types"
)

// I2C address (SDO low). Boards with SDO high use 0x77.
const Address = 0x76

// Registers and bits.
const (
	regCalib    = 0x88
	regChipID   = 0xD0
	regReset    = 0xE0
	regStatus   = 0xF3
	regCtrlMeas = 0xF4
	regConfig   = 0xF5
	regData     = 0xF7

	chipID = 0x58

	statusMeasuring = 0x08

	// osrs_t x2, osrs_p x4, forced mode.
	ctrlForced = 2<<5 | 3<<2 | 0x01
)

type calibration struct {
	t1         uint16
	t2, t3     int16
	p1         uint16
	p2, p3, p4 int16
	p5, p6, p7 int16
	p8, p9     int16
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x76 if zero.
	Address uint16
}

// Device wraps an I2C connection to a BMP280. Each Trigger/Collect call
// is a single bus transaction; the caller holds the bus lease around it.
type Device struct {
	bus     hal.I2C
	Address uint16

	cal calibration
	buf [24]byte // reuse buffer to avoid allocations
}

var _ hal.Sensor = (*Device)(nil)

// New creates a new BMP280 connection. The I2C bus must already be
// configured. This function only creates the Device object; it does not
// touch the device.
func New(bus hal.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Configure probes the chip ID and loads the factory calibration.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}

	if err := d.bus.Tx(d.Address, []byte{regChipID}, d.buf[:1]); err != nil {
		return busErr("bmp280.probe", err)
	}
	if d.buf[0] != chipID {
		return &errcode.E{C: errcode.DriverFatal, Op: "bmp280.probe", Msg: "unexpected chip id"}
	}

	if err := d.bus.Tx(d.Address, []byte{regCalib}, d.buf[:24]); err != nil {
		return busErr("bmp280.calib", err)
	}
	b := d.buf[:24]
	u16 := func(i int) uint16 { return uint16(b[i]) | uint16(b[i+1])<<8 }
	d.cal = calibration{
		t1: u16(0), t2: int16(u16(2)), t3: int16(u16(4)),
		p1: u16(6), p2: int16(u16(8)), p3: int16(u16(10)), p4: int16(u16(12)),
		p5: int16(u16(14)), p6: int16(u16(16)), p7: int16(u16(18)),
		p8: int16(u16(20)), p9: int16(u16(22)),
	}

	// IIR filter off, shortest standby (irrelevant in forced mode).
	if err := d.bus.Tx(d.Address, []byte{regConfig, 0x00}, nil); err != nil {
		return busErr("bmp280.config", err)
	}
	return nil
}

// Trigger starts a one-shot forced-mode measurement.
func (d *Device) Trigger() error {
	if err := d.bus.Tx(d.Address, []byte{regCtrlMeas, ctrlForced}, nil); err != nil {
		return busErr("bmp280.trigger", err)
	}
	return nil
}

// ReadyAfter is the conversion time hint. At x2/x4 oversampling the chip
// converts in well under one tick.
func (d *Device) ReadyAfter() types.Tick { return 1 }

// Collect reads the finished sample and runs the integer compensation.
func (d *Device) Collect() (int16, uint32, error) {
	if err := d.bus.Tx(d.Address, []byte{regStatus}, d.buf[:1]); err != nil {
		return 0, 0, busErr("bmp280.status", err)
	}
	if d.buf[0]&statusMeasuring != 0 {
		return 0, 0, errcode.NotReady
	}

	if err := d.bus.Tx(d.Address, []byte{regData}, d.buf[:6]); err != nil {
		return 0, 0, busErr("bmp280.read", err)
	}
	adcP := int32(d.buf[0])<<12 | int32(d.buf[1])<<4 | int32(d.buf[2])>>4
	adcT := int32(d.buf[3])<<12 | int32(d.buf[4])<<4 | int32(d.buf[5])>>4

	centiC, tFine := d.compensateTemp(adcT)
	pa := d.compensatePress(adcP, tFine)
	return int16(centiC / 10), pa, nil
}

// compensateTemp returns temperature in centi-°C plus the t_fine carry
// used by the pressure pipeline. Datasheet integer formulas.
func (d *Device) compensateTemp(adcT int32) (int32, int32) {
	v1 := (((adcT >> 3) - (int32(d.cal.t1) << 1)) * int32(d.cal.t2)) >> 11
	v2 := (((((adcT >> 4) - int32(d.cal.t1)) * ((adcT >> 4) - int32(d.cal.t1))) >> 12) *
		int32(d.cal.t3)) >> 14
	tFine := v1 + v2
	return (tFine*5 + 128) >> 8, tFine
}

// compensatePress returns pressure in pascals (64-bit pipeline, Q24.8
// internally).
func (d *Device) compensatePress(adcP, tFine int32) uint32 {
	v1 := int64(tFine) - 128000
	v2 := v1 * v1 * int64(d.cal.p6)
	v2 += (v1 * int64(d.cal.p5)) << 17
	v2 += int64(d.cal.p4) << 35
	v1 = (v1*v1*int64(d.cal.p3))>>8 + ((v1 * int64(d.cal.p2)) << 12)
	v1 = ((int64(1)<<47 + v1) * int64(d.cal.p1)) >> 33
	if v1 == 0 {
		return 0 // avoid division by zero
	}
	p := int64(1048576) - int64(adcP)
	p = (((p << 31) - v2) * 3125) / v1
	v1 = (int64(d.cal.p9) * (p >> 13) * (p >> 13)) >> 25
	v2 = (int64(d.cal.p8) * p) >> 19
	p = ((p + v1 + v2) >> 8) + (int64(d.cal.p7) << 4)
	return uint32(p >> 8)
}

// busErr maps a low-level bus error to the device error taxonomy.
func busErr(op string, err error) error {
	c := errcode.Of(err)
	if c == errcode.Error {
		c = errcode.BusNack
	}
	return &errcode.E{C: c, Op: op, Err: err}
}
