//go:build rp2

// Command i2cscan probes every address on I2C0 and prints the devices
// that acknowledge. Flash it when a board comes back from assembly to
// confirm the sensor and the panel are wired.
package main

import (
	"machine"
	"time"

	"envmon-go/x/conv"
)

func main() {
	time.Sleep(2 * time.Second)
	println("i2c scan start")

	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.GP4,
		SCL:       machine.GP5,
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		println("i2c configure failed:", err.Error())
		return
	}

	var buf [1]byte
	var hex [2]byte
	found := 0
	for addr := uint16(0x08); addr < 0x78; addr++ {
		if err := machine.I2C0.Tx(addr, nil, buf[:]); err == nil {
			println("found device at 0x" + string(conv.U8Hex(hex[:], uint8(addr))))
			found++
		}
	}
	println("scan done,", found, "device(s)")

	for {
		time.Sleep(time.Minute)
	}
}
