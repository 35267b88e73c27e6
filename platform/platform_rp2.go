//go:build rp2

package platform

import (
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"
	"tinygo.org/x/drivers/ssd1306"

	"envmon-go/drivers/bmp280"
	"envmon-go/errcode"
	"envmon-go/types"
)

// Pico wiring.
const (
	pinSDA    = machine.GP4
	pinSCL    = machine.GP5
	pinButton = machine.GP15

	oledAddress = 0x3C
)

// Setup configures the board peripherals. The sensor and the panel
// share I2C0; the application arbitrates access.
func Setup(cfg types.Config) (Devices, error) {
	initDebugUART()

	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       pinSDA,
		SCL:       pinSCL,
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		return Devices{}, &errcode.E{C: errcode.DriverFatal, Op: "platform.i2c", Err: err}
	}

	bmp := bmp280.New(machine.I2C0)
	if err := bmp.Configure(bmp280.Config{}); err != nil {
		return Devices{}, err
	}

	oled := ssd1306.NewI2C(machine.I2C0)
	oled.Configure(ssd1306.Config{Width: 128, Height: 64, Address: oledAddress})
	oled.ClearDisplay()

	link, _ := probe.Probe()
	radio := newAsyncRadio(
		time.Duration(cfg.RequestTimeoutMs)*time.Millisecond,
		func(creds types.Credentials) error {
			return link.NetConnect(&netlink.ConnectParams{
				Ssid:       creds.SSID,
				Passphrase: creds.Password,
			})
		},
		func() { link.NetDisconnect() },
	)
	link.NetNotify(func(e netlink.Event) {
		if e == netlink.EventNetDown {
			radio.linkDown(errcode.NoConnection)
		}
	})

	pinButton.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	return Devices{
		Sensor:  bmp,
		Display: &panel{dev: &oled},
		Radio:   radio,
		Button:  &pullupButton{pin: pinButton},
	}, nil
}

// panel flushes a pre-built page-layout frame to the SSD1306.
type panel struct {
	dev *ssd1306.Device
}

func (p *panel) WriteFrame(buf []byte) error {
	if err := p.dev.SetBuffer(buf); err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "panel.buffer", Err: err}
	}
	if err := p.dev.Display(); err != nil {
		return &errcode.E{C: errcode.BusNack, Op: "panel.flush", Err: err}
	}
	return nil
}

// pullupButton reads an active-low pushbutton.
type pullupButton struct {
	pin machine.Pin
}

func (b *pullupButton) Pressed() bool { return !b.pin.Get() }

// initDebugUART mirrors the boot banner on UART0 so a logic probe sees
// life before USB CDC enumerates.
func initDebugUART() {
	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{BaudRate: 115200}); err != nil {
		return
	}
	_, _ = u.Write([]byte("envmon boot\r\n"))
}
