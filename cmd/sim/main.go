// Command sim runs the device against a desktop window: the panel
// frame buffer is shown scaled, space acts as the mode button, and the
// sensor wobbles around room temperature. The radio is the host HTTP
// stack, so the weather and time paths are live.
package main

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"envmon-go/app"
	"envmon-go/config"
	"envmon-go/hal"
	"envmon-go/platform"
	"envmon-go/tasks/display"
	"envmon-go/types"
)

func main() {
	cfg, err := config.Load(platform.DeviceName)
	if err != nil {
		println("[sim] config:", err.Error(), "- using defaults")
		cfg = types.Config{}
		cfg.Defaults()
	}
	devs, err := platform.Setup(cfg)
	if err != nil {
		println("[sim] setup failed:", err.Error())
		return
	}

	sensor := hal.NewFakeSensor(221, 101325)
	panel := &simPanel{}
	btn := &hal.FakeButton{}
	a := app.New(cfg, app.Hardware{
		Sensor:  sensor,
		Display: panel,
		Radio:   devs.Radio,
		Button:  btn,
	})
	a.PublishConfig(platform.DeviceName)

	g := &game{a: a, panel: panel, sensor: sensor, btn: btn}
	ebiten.SetWindowTitle("envmon")
	ebiten.SetWindowSize(display.Width*4, display.Height*4)
	ebiten.SetTPS(types.TickHz)
	if err := ebiten.RunGame(g); err != nil {
		println("[sim]", err.Error())
	}
}

// simPanel keeps the last flushed frame for the draw pass. Update and
// Draw run on the same goroutine, so no locking is needed.
type simPanel struct {
	buf [display.Width * display.Height / 8]byte
}

func (p *simPanel) WriteFrame(b []byte) error {
	copy(p.buf[:], b)
	return nil
}

type game struct {
	a      *app.App
	panel  *simPanel
	sensor *hal.FakeSensor
	btn    *hal.FakeButton

	img   *image.RGBA
	fbImg *ebiten.Image
	tick  int
}

func (g *game) Update() error {
	g.btn.Down = ebiten.IsKeyPressed(ebiten.KeySpace)
	g.wobble()
	g.a.RunTick()
	return nil
}

// wobble sweeps the fake sensor over a few degrees so the history and
// comfort labels move.
func (g *game) wobble() {
	g.tick++
	phase := int16(g.tick / int(types.TickHz) % 60)
	if phase > 30 {
		phase = 60 - phase
	}
	g.sensor.DeciC = 205 + phase
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, display.Width, display.Height))
		g.fbImg = ebiten.NewImage(display.Width, display.Height)
	}
	dst := g.img.Pix
	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			var v byte
			if g.panel.buf[x+y/8*display.Width]&(1<<(uint(y)%8)) != 0 {
				v = 0xFF
			}
			j := (y*display.Width + x) * 4
			dst[j+0] = 0
			dst[j+1] = v
			dst[j+2] = v / 2
			dst[j+3] = 0xFF
		}
	}
	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return display.Width, display.Height
}
