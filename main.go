package main

import (
	"time"

	"envmon-go/app"
	"envmon-go/config"
	"envmon-go/platform"
	"envmon-go/types"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	cfg, err := config.Load(platform.DeviceName)
	if err != nil {
		println("[main] config:", err.Error(), "- using defaults")
		cfg = types.Config{}
		cfg.Defaults()
	}

	devs, err := platform.Setup(cfg)
	if err != nil {
		// A board that cannot bring up its bus still keeps a console
		// alive for diagnosis instead of resetting in a loop.
		println("[main] setup failed:", err.Error())
		for {
			time.Sleep(time.Minute)
		}
	}

	a := app.New(cfg, app.Hardware{
		Sensor:  devs.Sensor,
		Display: devs.Display,
		Radio:   devs.Radio,
		Button:  devs.Button,
	})
	a.PublishConfig(platform.DeviceName)
	a.Run()
}
