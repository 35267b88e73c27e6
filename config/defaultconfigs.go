package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "wifi": {
      "ssid": "changeme",
      "password": "changeme"
  },
  "weather_endpoint": "http://api.open-meteo.com/v1/forecast?latitude=51.5&longitude=-0.1&current_weather=true",
  "time_endpoint": "http://worldtimeapi.org/api/timezone/Etc/UTC",
  "sample_period_ms": 10000,
  "rotate_period_ms": 5000,
  "fetch_period_ms": 900000
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
