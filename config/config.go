// Package config resolves the immutable device configuration from an
// embedded JSON blob, keyed by device name. The parsed Config is read
// once at init; the raw keys are additionally published retained on the
// bus so diagnostic clients can inspect them.
package config

import (
	"envmon-go/bus"
	"envmon-go/errcode"
	"envmon-go/types"
	"envmon-go/x/jsonx"
)

const topicPrefix = "config"

// EmbeddedConfigLookup allows tests and alternate builds to override
// how raw config blobs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Load parses the embedded blob for device and fills defaults.
func Load(device string) (types.Config, error) {
	var cfg types.Config
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return cfg, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Msg: "no embedded config for " + device}
	}
	obj, err := jsonx.Object(raw)
	if err != nil {
		return cfg, err
	}

	if wifi, ok := obj["wifi"].(map[string]any); ok {
		cfg.Wifi.SSID, _ = jsonx.Str(wifi, "ssid")
		cfg.Wifi.Password, _ = jsonx.Str(wifi, "password")
	}
	cfg.WeatherEndpoint, _ = jsonx.Str(obj, "weather_endpoint")
	cfg.TimeEndpoint, _ = jsonx.Str(obj, "time_endpoint")

	ms := func(key string, dst *uint32) {
		if v, ok := jsonx.Num(obj, key); ok && v >= 0 {
			*dst = uint32(v)
		}
	}
	ms("sample_period_ms", &cfg.SamplePeriodMs)
	ms("render_period_ms", &cfg.RenderPeriodMs)
	ms("rotate_period_ms", &cfg.RotatePeriodMs)
	ms("fetch_period_ms", &cfg.FetchPeriodMs)
	ms("sync_period_ms", &cfg.SyncPeriodMs)
	ms("stale_after_ms", &cfg.StaleAfterMs)
	ms("request_timeout_ms", &cfg.RequestTimeoutMs)
	ms("backoff_base_ms", &cfg.BackoffBaseMs)
	ms("backoff_cap_ms", &cfg.BackoffCapMs)

	cfg.Defaults()
	return cfg, nil
}

// PublishRaw publishes every top-level key of the device blob as a
// retained message under config/<key>.
func PublishRaw(device string, conn *bus.Connection) error {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.publish", Msg: "no embedded config for " + device}
	}
	obj, err := jsonx.Object(raw)
	if err != nil {
		return err
	}
	for k, v := range obj {
		conn.Publish(conn.NewMessage(bus.T(topicPrefix, k), v, true))
	}
	return nil
}
