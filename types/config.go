package types

// ---- Device configuration ----
// Loaded once at init from the embedded config blob and immutable after.

type Credentials struct {
	SSID     string
	Password string
}

type Config struct {
	Wifi Credentials

	// Remote endpoints. The weather endpoint carries the API key baked in
	// (the key is opaque to the core, per the interface contract).
	WeatherEndpoint string
	TimeEndpoint    string

	// Periods and thresholds, milliseconds.
	SamplePeriodMs   uint32 // sensor sampling
	RenderPeriodMs   uint32 // display refresh
	RotatePeriodMs   uint32 // display mode rotation
	FetchPeriodMs    uint32 // weather fetch
	SyncPeriodMs     uint32 // clock resync
	StaleAfterMs     uint32 // weather staleness threshold
	RequestTimeoutMs uint32 // network request timeout

	// Connect retry backoff, milliseconds.
	BackoffBaseMs uint32
	BackoffCapMs  uint32
}

// Defaults fills any zero field with its default. Called once by the
// config loader so tasks never re-check.
func (c *Config) Defaults() {
	if c.SamplePeriodMs == 0 {
		c.SamplePeriodMs = 10_000
	}
	if c.RenderPeriodMs == 0 {
		c.RenderPeriodMs = 1_000
	}
	if c.RotatePeriodMs == 0 {
		c.RotatePeriodMs = 5_000
	}
	if c.FetchPeriodMs == 0 {
		c.FetchPeriodMs = 15 * 60_000
	}
	if c.SyncPeriodMs == 0 {
		c.SyncPeriodMs = 60 * 60_000
	}
	if c.StaleAfterMs == 0 {
		c.StaleAfterMs = 30 * 60_000
	}
	if c.RequestTimeoutMs == 0 {
		c.RequestTimeoutMs = 5_000
	}
	if c.BackoffBaseMs == 0 {
		c.BackoffBaseMs = 2_000
	}
	if c.BackoffCapMs == 0 {
		c.BackoffCapMs = 60_000
	}
}
