package types

// Tick is a monotonic count of scheduler ticks since boot.
type Tick uint64

// TickHz is the system tick rate. All periods and timeouts configured in
// milliseconds are converted to ticks once at init.
const TickHz = 10

// TicksFromMs converts a millisecond duration to whole ticks (minimum 1
// for any non-zero input, so short periods never collapse to "every pass").
func TicksFromMs(ms uint32) Tick {
	if ms == 0 {
		return 0
	}
	t := Tick(ms) * TickHz / 1000
	if t == 0 {
		t = 1
	}
	return t
}

// ---- Sensor reading (single writer: SensorTask) ----

// Reading is the latest published sensor sample. Fixed-point, small types
// to suit TinyGo: DeciC in tenths of °C, PressPa in pascals.
type Reading struct {
	DeciC   int16
	PressPa uint32
	At      Tick
	// Valid is false until the first successful sample and after the
	// sensor has missed several periods in a row. Consumers show an
	// unavailable indicator instead of a stale number.
	Valid bool
}

// ---- Wall clock (single writer: ClockTask) ----

type ClockState struct {
	Epoch uint32 // seconds since Unix epoch, local base
	// Synced is false until the first successful network sync; the
	// display shows a placeholder instead of 1970.
	Synced bool
	// DriftCorrected is true once the most recent sync correction has
	// fully landed (large corrections are slewed in, not jumped).
	DriftCorrected bool
}

// ---- Weather snapshot (single writer: WeatherTask) ----

type WeatherSnapshot struct {
	DeciC     int16  // remote temperature, tenths of °C
	RHx100    uint16 // relative humidity, hundredths of %
	Condition uint8  // condition code, see ConditionText
	ServerTS  uint32 // server timestamp, unix seconds
	FetchedAt Tick
	Valid     bool
}

// Stale reports whether the snapshot is older than threshold. An invalid
// snapshot is never "stale" - it is simply absent.
func (w WeatherSnapshot) Stale(now, threshold Tick) bool {
	if !w.Valid {
		return false
	}
	return now-w.FetchedAt > threshold
}

// ConditionText maps a small condition code to a display label.
// Codes follow the WMO weather interpretation groups the remote API uses.
func ConditionText(code uint8) string {
	switch {
	case code == 0:
		return "Clear"
	case code <= 3:
		return "Cloudy"
	case code <= 48:
		return "Fog"
	case code <= 67:
		return "Rain"
	case code <= 77:
		return "Snow"
	case code <= 82:
		return "Showers"
	case code <= 99:
		return "Storm"
	default:
		return "?"
	}
}

// ---- Connection state (single writer: NetworkTask) ----

type LinkState uint8

const (
	Disconnected LinkState = iota
	Connecting
	Connected
	Degraded
)

func (s LinkState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

// Online reports whether requests are worth attempting at all.
func (s LinkState) Online() bool { return s == Connected || s == Degraded }

type ConnState struct {
	Link      LinkState
	Retries   uint16 // consecutive failed connect attempts
	LastError string // short code of the most recent failure, "" if none
}

// ---- Device state (single writer: App, via the scheduler fatal hook) ----

type DeviceState struct {
	Safe   bool   // degraded "safe display" mode
	Reason string // short code of the fault that tripped it
}
