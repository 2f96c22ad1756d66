package utils

// -----------------------------------------------------------------------------

// Window name -> milliseconds. Crypto streams run around the clock, so window
// boundaries are plain UTC-aligned intervals.
const (
	MillisPerSecond = int64(1000)
	MillisPerMinute = 60 * MillisPerSecond
	MillisPerHour   = 60 * MillisPerMinute
	MillisPerDay    = 24 * MillisPerHour
)

// -----------------------------------------------------------------------------

// WindowDurationMs parses window names like "1m", "5m", "1h", "1d".
// Unknown names return 0.
func WindowDurationMs(window string) int64 {
	if len(window) < 2 {
		return 0
	}

	unit := window[len(window)-1]
	n := int64(0)
	for _, c := range window[:len(window)-1] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	if n == 0 {
		return 0
	}

	switch unit {
	case 's':
		return n * MillisPerSecond
	case 'm':
		return n * MillisPerMinute
	case 'h':
		return n * MillisPerHour
	case 'd':
		return n * MillisPerDay
	default:
		return 0
	}
}
