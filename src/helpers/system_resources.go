package helpers

// -----------------------------------------------------------------------------
// Memory sizing for the in-memory trade buffers.
// -----------------------------------------------------------------------------

const (
	fallbackMemoryMB = 256
	// Share of physical RAM the trade buffers may occupy.
	bufferMemoryShare = 0.5
)

// RecommendedBufferMemoryMB returns a safe budget for the per-symbol trade
// ring buffers: half of physical RAM, with a floor for constrained hosts and
// a conservative fallback when the probe fails.
func RecommendedBufferMemoryMB() int {
	totalMB := TotalSystemMemoryMB()
	if totalMB == 0 {
		return fallbackMemoryMB
	}

	limit := int(float64(totalMB) * bufferMemoryShare)
	if limit < fallbackMemoryMB {
		if totalMB < fallbackMemoryMB {
			return totalMB
		}
		return fallbackMemoryMB
	}
	return limit
}
