package rtdb

const (
	// RawMax is the largest value of the 10-bit converter domain.
	RawMax = 1023
	// FullScaleMillivolts is the voltage reported for RawMax.
	FullScaleMillivolts = 3000
)

// Scale converts a raw reading into millivolts, rounded to nearest.
func Scale(raw uint16) uint16 {
	return uint16((uint32(raw)*FullScaleMillivolts + RawMax/2) / RawMax)
}

// InRange tells whether raw is within the converter domain.
func InRange(raw uint16) bool {
	return raw <= RawMax
}
