package clock

// 60000 ms per minute * 4 beats per bar. Bars are 4/4 at the given tempo,
// which is also what puts TicksPerBar at 96 (24 ticks per quarter note).
const millisPerBarAt1BPM = 240000.0

// BarsToMillis converts a bar position to virtual milliseconds at the given tempo.
func BarsToMillis(bars, bpm float64) float64 {
	return bars * millisPerBarAt1BPM / bpm
}

// MillisToBars converts virtual milliseconds to a bar position at the given tempo.
// Exact inverse of BarsToMillis for a fixed tempo.
func MillisToBars(millis, bpm float64) float64 {
	return millis * bpm / millisPerBarAt1BPM
}
