package dsp

import "math"

// LevelFloorDBFS is the documented floor substituted for −Inf when a
// level is serialized or compared against alert thresholds.
const LevelFloorDBFS = -120.0

// LAeq returns the equivalent continuous level of the given (already
// weighted) samples in dB relative to digital full scale, where 1.0 is
// full scale. It is a single-pass energy mean over the whole burst:
//
//	LAeq = 10·log10(mean(x²))
//
// An empty or identically silent burst yields −Inf rather than a
// domain error; callers clamp with ClampLevel before serializing.
func LAeq(samples []float64) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, x := range samples {
		sum += x * x
	}
	mean := sum / float64(len(samples))
	if mean == 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(mean)
}

// ClampLevel bounds a level at the serialization floor.
func ClampLevel(db float64) float64 {
	if math.IsInf(db, -1) || db < LevelFloorDBFS {
		return LevelFloorDBFS
	}
	return db
}
