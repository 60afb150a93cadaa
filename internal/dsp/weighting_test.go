package dsp

import (
	"math"
	"testing"
)

// dbAt returns the chain's magnitude response at freq in dB.
func dbAt(c Chain, freq, sampleRate float64) float64 {
	return 20 * math.Log10(c.Response(freq, sampleRate))
}

func TestAWeightingUnityAtReference(t *testing.T) {
	for _, rate := range []float64{44100, 48000} {
		chain := AWeighting(int(rate))
		db := dbAt(chain, 1000, rate)
		if math.Abs(db) > 0.01 {
			t.Errorf("rate %.0f: A-weighting at 1 kHz = %.4f dB, want 0", rate, db)
		}
	}
}

func TestAWeightingCurveShape(t *testing.T) {
	// Expected values from the IEC 61672 analog curve. The digital
	// realization drifts near Nyquist, so tolerances widen with
	// frequency.
	tests := []struct {
		freq      float64
		wantDB    float64
		tolerance float64
	}{
		{31.5, -39.4, 0.5},
		{63, -26.2, 0.5},
		{100, -19.1, 0.3},
		{200, -10.9, 0.3},
		{500, -3.2, 0.2},
		{2000, 1.2, 0.2},
		{4000, 1.0, 0.3},
		{8000, -1.1, 1.0},
	}

	for _, rate := range []float64{44100, 48000} {
		chain := AWeighting(int(rate))
		for _, tt := range tests {
			db := dbAt(chain, tt.freq, rate)
			if math.Abs(db-tt.wantDB) > tt.tolerance {
				t.Errorf("rate %.0f: A-weighting at %.1f Hz = %.2f dB, want %.2f±%.2f",
					rate, tt.freq, db, tt.wantDB, tt.tolerance)
			}
		}
	}
}

func TestHighpassRejectsInfrasound(t *testing.T) {
	for _, rate := range []float64{44100, 48000} {
		chain := Highpass(int(rate))

		// Passband essentially flat
		if db := dbAt(chain, 1000, rate); math.Abs(db) > 0.1 {
			t.Errorf("rate %.0f: highpass at 1 kHz = %.3f dB, want ~0", rate, db)
		}
		// -3 dB point at the cutoff
		if db := dbAt(chain, 20, rate); math.Abs(db-(-3.01)) > 0.2 {
			t.Errorf("rate %.0f: highpass at 20 Hz = %.2f dB, want -3", rate, db)
		}
		// Steep rejection below
		if db := dbAt(chain, 5, rate); db > -40 {
			t.Errorf("rate %.0f: highpass at 5 Hz = %.2f dB, want < -40", rate, db)
		}
	}
}

func TestWeightingChainCombinedAt50Hz(t *testing.T) {
	for _, rate := range []float64{44100, 48000} {
		chain := WeightingChain(int(rate))
		if db := dbAt(chain, 50, rate); db > -19 {
			t.Errorf("rate %.0f: chain at 50 Hz = %.2f dB, want <= -19", rate, db)
		}
	}
}

func TestWeightingChainStability(t *testing.T) {
	chain := WeightingChain(48000)

	// White-ish deterministic input; a stable chain keeps bounded output.
	samples := make([]float64, 48000)
	seed := uint64(1)
	for i := range samples {
		seed = seed*6364136223846793005 + 1442695040888963407
		samples[i] = float64(int64(seed>>11))/float64(1<<52) - 1
	}

	out := chain.Filter(samples)
	for i, v := range out {
		if math.IsNaN(v) || math.Abs(v) > 10 {
			t.Fatalf("unstable output %v at sample %d", v, i)
		}
	}
}

func TestFilterResetsBetweenBursts(t *testing.T) {
	chain := WeightingChain(48000)

	impulse := make([]float64, 1024)
	impulse[0] = 1

	first := chain.Filter(impulse)
	second := chain.Filter(impulse)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("burst state leaked: sample %d differs (%v vs %v)", i, first[i], second[i])
		}
	}
}
