package dsp

import "math"

// Analog pole frequencies of the standard A-weighting transfer function
// (IEC 61672), in Hz. The curve is
//
//	H(s) = w4²·s⁴ / ((s+w1)²·(s+w2)·(s+w3)·(s+w4)²)
//
// with wN = 2π·fN, normalized to unity gain at 1 kHz.
const (
	poleF1 = 20.598997
	poleF2 = 107.65265
	poleF3 = 737.86223
	poleF4 = 12194.217
)

// referenceFreq is the frequency at which the A-weighting curve is
// normalized to 0 dB.
const referenceFreq = 1000.0

// highpassCutoff is the rumble high-pass corner in Hz. Cheap USB
// microphones carry DC offset and sub-audible noise that would
// otherwise bias the level estimate.
const highpassCutoff = 20.0

// AWeighting returns the digital A-weighting filter for the given
// sample rate: three bilinear-transformed biquad sections with exact
// unity gain at 1 kHz. Coefficients depend on the sample rate only.
func AWeighting(sampleRate int) Chain {
	fs := float64(sampleRate)
	w1 := 2 * math.Pi * poleF1
	w2 := 2 * math.Pi * poleF2
	w3 := 2 * math.Pi * poleF3
	w4 := 2 * math.Pi * poleF4

	chain := Chain{
		bilinear(1, 0, 0, 1, 2*w1, w1*w1, fs),     // s² / (s+w1)²
		bilinear(1, 0, 0, 1, w2+w3, w2*w3, fs),    // s² / ((s+w2)·(s+w3))
		bilinear(0, 0, w4*w4, 1, 2*w4, w4*w4, fs), // w4² / (s+w4)²
	}

	// Fold the 1 kHz normalization into the first section.
	ref := chain.Response(referenceFreq, fs)
	chain[0].B0 /= ref
	chain[0].B1 /= ref
	chain[0].B2 /= ref

	return chain
}

// Highpass returns a 4th-order Butterworth high-pass at 20 Hz as two
// cascaded second-order sections. The cutoff is prewarped so the −3 dB
// point lands exactly on the corner after the bilinear transform.
func Highpass(sampleRate int) Chain {
	fs := float64(sampleRate)
	wc := 2 * fs * math.Tan(math.Pi*highpassCutoff/fs)

	// Butterworth pole-pair Q values for a 4th-order response.
	chain := make(Chain, 0, 2)
	for _, q := range []float64{0.5411961001, 1.3065629649} {
		chain = append(chain, bilinear(1, 0, 0, 1, wc/q, wc*wc, fs))
	}
	return chain
}

// WeightingChain composes the rumble high-pass and the A-weighting
// stage into the per-burst analysis filter.
func WeightingChain(sampleRate int) Chain {
	return append(Highpass(sampleRate), AWeighting(sampleRate)...)
}
