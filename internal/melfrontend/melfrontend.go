// Package melfrontend computes Kaldi-compatible 80-dimensional log-Mel
// filterbank features for the Speaker Engine, per spec.md §4.3.
// Adapted from the teacher's ai.MelProcessor: Hann window replaced
// with Hamming, pre-emphasis added, the mel range narrowed to
// [20Hz, 7600Hz], and the log floor tightened to 1e-10 with
// per-utterance mean normalisation.
package melfrontend

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	preEmphasisCoeff = 0.97
	melLowHz         = 20.0
	melHighHz        = 7600.0
	logFloor         = 1e-10
)

// Config describes frame geometry. WinLength/HopLength/NFFT are in
// samples.
type Config struct {
	SampleRate int
	NMels      int
	HopLength  int // 10ms at 16kHz = 160
	WinLength  int // 25ms at 16kHz = 400
	NFFT       int // 512
}

func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate: sampleRate,
		NMels:      80,
		HopLength:  sampleRate / 100,
		WinLength:  sampleRate / 40,
		NFFT:       512,
	}
}

// Processor computes log-mel features for a chunk of audio.
type Processor struct {
	cfg        Config
	melFilters [][]float64
	window     []float64
	fft        *fourier.FFT
}

func New(cfg Config) *Processor {
	return &Processor{
		cfg:        cfg,
		melFilters: createMelFilterbank(cfg.NFFT, cfg.NMels, cfg.SampleRate),
		window:     createHammingWindow(cfg.WinLength),
		fft:        fourier.NewFFT(cfg.NFFT),
	}
}

// Compute returns log-mel features shaped (n_frames, NMels), with the
// per-utterance mean subtracted from every coefficient.
func (p *Processor) Compute(samples []float32) ([][]float32, int) {
	emphasised := preEmphasise(samples, preEmphasisCoeff)

	numFrames := 1
	if len(emphasised) >= p.cfg.WinLength {
		numFrames = (len(emphasised)-p.cfg.WinLength)/p.cfg.HopLength + 1
	}

	melSpec := make([][]float32, numFrames)
	for frame := 0; frame < numFrames; frame++ {
		frameStart := frame * p.cfg.HopLength

		frameData := make([]float64, p.cfg.NFFT)
		for i := 0; i < p.cfg.WinLength; i++ {
			idx := frameStart + i
			if idx >= 0 && idx < len(emphasised) {
				frameData[i] = float64(emphasised[idx]) * p.window[i]
			}
		}

		coeffs := p.fft.Coefficients(nil, frameData)

		powerSpec := make([]float64, p.cfg.NFFT/2+1)
		for i := range powerSpec {
			re := real(coeffs[i])
			im := imag(coeffs[i])
			powerSpec[i] = re*re + im*im
		}

		melSpec[frame] = make([]float32, p.cfg.NMels)
		for m := 0; m < p.cfg.NMels; m++ {
			sum := 0.0
			for k := range powerSpec {
				sum += powerSpec[k] * p.melFilters[m][k]
			}
			if sum < logFloor {
				sum = logFloor
			}
			melSpec[frame][m] = float32(math.Log(sum))
		}
	}

	meanNormalise(melSpec)
	return melSpec, numFrames
}

func preEmphasise(samples []float32, coeff float64) []float32 {
	if len(samples) == 0 {
		return samples
	}
	out := make([]float32, len(samples))
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = samples[i] - float32(coeff)*samples[i-1]
	}
	return out
}

// meanNormalise subtracts the per-coefficient mean across all frames
// of the utterance, in place.
func meanNormalise(melSpec [][]float32) {
	if len(melSpec) == 0 {
		return
	}
	nMels := len(melSpec[0])
	means := make([]float64, nMels)
	for _, frame := range melSpec {
		for m, v := range frame {
			means[m] += float64(v)
		}
	}
	for m := range means {
		means[m] /= float64(len(melSpec))
	}
	for _, frame := range melSpec {
		for m := range frame {
			frame[m] -= float32(means[m])
		}
	}
}

func createMelFilterbank(nFFT, nMels, sampleRate int) [][]float64 {
	hzToMel := func(hz float64) float64 {
		return 2595.0 * math.Log10(1.0+hz/700.0)
	}
	melToHz := func(mel float64) float64 {
		return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
	}

	numBins := nFFT/2 + 1
	nyquist := float64(sampleRate) / 2.0
	highHz := math.Min(melHighHz, nyquist)

	allFreqs := make([]float64, numBins)
	for i := 0; i < numBins; i++ {
		allFreqs[i] = float64(i) * nyquist / float64(numBins-1)
	}

	mMin := hzToMel(melLowHz)
	mMax := hzToMel(highHz)
	fPts := make([]float64, nMels+2)
	for i := 0; i < nMels+2; i++ {
		mel := mMin + float64(i)*(mMax-mMin)/float64(nMels+1)
		fPts[i] = melToHz(mel)
	}

	fDiff := make([]float64, nMels+1)
	for i := 0; i < nMels+1; i++ {
		fDiff[i] = fPts[i+1] - fPts[i]
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		filters[m] = make([]float64, numBins)
		for k := 0; k < numBins; k++ {
			freq := allFreqs[k]
			lower := (freq - fPts[m]) / fDiff[m]
			upper := (fPts[m+2] - freq) / fDiff[m+1]
			val := math.Min(lower, upper)
			if val < 0 {
				val = 0
			}
			filters[m][k] = val
		}
	}

	return filters
}

func createHammingWindow(size int) []float64 {
	window := make([]float64, size)
	for i := 0; i < size; i++ {
		window[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(size-1))
	}
	return window
}
