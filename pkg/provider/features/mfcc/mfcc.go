// Package mfcc implements a mel-frequency cepstral coefficient feature
// extractor.
//
// The extractor mirrors the preprocessing the classifier model was trained
// with: a short-time Fourier transform over the frame, a mel filterbank, a
// log compression, a DCT-II, and finally a mean over all STFT windows so that
// one frame yields a single fixed-length vector (40 coefficients by default).
//
// The filterbank and DCT basis are precomputed at construction; Extract is a
// pure function of the frame.
package mfcc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/arimelio/hearken/pkg/audio"
	"github.com/arimelio/hearken/pkg/provider/features"
)

const (
	// DefaultCoefficients is the number of cepstral coefficients kept per
	// window, and therefore the extractor's output dimensionality.
	DefaultCoefficients = 40

	defaultFFTSize  = 2048
	defaultHopSize  = 512
	defaultMelBands = 128

	// logFloor avoids log(0) for silent mel bands.
	logFloor = 1e-10
)

// Compile-time assertion that Extractor implements features.Extractor.
var _ features.Extractor = (*Extractor)(nil)

// Option is a functional option for configuring an Extractor.
type Option func(*Extractor)

// WithCoefficients sets the number of cepstral coefficients (the output
// dimensionality). Defaults to 40.
func WithCoefficients(n int) Option {
	return func(e *Extractor) { e.numCoeff = n }
}

// WithFFTSize sets the STFT window length in samples. Defaults to 2048.
func WithFFTSize(n int) Option {
	return func(e *Extractor) { e.fftSize = n }
}

// WithHopSize sets the STFT hop length in samples. Defaults to 512.
func WithHopSize(n int) Option {
	return func(e *Extractor) { e.hopSize = n }
}

// WithMelBands sets the number of mel filterbank bands. Defaults to 128.
func WithMelBands(n int) Option {
	return func(e *Extractor) { e.melBands = n }
}

// Extractor computes mean-pooled MFCC vectors for fixed-length frames.
type Extractor struct {
	sampleRate   int
	frameSamples int
	numCoeff     int
	fftSize      int
	hopSize      int
	melBands     int

	fft        *fourier.FFT
	window     []float64   // Hann window, length fftSize
	filterbank [][]float64 // melBands x (fftSize/2 + 1)
	dctBasis   [][]float64 // numCoeff x melBands
}

// New creates an Extractor for frames of exactly frameSamples samples at
// sampleRate Hz.
func New(sampleRate, frameSamples int, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		sampleRate:   sampleRate,
		frameSamples: frameSamples,
		numCoeff:     DefaultCoefficients,
		fftSize:      defaultFFTSize,
		hopSize:      defaultHopSize,
		melBands:     defaultMelBands,
	}
	for _, o := range opts {
		o(e)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("mfcc: sample rate %d is invalid", sampleRate)
	}
	if frameSamples < e.fftSize {
		return nil, fmt.Errorf("mfcc: frame of %d samples is shorter than the FFT window (%d)", frameSamples, e.fftSize)
	}
	if e.numCoeff <= 0 || e.numCoeff > e.melBands {
		return nil, fmt.Errorf("mfcc: coefficient count %d must be in [1, %d]", e.numCoeff, e.melBands)
	}
	if e.hopSize <= 0 {
		return nil, fmt.Errorf("mfcc: hop size %d is invalid", e.hopSize)
	}

	e.fft = fourier.NewFFT(e.fftSize)
	e.window = hannWindow(e.fftSize)
	e.filterbank = melFilterbank(e.melBands, e.fftSize, sampleRate)
	e.dctBasis = dctII(e.numCoeff, e.melBands)
	return e, nil
}

// Dimensions returns the output vector length.
func (e *Extractor) Dimensions() int {
	return e.numCoeff
}

// Extract computes the mean MFCC vector for one frame. The frame must carry
// exactly the sample count and rate the extractor was built for.
func (e *Extractor) Extract(frame audio.Frame) ([]float64, error) {
	if len(frame.Samples) != e.frameSamples {
		return nil, fmt.Errorf("mfcc: frame has %d samples, want %d", len(frame.Samples), e.frameSamples)
	}
	if frame.SampleRate != e.sampleRate {
		return nil, fmt.Errorf("mfcc: frame sample rate %d, want %d", frame.SampleRate, e.sampleRate)
	}

	bins := e.fftSize/2 + 1
	segment := make([]float64, e.fftSize)
	spectrum := make([]complex128, bins)
	power := make([]float64, bins)
	melEnergy := make([]float64, e.melBands)
	sum := make([]float64, e.numCoeff)

	windows := 0
	for start := 0; start+e.fftSize <= len(frame.Samples); start += e.hopSize {
		for i := 0; i < e.fftSize; i++ {
			segment[i] = float64(frame.Samples[start+i]) * e.window[i]
		}
		e.fft.Coefficients(spectrum, segment)
		for i, c := range spectrum {
			re, im := real(c), imag(c)
			power[i] = re*re + im*im
		}

		for m, filter := range e.filterbank {
			var acc float64
			for i, w := range filter {
				if w != 0 {
					acc += w * power[i]
				}
			}
			melEnergy[m] = math.Log(math.Max(acc, logFloor))
		}

		for k, basis := range e.dctBasis {
			var acc float64
			for m, b := range basis {
				acc += b * melEnergy[m]
			}
			sum[k] += acc
		}
		windows++
	}

	out := make([]float64, e.numCoeff)
	inv := 1.0 / float64(windows)
	for k := range sum {
		out[k] = sum[k] * inv
	}
	return out, nil
}

// hannWindow returns an n-point Hann window.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// hzToMel converts a frequency in Hz to the HTK mel scale.
func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// melToHz converts an HTK mel value back to Hz.
func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds bands triangular filters spanning 0 Hz to the Nyquist
// frequency, evaluated at the fftSize/2+1 STFT bin centres.
func melFilterbank(bands, fftSize, sampleRate int) [][]float64 {
	bins := fftSize/2 + 1
	maxMel := hzToMel(float64(sampleRate) / 2)

	// bands+2 edge points in mel space, converted to bin indices.
	edges := make([]float64, bands+2)
	for i := range edges {
		hz := melToHz(maxMel * float64(i) / float64(bands+1))
		edges[i] = hz * float64(fftSize) / float64(sampleRate)
	}

	fb := make([][]float64, bands)
	for m := range fb {
		filter := make([]float64, bins)
		left, centre, right := edges[m], edges[m+1], edges[m+2]
		for i := 0; i < bins; i++ {
			f := float64(i)
			switch {
			case f > left && f < centre:
				filter[i] = (f - left) / (centre - left)
			case f >= centre && f < right:
				filter[i] = (right - f) / (right - centre)
			}
		}
		fb[m] = filter
	}
	return fb
}

// dctII builds an orthonormal DCT-II basis of numCoeff rows over melBands
// inputs.
func dctII(numCoeff, melBands int) [][]float64 {
	basis := make([][]float64, numCoeff)
	scale := math.Sqrt(2 / float64(melBands))
	for k := range basis {
		row := make([]float64, melBands)
		for m := range row {
			row[m] = scale * math.Cos(math.Pi*float64(k)*(2*float64(m)+1)/(2*float64(melBands)))
		}
		if k == 0 {
			for m := range row {
				row[m] /= math.Sqrt2
			}
		}
		basis[k] = row
	}
	return basis
}
