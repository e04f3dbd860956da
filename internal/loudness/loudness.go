// Package loudness implements BS.1770/EBU R128 loudness metering —
// K-weighted momentary/short-term/integrated LUFS and oversampled true
// peak — grounded on a BS.1770 meter built with
// github.com/cwbudde/algo-dsp's biquad filter sections, adapted here to
// the fixed per-element scalable-encode pipeline instead of a generic
// streaming meter: per spec §4.6, absolute gate -70 LUFS, relative gate
// -10 LU below the ungated mean, 400ms blocks at 75% overlap.
package loudness

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/openiamf/iamfenc/internal/fixedpoint"
)

const (
	kWeightingShelfFreq = 1500.0
	kWeightingShelfGain = 4.0
	kWeightingHpfFreq   = 38.0

	momentaryDuration = 0.4
	shortTermDuration  = 3.0

	absThreshold    = -70.0
	relThreshold    = -10.0
	blockOverlap    = 0.75
	blockStepFactor = 1.0 - blockOverlap
)

// Meter implements ITU-R BS.1770 / EBU R128 loudness metering for one
// scalable element's final-layout channel set, per spec §4.6.
type Meter struct {
	sampleRate float64
	channels   int

	shelfFilters []*biquad.Section
	hpfFilters   []*biquad.Section

	momWindowSamples   int
	shortWindowSamples int
	momHistory         [][]float64
	shortHistory       [][]float64
	momWriteIdx        int
	shortWriteIdx      int

	momRunningSums   []float64
	shortRunningSums []float64

	integrationRunning bool
	blockSamplesStep   int
	samplesSinceStep   int

	blocks []float64

	truePeak   []float64
	oversample *TruePeakMeter
}

// New constructs a Meter for the given sample rate and channel count.
func New(sampleRate float64, channels int) *Meter {
	m := &Meter{sampleRate: sampleRate, channels: channels}
	m.reconfigure()
	return m
}

func (m *Meter) reconfigure() {
	m.shelfFilters = make([]*biquad.Section, m.channels)
	m.hpfFilters = make([]*biquad.Section, m.channels)

	q := 1.0 / math.Sqrt(2)
	shelfCoeffs := design.HighShelf(kWeightingShelfFreq, kWeightingShelfGain, q, m.sampleRate)
	hpfCoeffs := design.Highpass(kWeightingHpfFreq, q, m.sampleRate)

	for i := 0; i < m.channels; i++ {
		m.shelfFilters[i] = biquad.NewSection(shelfCoeffs)
		m.hpfFilters[i] = biquad.NewSection(hpfCoeffs)
	}

	m.momWindowSamples = int(math.Round(momentaryDuration * m.sampleRate))
	m.shortWindowSamples = int(math.Round(shortTermDuration * m.sampleRate))

	m.momHistory = make([][]float64, m.channels)
	m.shortHistory = make([][]float64, m.channels)
	for i := 0; i < m.channels; i++ {
		m.momHistory[i] = make([]float64, m.momWindowSamples)
		m.shortHistory[i] = make([]float64, m.shortWindowSamples)
	}

	m.momRunningSums = make([]float64, m.channels)
	m.shortRunningSums = make([]float64, m.channels)
	m.truePeak = make([]float64, m.channels)
	m.oversample = NewTruePeakMeter(m.channels, 4)

	m.blockSamplesStep = intMax(int(math.Round(momentaryDuration*blockStepFactor*m.sampleRate)), 1)

	m.Reset()
}

// Reset clears all integration state and peak values.
func (m *Meter) Reset() {
	for i := 0; i < m.channels; i++ {
		m.shelfFilters[i].Reset()
		m.hpfFilters[i].Reset()
		for j := range m.momHistory[i] {
			m.momHistory[i][j] = 0
		}
		for j := range m.shortHistory[i] {
			m.shortHistory[i][j] = 0
		}
		m.momRunningSums[i] = 0
		m.shortRunningSums[i] = 0
		m.truePeak[i] = 0
	}
	m.momWriteIdx = 0
	m.shortWriteIdx = 0
	m.samplesSinceStep = 0
	m.blocks = nil
	m.oversample.Reset()
}

// StartIntegration begins accumulating gated blocks for Integrated.
func (m *Meter) StartIntegration() { m.integrationRunning = true }

// StopIntegration stops accumulating blocks.
func (m *Meter) StopIntegration() { m.integrationRunning = false }

// ProcessSample processes one multichannel sample frame.
func (m *Meter) ProcessSample(samples []float64) {
	if len(samples) < m.channels {
		return
	}

	for i := 0; i < m.channels; i++ {
		val := m.shelfFilters[i].ProcessSample(samples[i])
		val = m.hpfFilters[i].ProcessSample(val)

		tp := m.oversample.Next(i, samples[i])
		if tp > m.truePeak[i] {
			m.truePeak[i] = tp
		}

		sq := val * val

		oldMom := m.momHistory[i][m.momWriteIdx]
		m.momHistory[i][m.momWriteIdx] = sq
		m.momRunningSums[i] += sq - oldMom
		if m.momRunningSums[i] < 0 {
			m.momRunningSums[i] = 0
		}

		oldShort := m.shortHistory[i][m.shortWriteIdx]
		m.shortHistory[i][m.shortWriteIdx] = sq
		m.shortRunningSums[i] += sq - oldShort
		if m.shortRunningSums[i] < 0 {
			m.shortRunningSums[i] = 0
		}
	}

	m.momWriteIdx = (m.momWriteIdx + 1) % m.momWindowSamples
	m.shortWriteIdx = (m.shortWriteIdx + 1) % m.shortWindowSamples

	if m.integrationRunning {
		m.samplesSinceStep++
		if m.samplesSinceStep >= m.blockSamplesStep {
			m.samplesSinceStep = 0
			meanSqSum := 0.0
			for i := 0; i < m.channels; i++ {
				meanSqSum += m.momRunningSums[i] / float64(m.momWindowSamples)
			}
			m.blocks = append(m.blocks, meanSqSum)
		}
	}
}

// ProcessBlock processes a block of interleaved samples.
func (m *Meter) ProcessBlock(block []float64) {
	for i := 0; i < len(block); i += m.channels {
		m.ProcessSample(block[i : i+m.channels])
	}
}

// Momentary returns the current momentary loudness in LUFS.
func (m *Meter) Momentary() float64 {
	meanSqSum := 0.0
	for i := 0; i < m.channels; i++ {
		meanSqSum += m.momRunningSums[i] / float64(m.momWindowSamples)
	}
	return toLUFS(meanSqSum)
}

// ShortTerm returns the current short-term loudness in LUFS.
func (m *Meter) ShortTerm() float64 {
	meanSqSum := 0.0
	for i := 0; i < m.channels; i++ {
		meanSqSum += m.shortRunningSums[i] / float64(m.shortWindowSamples)
	}
	return toLUFS(meanSqSum)
}

// Integrated returns the gated integrated loudness in LUFS since
// StartIntegration, per spec §4.6's two-stage absolute/relative gate.
func (m *Meter) Integrated() float64 {
	if len(m.blocks) == 0 {
		return math.Inf(-1)
	}

	var absGated []float64
	absGatedSum := 0.0
	for _, b := range m.blocks {
		if toLUFS(b) > absThreshold {
			absGated = append(absGated, b)
			absGatedSum += b
		}
	}
	if len(absGated) == 0 {
		return math.Inf(-1)
	}

	gammaRel := toLUFS(absGatedSum/float64(len(absGated))) + relThreshold

	var relGatedSum float64
	var relGatedCount int
	for _, b := range absGated {
		if toLUFS(b) > gammaRel {
			relGatedSum += b
			relGatedCount++
		}
	}
	if relGatedCount == 0 {
		return math.Inf(-1)
	}

	return toLUFS(relGatedSum / float64(relGatedCount))
}

// TruePeaks returns the maximum oversampled true-peak value per channel,
// in linear full-scale units, since Reset.
func (m *Meter) TruePeaks() []float64 {
	p := make([]float64, m.channels)
	copy(p, m.truePeak)
	return p
}

// TruePeaksDBTP returns TruePeaks converted to dBTP and quantized to the
// Q7.8 wire format spec §4.6 uses for loudness-info fields.
func (m *Meter) TruePeaksDBTP() []int16 {
	out := make([]int16, m.channels)
	for i, v := range m.TruePeaks() {
		db := linearToDB(v)
		out[i] = fixedpoint.EncodeQ7_8(db)
	}
	return out
}

// IntegratedQ7_8 returns Integrated quantized to Q7.8, clamping -Inf to the
// fixed-point format's minimum representable value rather than overflowing.
func (m *Meter) IntegratedQ7_8() int16 {
	lufs := m.Integrated()
	if math.IsInf(lufs, -1) {
		lufs = -128.0
	}
	return fixedpoint.EncodeQ7_8(lufs)
}

func toLUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return -120.0
	}
	return -0.691 + 10.0*math.Log10(meanSquare)
}

func linearToDB(v float64) float64 {
	if v <= 0 {
		return -120.0
	}
	return 20.0 * math.Log10(v)
}

func intMax(a, b int) int {
	if a > b {
		return a
	}
	return b
}
