// Package limiter implements the peak limiter applied after loudness
// normalisation: a look-ahead gain-riding limiter with an accelerating
// attack curve and an accelerating-curve release, grounded directly on
// audio_effect_peak_limiter.c. Per spec §4.5 the defaults are threshold
// -1.0 dBFS, attack 1ms, release 200ms, look-ahead 240 samples.
package limiter

import (
	"math"

	"github.com/openiamf/iamfenc/internal/ring"
)

const (
	DefaultThresholdDB = -1.0
	DefaultAttackSec   = 0.001
	DefaultReleaseSec  = 0.200
	DefaultLookahead   = 240
)

// Config mirrors audio_effect_peak_limiter_init's parameters.
type Config struct {
	ThresholdDB float64
	SampleRate  int
	Channels    int
	AttackSec   float64
	ReleaseSec  float64
	Lookahead   int
}

// DefaultConfig returns the spec §4.5 default limiter configuration for a
// given sample rate and channel count.
func DefaultConfig(sampleRate, channels int) Config {
	return Config{
		ThresholdDB: DefaultThresholdDB,
		SampleRate:  sampleRate,
		Channels:    channels,
		AttackSec:   DefaultAttackSec,
		ReleaseSec:  DefaultReleaseSec,
		Lookahead:   DefaultLookahead,
	}
}

// Limiter is a single-instance, all-channels-shared peak limiter: one
// look-ahead delay ring per channel, one shared gain-ride state machine
// driven by the worst-case peak across channels at each sample, per the
// original's single AudioEffectPeakLimiter handling ths->numChannels.
type Limiter struct {
	linearThreshold float64
	attackSec       float64
	releaseSec      float64
	incTC           float64
	channels        int
	lookahead       int

	delay []*ring.Ring // per-channel look-ahead delay line, raw signal
	peak  []*ring.Ring // per-channel look-ahead peak line, abs(signal)

	currentGain    float64
	targetStart    float64
	targetEnd      float64
	currentTC      float64
	haveTC         bool
	padsize        int
	warmedUp       bool
}

// New constructs a Limiter for cfg, pre-filling the look-ahead delay with
// silence (padsize == lookahead, matching init_default/..._init).
func New(cfg Config) *Limiter {
	l := &Limiter{
		linearThreshold: math.Pow(10, cfg.ThresholdDB/20),
		attackSec:       cfg.AttackSec,
		releaseSec:      cfg.ReleaseSec,
		incTC:           1.0 / float64(cfg.SampleRate),
		channels:        cfg.Channels,
		lookahead:       cfg.Lookahead,
		currentGain:     1.0,
		targetStart:     -1.0,
		targetEnd:       -1.0,
	}
	l.padsize = cfg.Lookahead
	l.delay = make([]*ring.Ring, cfg.Channels)
	l.peak = make([]*ring.Ring, cfg.Channels)
	for c := range l.delay {
		l.delay[c] = ring.New(cfg.Lookahead)
		l.peak[c] = ring.New(cfg.Lookahead)
		for i := 0; i < cfg.Lookahead; i++ {
			l.delay[c].Push(0)
			l.peak[c].Push(0)
		}
	}
	return l
}

// ProcessBlock limits one frame of per-channel PCM (in[channel] has length
// frameSize) in place into out[channel], returning the number of valid
// leading samples actually emitted once the initial look-ahead pre-roll is
// discarded (padsize logic from the original: the first Lookahead samples
// across the stream's lifetime are never emitted, since they are only
// ever the zero-filled warm-up delay).
func (l *Limiter) ProcessBlock(in [][]float64, out [][]float64, frameSize int) int {
	if l.lookahead <= 0 {
		for c := 0; c < l.channels; c++ {
			for k := 0; k < frameSize; k++ {
				out[c][k] = in[c][k]
			}
		}
		return frameSize
	}

	for k := 0; k < frameSize; k++ {
		peak := 0.0
		for c := 0; c < l.channels; c++ {
			v := l.peak[c].MaxOverWindow()
			if v > peak {
				peak = v
			}
		}

		gain := l.computeTargetGain(peak)

		for c := 0; c < l.channels; c++ {
			delayed := l.delay[c].Peek(l.lookahead - 1)
			l.delay[c].Push(in[c][k])
			out[c][k] = delayed * gain
			l.peak[c].Push(math.Abs(in[c][k]))
		}
	}

	if !l.warmedUp {
		if l.padsize >= frameSize {
			l.padsize -= frameSize
			return 0
		}
		discard := l.padsize
		emitted := frameSize - discard
		for c := 0; c < l.channels; c++ {
			copy(out[c], out[c][discard:frameSize])
		}
		l.padsize = 0
		l.warmedUp = true
		return emitted
	}
	return frameSize
}

// DelaySamples returns the limiter's reported output delay once warmed up:
// Lookahead - padsize, per audio_effect_peak_limiter_get_delay.
func (l *Limiter) DelaySamples() int {
	return l.lookahead - l.padsize
}

// computeTargetGain is the direct port of compute_target_gain: an
// accelerating-curve attack toward the target-end gain, followed by a
// symmetric release back to unity, re-triggered whenever the incoming
// peak would exceed the threshold under the current gain.
func (l *Limiter) computeTargetGain(peak float64) float64 {
	switch {
	case l.haveTC && l.currentTC < l.attackSec:
		l.currentTC += l.incTC
		ratio := curveAccel(l.currentTC / l.attackSec)
		l.currentGain = l.targetStart - ratio*(l.targetStart-l.targetEnd)
	case l.haveTC && l.currentTC < l.releaseSec+l.attackSec:
		l.currentTC += l.incTC
		ratio := curveAccel((l.currentTC - l.attackSec) / l.releaseSec)
		l.currentGain = l.targetEnd + ratio*(1.0-l.targetEnd)
	default:
		l.currentGain = 1.0
	}

	if peak*l.currentGain > l.linearThreshold {
		l.targetStart = l.currentGain
		if peak == 0 {
			l.targetEnd = 1.0
		} else {
			l.targetEnd = l.linearThreshold / peak
		}
		l.currentTC = 0.0
		l.haveTC = true
	}

	return l.currentGain
}

// curveAccel is the fixed x=0,y=0 -> x=1,y=1 accelerating curve from
// curve_accel: 1 - (x-1)^2, clamped to [0,1] outside its domain.
func curveAccel(x float64) float64 {
	if x > 1.0 {
		return 1.0
	}
	if x < 0.0 {
		return 0.0
	}
	return 1.0 - (x-1.0)*(x-1.0)
}
