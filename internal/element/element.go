// Package element holds the in-memory descriptor records an encoder
// handle accumulates before authoring descriptor OBUs: audio elements and
// mix presentations, per spec §3's Audio Element and Mix Presentation
// types, grounded on MixPresentation/ElementMixConfig/LoudnessInfo/
// IAMFLayout in IAMF_encoder.h.
package element

import (
	"fmt"

	"github.com/openiamf/iamfenc/internal/layout"
	"github.com/openiamf/iamfenc/internal/paramblock"
)

// MaxMeasuredLayoutNum bounds how many target layouts a mix presentation
// may carry measured loudness for, per MAX_MEASURED_LAYOUT_NUM.
const MaxMeasuredLayoutNum = 10

// MaxLoudspeakersNum bounds an explicit loudspeaker-label layout's
// speaker count, per MAX_LOUDSPEAKERS_NUM.
const MaxLoudspeakersNum = 256

// AudioElement is one scalable-channel-audio element: a channel-based
// source layered up the scalable ladder (spec §3, §4.1-§4.4). It holds the
// element ID, its layout chain and its codec ID; down-mix and recon-gain
// parameters are not stored here.
type AudioElement struct {
	ID           uint32
	ChannelChain layout.Chain
	CodecID      int
}

// Validate checks the element's channel-layout ladder for spec §3's
// monotonicity invariant.
func (e AudioElement) Validate() error {
	if err := layout.ValidateLadder(e.ChannelChain); err != nil {
		return fmt.Errorf("element %d: %w", e.ID, err)
	}
	return nil
}

// SoundSystem enumerates the target sound systems a mix presentation's
// measured layouts use, per IAMF_SoundSystem / sound_system in
// IAMF_encoder.h.
type SoundSystem int

const (
	SoundSystemA SoundSystem = iota
	SoundSystemB
	SoundSystemC
	SoundSystemD
	SoundSystemE
	SoundSystemF
	SoundSystemG
	SoundSystemH
	SoundSystemI
	SoundSystemJ
)

// LayoutType selects how a target layout is specified, per layout_type in
// IAMFLayout.
type LayoutType int

const (
	LayoutTypeNotDefined LayoutType = iota
	LayoutTypeLoudspeakersSPLabel
	LayoutTypeLoudspeakersSoundSystem
	LayoutTypeBinaural
)

// TargetLayout is one playback layout a mix presentation reports measured
// loudness for, grounded on IAMFLayout.
type TargetLayout struct {
	Type            LayoutType
	NumLoudspeakers int
	SPLabel         []uint32 // len == NumLoudspeakers when Type == LoudspeakersSPLabel
	SoundSystem     SoundSystem
}

// Validate checks a TargetLayout's loudspeaker-label array against
// MaxLoudspeakersNum.
func (t TargetLayout) Validate() error {
	if t.NumLoudspeakers > MaxLoudspeakersNum {
		return fmt.Errorf("element: target layout has %d loudspeakers, exceeds max %d", t.NumLoudspeakers, MaxLoudspeakersNum)
	}
	if t.Type == LayoutTypeLoudspeakersSPLabel && len(t.SPLabel) != t.NumLoudspeakers {
		return fmt.Errorf("element: target layout sp_label length %d != num_loudspeakers %d", len(t.SPLabel), t.NumLoudspeakers)
	}
	return nil
}

// LoudnessInfo holds one target layout's measured loudness, in Q7.8 dB,
// per spec §4.6.
type LoudnessInfo struct {
	IntegratedLoudness int16
	DigitalPeak        int16
	TruePeak           int16
}

// MixGainConfig is one animated mix-gain parameter (either an element's
// own mix gain, or the output mix gain), grounded on
// ElementMixConfig/OutputMixConfig.
type MixGainConfig struct {
	DefaultMixGainDB float64
	Duration         uint32
	Animated         paramblock.Block
}

// ElementRef binds one audio element into a mix presentation alongside
// its per-element animated mix gain.
type ElementRef struct {
	AudioElementID uint32
	MixGain        MixGainConfig
}

// MixPresentation groups one or two audio elements with a per-element
// animated mix gain, an output mix gain, and up to MaxMeasuredLayoutNum
// measured target layouts, per spec §3.
type MixPresentation struct {
	ID        uint32
	Elements  []ElementRef // 1 or 2 entries, per num_audio_elements in the original
	OutputMix MixGainConfig
	Layouts   []TargetLayout
	Loudness  []LoudnessInfo // parallel to Layouts
}

// Validate checks the structural invariants spec §3 implies: 1-2 audio
// elements, parallel Layouts/Loudness slices, and a measured-layout count
// within MaxMeasuredLayoutNum.
func (m MixPresentation) Validate() error {
	if len(m.Elements) < 1 || len(m.Elements) > 2 {
		return fmt.Errorf("mix presentation %d: has %d audio elements, want 1 or 2", m.ID, len(m.Elements))
	}
	if len(m.Layouts) > MaxMeasuredLayoutNum {
		return fmt.Errorf("mix presentation %d: has %d target layouts, exceeds max %d", m.ID, len(m.Layouts), MaxMeasuredLayoutNum)
	}
	if len(m.Layouts) != len(m.Loudness) {
		return fmt.Errorf("mix presentation %d: %d layouts but %d loudness entries", m.ID, len(m.Layouts), len(m.Loudness))
	}
	for i, l := range m.Layouts {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("mix presentation %d, layout %d: %w", m.ID, i, err)
		}
	}
	return nil
}
