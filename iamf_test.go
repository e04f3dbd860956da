package iamf

import (
	"errors"
	"testing"

	"github.com/openiamf/iamfenc/internal/codec"
	"github.com/openiamf/iamfenc/internal/element"
	"github.com/openiamf/iamfenc/internal/layout"
	"github.com/openiamf/iamfenc/internal/obu"
)

func monoSine(n int) []float64 {
	pcm := make([]float64, n)
	for i := range pcm {
		pcm[i] = 0.5
	}
	return pcm
}

func newMonoElement(t *testing.T) (*Encoder, uint32) {
	t.Helper()
	enc := Create()
	id, err := enc.AddElement(layout.Chain{layout.Mono}, codec.IDOpus, 48000)
	if err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	return enc, id
}

func TestAddElementRejectsNonMonotoneChain(t *testing.T) {
	enc := Create()
	_, err := enc.AddElement(layout.Chain{layout.Stereo, layout.Mono}, codec.IDOpus, 48000)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("AddElement: want ErrInvalidArgument, got %v", err)
	}
}

func TestEncodeRejectsBeforeLifecycleComplete(t *testing.T) {
	enc, id := newMonoElement(t)
	_, err := enc.Encode(id, Frame{ElementID: id, PCM: monoSine(960)})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Encode before lifecycle: want ErrInvalidState, got %v", err)
	}
}

func TestLifecycleStateMachineTransitions(t *testing.T) {
	enc, id := newMonoElement(t)

	if err := enc.DmpdStart(id); err != nil {
		t.Fatalf("DmpdStart: %v", err)
	}
	if err := enc.DmpdProcess(id, monoSine(960)); err != nil {
		t.Fatalf("DmpdProcess: %v", err)
	}
	if err := enc.DmpdProcess(id, monoSine(960)); err != nil {
		t.Fatalf("DmpdProcess (second call, self-loop): %v", err)
	}
	if err := enc.DmpdStop(id); err != nil {
		t.Fatalf("DmpdStop: %v", err)
	}
	if err := enc.TargetLoudnessMeasureStart(id); err != nil {
		t.Fatalf("TargetLoudnessMeasureStart: %v", err)
	}
	if err := enc.ScalableLoudnessGainMeasure(id, monoSine(960)); err != nil {
		t.Fatalf("ScalableLoudnessGainMeasure: %v", err)
	}
	if err := enc.LoudnessGainStop(id); err != nil {
		t.Fatalf("LoudnessGainStop: %v", err)
	}

	es := enc.elements[id]
	if es.state != StateLoudgainStop {
		t.Fatalf("state = %d, want StateLoudgainStop", es.state)
	}
}

func TestLifecycleRejectsOutOfOrderTransition(t *testing.T) {
	enc, id := newMonoElement(t)
	if err := enc.DmpdStop(id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("DmpdStop before DmpdStart: want ErrInvalidState, got %v", err)
	}
}

func TestSetMixPresentationRejectsUnknownElement(t *testing.T) {
	enc, _ := newMonoElement(t)
	mp := element.MixPresentation{
		ID:       1,
		Elements: []element.ElementRef{{AudioElementID: 999}},
		Layouts:  []element.TargetLayout{{}},
		Loudness: []element.LoudnessInfo{{}},
	}
	if err := enc.SetMixPresentation(mp); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SetMixPresentation with unknown element ref: want ErrInvalidArgument, got %v", err)
	}
}

func TestSetMixPresentationAcceptsValidReference(t *testing.T) {
	enc, id := newMonoElement(t)
	mp := element.MixPresentation{
		ID:       1,
		Elements: []element.ElementRef{{AudioElementID: id}},
		Layouts:  []element.TargetLayout{{}},
		Loudness: []element.LoudnessInfo{{}},
	}
	if err := enc.SetMixPresentation(mp); err != nil {
		t.Fatalf("SetMixPresentation: %v", err)
	}
	if err := enc.ClearMixPresentation(1); err != nil {
		t.Fatalf("ClearMixPresentation: %v", err)
	}
}

func TestCtlGetDelayReturnsInt(t *testing.T) {
	enc, id := newMonoElement(t)
	v, err := enc.Ctl(id, CtlGetDelay, nil)
	if err != nil {
		t.Fatalf("Ctl: %v", err)
	}
	if _, ok := v.(int); !ok {
		t.Fatalf("Ctl(CtlGetDelay) = %T, want int", v)
	}
}

func TestCtlSetReconGainFlagRequiresBool(t *testing.T) {
	enc, id := newMonoElement(t)
	if _, err := enc.Ctl(id, CtlSetReconGainFlag, "yes"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Ctl(CtlSetReconGainFlag, non-bool): want ErrInvalidArgument, got %v", err)
	}
	if _, err := enc.Ctl(id, CtlSetReconGainFlag, true); err != nil {
		t.Fatalf("Ctl(CtlSetReconGainFlag, true): %v", err)
	}
}

func TestGetDescriptorIncludesEveryElementAndMixPresentation(t *testing.T) {
	enc, id := newMonoElement(t)
	mp := element.MixPresentation{
		ID:       1,
		Elements: []element.ElementRef{{AudioElementID: id}},
		Layouts:  []element.TargetLayout{{}},
		Loudness: []element.LoudnessInfo{{}},
	}
	if err := enc.SetMixPresentation(mp); err != nil {
		t.Fatalf("SetMixPresentation: %v", err)
	}

	buf, err := enc.GetDescriptor()
	if err != nil {
		t.Fatalf("GetDescriptor: %v", err)
	}
	if len(buf) == 0 {
		t.Fatal("GetDescriptor: empty output")
	}
}

func TestDestroyClosesCodecsAndClearsState(t *testing.T) {
	enc, _ := newMonoElement(t)
	if err := enc.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if enc.elements != nil {
		t.Fatal("Destroy: elements map not cleared")
	}
}

// interleavedSine builds one frame of interleaved PCM for a layout with the
// given channel count, each channel carrying a distinct constant so a
// channel-splitting bug (e.g. the wrong per-channel frameSize) would show up
// as cross-talk rather than silently passing.
func interleavedSine(frameSize, channels int) []float64 {
	pcm := make([]float64, frameSize*channels)
	for i := 0; i < frameSize; i++ {
		for c := 0; c < channels; c++ {
			pcm[i*channels+c] = 0.1 * float64(c+1)
		}
	}
	return pcm
}

// newScalableElement builds an element over the canonical Stereo -> 5.1.4
// ladder (spec §8.2). Layout510 is skipped deliberately: Layout312's height
// (2) is greater than Layout510's (0), so stepping through it would violate
// ValidateLadder's monotone-height rule; {Stereo, Layout312, Layout512,
// Layout514} is the chain that actually satisfies it end to end.
func newScalableElement(t *testing.T) (*Encoder, uint32) {
	t.Helper()
	enc := Create()
	chain := layout.Chain{layout.Stereo, layout.Layout312, layout.Layout512, layout.Layout514}
	id, err := enc.AddElement(chain, codec.IDOpus, 48000)
	if err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	return enc, id
}

// TestEncodeScalableLadderProducesAudioAndParameterOBUs drives a full
// Stereo -> 5.1.4 element through its lifecycle and a successful Encode,
// exercising the down-mix ladder, per-layer codec hand-off, reconstruction
// gain, and parameter-block authoring through the public Encoder. It checks
// that audio-frame and parameter-block OBUs are emitted, not their contents.
func TestEncodeScalableLadderProducesAudioAndParameterOBUs(t *testing.T) {
	enc, id := newScalableElement(t)

	if _, err := enc.Ctl(id, CtlSetReconGainFlag, true); err != nil {
		t.Fatalf("Ctl(CtlSetReconGainFlag): %v", err)
	}

	const frameSize = 960
	const topChannels = 10 // Layout514: L5,R5,C5,LFE5,LS5,RS5,TL7,TR7,TLS7,TRS7
	analysisPCM := monoSine(frameSize)

	if err := enc.DmpdStart(id); err != nil {
		t.Fatalf("DmpdStart: %v", err)
	}
	if err := enc.DmpdProcess(id, analysisPCM); err != nil {
		t.Fatalf("DmpdProcess: %v", err)
	}
	if err := enc.DmpdStop(id); err != nil {
		t.Fatalf("DmpdStop: %v", err)
	}

	if err := enc.TargetLoudnessMeasureStart(id); err != nil {
		t.Fatalf("TargetLoudnessMeasureStart: %v", err)
	}
	if err := enc.ScalableLoudnessGainMeasure(id, analysisPCM); err != nil {
		t.Fatalf("ScalableLoudnessGainMeasure: %v", err)
	}
	if err := enc.LoudnessGainStop(id); err != nil {
		t.Fatalf("LoudnessGainStop: %v", err)
	}

	pkt, err := enc.Encode(id, Frame{ElementID: id, PCM: interleavedSine(frameSize, topChannels)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var audioFrames, paramBlocks int
	for _, o := range pkt.OBUs {
		switch o.Header.Type {
		case obu.TypeAudioFrame:
			audioFrames++
			if len(o.Payload) == 0 {
				t.Error("audio frame OBU has empty payload")
			}
		case obu.TypeParameterBlock:
			paramBlocks++
		}
	}

	if audioFrames != 4 {
		t.Errorf("audio frame OBUs = %d, want 4 (one per chain layer)", audioFrames)
	}
	// mix gain + dmix params + recon gain (recon gain flag is set and the
	// chain has reconstructable steps, so all three must be present).
	if paramBlocks != 3 {
		t.Errorf("parameter block OBUs = %d, want 3", paramBlocks)
	}
	if len(pkt.OBUs) != audioFrames+paramBlocks {
		t.Errorf("packet has unexpected OBU types beyond audio frames and parameter blocks")
	}
	// §4.9: every audio frame for this temporal unit precedes every
	// parameter block.
	sawParamBlock := false
	for _, o := range pkt.OBUs {
		if o.Header.Type == obu.TypeParameterBlock {
			sawParamBlock = true
		} else if sawParamBlock {
			t.Fatalf("audio frame OBU found after a parameter block OBU")
		}
	}
}

func TestDeleteElementRejectsUnknownID(t *testing.T) {
	enc := Create()
	if err := enc.DeleteElement(42); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("DeleteElement(unknown): want ErrInvalidArgument, got %v", err)
	}
}
