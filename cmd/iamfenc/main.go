// Command iamfenc drives the iamf encoder against a synthetic PCM source
// and writes the resulting descriptor OBUs to stdout and each encoded
// frame's OBU payload sizes to stderr, for smoke-testing the encoder
// pipeline end to end.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/alecthomas/kong"

	"github.com/openiamf/iamfenc"
	"github.com/openiamf/iamfenc/internal/codec"
	"github.com/openiamf/iamfenc/internal/layout"
)

var version = "dev"

// CLI mirrors the teacher's kong-driven flag layout, scaled down to this
// module's single demo operation.
type CLI struct {
	Version    bool    `short:"v" help:"Show version information"`
	SampleRate int     `help:"Sample rate in Hz" default:"48000"`
	FreqHz     float64 `help:"Synthetic test tone frequency in Hz" default:"1000"`
	Frames     int     `help:"Number of 960-sample frames to encode" default:"4"`
	Codec      string  `help:"Codec to use: opus or aac" default:"opus"`
}

func main() {
	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name("iamfenc"),
		kong.Description("IAMF scalable channel-based audio encoder"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if cliArgs.Version {
		fmt.Println("iamfenc", version)
		os.Exit(0)
	}

	codecID := codec.IDOpus
	if cliArgs.Codec == "aac" {
		codecID = codec.IDAAC
	}

	enc := iamf.Create()
	enc.Diagnostics = func(elementID uint32, stage, msg string) {
		fmt.Fprintf(os.Stderr, "[element %d] %s: %s\n", elementID, stage, msg)
	}

	id, err := enc.AddElement(layout.Chain{layout.Mono, layout.Stereo}, codecID, cliArgs.SampleRate)
	if err != nil {
		fatal(err)
	}

	const frameSize = 960
	tone := generateTone(cliArgs.FreqHz, cliArgs.SampleRate, frameSize*cliArgs.Frames)
	stereoTone := interleaveStereo(tone)

	if err := enc.DmpdStart(id); err != nil {
		fatal(err)
	}
	for f := 0; f < cliArgs.Frames; f++ {
		if err := enc.DmpdProcess(id, tone[f*frameSize:(f+1)*frameSize]); err != nil {
			fatal(err)
		}
	}
	if err := enc.DmpdStop(id); err != nil {
		fatal(err)
	}

	if err := enc.TargetLoudnessMeasureStart(id); err != nil {
		fatal(err)
	}
	for f := 0; f < cliArgs.Frames; f++ {
		if err := enc.ScalableLoudnessGainMeasure(id, tone[f*frameSize:(f+1)*frameSize]); err != nil {
			fatal(err)
		}
	}
	if err := enc.LoudnessGainStop(id); err != nil {
		fatal(err)
	}

	descriptor, err := enc.GetDescriptor()
	if err != nil {
		fatal(err)
	}
	os.Stdout.Write(descriptor)

	for f := 0; f < cliArgs.Frames; f++ {
		pkt, err := enc.Encode(id, iamf.Frame{
			ElementID: id,
			PCM:       stereoTone[f*frameSize*2 : (f+1)*frameSize*2],
		})
		if err != nil {
			fatal(err)
		}
		for _, o := range pkt.OBUs {
			fmt.Fprintf(os.Stderr, "frame %d: obu payload %d bytes\n", f, len(o.Payload))
		}
	}

	if err := enc.Destroy(); err != nil {
		fatal(err)
	}
}

func generateTone(freqHz float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
	}
	return out
}

// interleaveStereo duplicates a mono test tone across L/R so it can feed
// Encode's top layout (Stereo, per the chain built above) as interleaved
// PCM.
func interleaveStereo(mono []float64) []float64 {
	out := make([]float64, len(mono)*2)
	for i, v := range mono {
		out[2*i] = v
		out[2*i+1] = v
	}
	return out
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "iamfenc:", err)
	os.Exit(1)
}
