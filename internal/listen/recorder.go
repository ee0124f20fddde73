// Package listen implements the microphone recognizer: portaudio capture
// with RMS endpointing, transcribed by whisper.cpp.
package listen

import (
	"context"
	"math"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate = 16000
	frameSize  = 320 // 20ms @ 16kHz

	silenceThreshRMS = 0.015
	trailingSilence  = 30 // frames (~600ms) of silence that end an utterance
)

// Recorder captures one mono 16 kHz utterance from the default input
// device. Init/Close bracket the portaudio runtime for the process.
type Recorder struct {
	onActivity func()
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error { return portaudio.Initialize() }

func (r *Recorder) Close() { portaudio.Terminate() }

// OnActivity registers a callback fired when speech first crosses the
// silence threshold inside a capture window.
func (r *Recorder) OnActivity(fn func()) { r.onActivity = fn }

// Capture reads frames until the speaker goes quiet for trailingSilence
// frames or ctx ends. Returns the voiced samples; empty when nothing
// crossed the threshold before ctx ended.
func (r *Recorder) Capture(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, sampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	for {
		select {
		case <-ctx.Done():
			if speaking {
				return out, nil
			}
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > silenceThreshRMS {
			if !speaking && r.onActivity != nil {
				r.onActivity()
			}
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if !speaking {
			continue
		}
		silenceFrames++
		if silenceFrames >= trailingSilence {
			return out, nil
		}
		out = append(out, buf...)
	}
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
