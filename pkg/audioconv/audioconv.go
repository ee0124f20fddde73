// Package audioconv decodes compressed audio clips (wav, mp3, ogg-vorbis,
// ogg-opus) into the mono 16 kHz float32 PCM the transcriber expects.
package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const targetRate = 16000

// MaxSamples caps decoded output; 0 means unlimited. Remote clips are
// short commands, so callers usually cap around 30s.
type Options struct {
	MaxSamples int
}

// Decode converts a clip to mono 16 kHz PCM. format is a container hint
// ("wav", "mp3", "ogg"); when it is empty or wrong the container is
// sniffed from the first bytes.
func Decode(clip []byte, format string, opt Options) ([]float32, error) {
	switch normalizeFormat(clip, format) {
	case "wav":
		return decodeWAV(clip, opt)
	case "mp3":
		return decodeMP3(clip, opt)
	case "ogg":
		// Vorbis first, Opus as the fallback; both live in Ogg containers.
		if pcm, err := decodeVorbis(clip, opt); err == nil {
			return pcm, nil
		}
		pcm, err := decodeOpus(clip, opt)
		if err != nil {
			return nil, fmt.Errorf("ogg clip is neither vorbis nor opus: %w", err)
		}
		return pcm, nil
	default:
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
}

func normalizeFormat(clip []byte, format string) string {
	switch f := strings.ToLower(strings.TrimPrefix(format, ".")); f {
	case "wav", "mp3", "ogg":
		return f
	case "oga":
		return "ogg"
	}

	// Sniff the container.
	if len(clip) >= 4 {
		switch string(clip[:4]) {
		case "RIFF":
			return "wav"
		case "OggS":
			return "ogg"
		}
	}
	if len(clip) >= 3 && (string(clip[:3]) == "ID3" || (clip[0] == 0xFF && clip[1]&0xE0 == 0xE0)) {
		return "mp3"
	}
	return ""
}

func decodeWAV(clip []byte, opt Options) ([]float32, error) {
	dec := wav.NewDecoder(bytes.NewReader(clip))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}

	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	pcm := intToFloat32(pb.Data, depth)

	channels, rate := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			channels = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}

	return finish(pcm, channels, rate, opt), nil
}

func decodeMP3(clip []byte, opt Options) ([]float32, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(clip))
	if err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}

	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}

	// go-mp3 always emits interleaved stereo.
	return finish(int16ToFloat32(ints), 2, rate, opt), nil
}

func decodeVorbis(clip []byte, opt Options) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(clip))
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}
	return finish(pcm, format.Channels, format.SampleRate, opt), nil
}

func decodeOpus(clip []byte, opt Options) ([]float32, error) {
	dec, err := popus.NewDecoder(bytes.NewReader(clip))
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	channels := dec.ChannelCount()
	if channels <= 0 {
		channels = 1
	}

	// Opus always decodes at 48 kHz.
	var pcm []float32
	buf := make([]int16, 48000*channels/2)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16ToFloat32(buf[:n*channels])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if len(pcm) == 0 {
		return nil, errors.New("empty opus stream")
	}
	return finish(pcm, channels, 48000, opt), nil
}

// finish downmixes, resamples to the target rate and applies the cap.
func finish(pcm []float32, channels, rate int, opt Options) []float32 {
	if channels > 1 {
		pcm = downmix(pcm, channels)
	}
	if rate != targetRate {
		pcm = resample(pcm, rate, targetRate)
	}
	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm
}

func intToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		x := float64(v) * scale
		if x > 1 {
			x = 1
		}
		if x < -1 {
			x = -1
		}
		out[i] = float32(x)
	}
	return out
}

func int16ToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(in[i*channels+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// resample is plain linear interpolation; command audio does not need
// anything fancier.
func resample(in []float32, inRate, outRate int) []float32 {
	if inRate == outRate || len(in) == 0 {
		return in
	}
	ratio := float64(outRate) / float64(inRate)
	n := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(src - float64(i0))
		out[i] = in[i0]*(1-frac) + in[i0+1]*frac
	}
	return out
}
