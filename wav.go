package looper

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrNotWav    = errors.New("not a valid .wav file")
	ErrNotStereo = errors.New("only mono and stereo .wav files are supported")
)

// ReadWav decodes a PCM .wav file into a stereo buffer. Mono files are copied
// to both channels. It also returns the sample rate of the file.
func ReadWav(r io.ReadSeeker) (AudioBuffer, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, ErrNotWav
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("could not decode .wav: %w", err)
	}
	channels := buf.Format.NumChannels
	if channels != 1 && channels != 2 {
		return nil, 0, fmt.Errorf("%w: got %d channels", ErrNotStereo, channels)
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	scale := float32(math.Pow(2, float64(depth-1)))
	offset := 0
	if depth == 8 {
		offset = 128 // 8-bit PCM is unsigned
	}
	frames := len(buf.Data) / channels
	ret := make(AudioBuffer, frames)
	for i := range frames {
		l := float32(buf.Data[i*channels]-offset) / scale
		r := l
		if channels == 2 {
			r = float32(buf.Data[i*channels+1]-offset) / scale
		}
		ret[i] = [2]float32{l, r}
	}
	return ret, buf.Format.SampleRate, nil
}

// WriteWav encodes the buffer as a 16-bit stereo PCM .wav file. Samples
// outside [-1, 1] are clipped.
func WriteWav(w io.WriteSeeker, buffer AudioBuffer, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	intBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 2,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(buffer)*2),
		SourceBitDepth: 16,
	}
	for i, f := range buffer {
		intBuf.Data[2*i] = toPCM16(f[0])
		intBuf.Data[2*i+1] = toPCM16(f[1])
	}
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("could not write .wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not finish .wav file: %w", err)
	}
	return nil
}

func toPCM16(v float32) int {
	return clamp(int(v*math.MaxInt16), -math.MaxInt16, math.MaxInt16)
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
