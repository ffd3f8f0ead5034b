// Package portaudio runs the engine on the default duplex audio device.
package portaudio

import (
	"errors"
	"fmt"

	pa "github.com/gordonklaus/portaudio"
)

type (
	// ProcessFunc is called on the audio thread for every block with the
	// input and output channels. It must not block.
	ProcessFunc func(in, out [2][]float32)

	Stream struct {
		stream     *pa.Stream
		inChannels int
		started    bool
		info       string
	}
)

var ErrNoInput = errors.New("default input device has no channels")

// Open initializes PortAudio and opens a stereo stream on the default input
// and output devices. A mono input device is fed to both input channels.
func Open(sampleRate, framesPerBuffer int, process ProcessFunc) (*Stream, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to initialize portaudio: %w", err)
	}
	in, err := pa.DefaultInputDevice()
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("no default input device: %w", err)
	}
	out, err := pa.DefaultOutputDevice()
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("no default output device: %w", err)
	}
	s := &Stream{inChannels: min(2, in.MaxInputChannels)}
	if s.inChannels == 0 {
		pa.Terminate()
		return nil, ErrNoInput
	}
	callback := func(inBuf, outBuf [][]float32) {
		left, right := inBuf[0], inBuf[0]
		if len(inBuf) > 1 {
			right = inBuf[1]
		}
		process([2][]float32{left, right}, [2][]float32{outBuf[0], outBuf[1]})
	}
	s.stream, err = pa.OpenDefaultStream(s.inChannels, 2, float64(sampleRate), framesPerBuffer, callback)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("unable to open portaudio stream: %w", err)
	}
	s.info = fmt.Sprintf("%s: in %q (%d ch), out %q, %.f Hz", pa.VersionText(), in.Name, s.inChannels, out.Name, s.stream.Info().SampleRate)
	return s, nil
}

func (s *Stream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("unable to start portaudio stream: %w", err)
	}
	s.started = true
	return nil
}

// Info describes the devices the stream was opened on.
func (s *Stream) Info() string {
	return s.info
}

// Close stops the stream and terminates PortAudio.
func (s *Stream) Close() error {
	var errs []error
	if s.started {
		errs = append(errs, s.stream.Stop())
		s.started = false
	}
	errs = append(errs, s.stream.Close(), pa.Terminate())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing portaudio failed: %w", err)
	}
	return nil
}
