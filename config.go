package looper

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type (
	// Config holds the settings that stay fixed for the lifetime of an
	// engine. It is usually read from a .yml file; any field left out keeps
	// its value from DefaultConfig.
	Config struct {
		SampleRate int     `yaml:"samplerate"`
		Threshold  float32 `yaml:"threshold"`
		// StateQueue is the capacity of the state channel. When the channel
		// is full, the oldest snapshot is dropped.
		StateQueue int `yaml:"statequeue"`
		AlertQueue int `yaml:"alertqueue"`

		MIDI MIDIMapping `yaml:"midi"`
	}

	// MIDIMapping tells which note-on messages the engine reacts to. Status
	// is the full status byte, so it also selects the MIDI channel.
	MIDIMapping struct {
		Status    byte `yaml:"status"`
		Record    byte `yaml:"record"`
		Play      byte `yaml:"play"`
		AddLooper byte `yaml:"addlooper"`
	}
)

var ErrInvalidConfig = errors.New("invalid config")

// DefaultConfig returns the configuration used when nothing else is given:
// 44100 Hz, threshold 0.1, note-on on channel 1 with notes 60, 62 and 64.
func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		Threshold:  DefaultThreshold,
		StateQueue: 1024,
		AlertQueue: 256,
		MIDI: MIDIMapping{
			Status:    0x90,
			Record:    60,
			Play:      62,
			AddLooper: 64,
		},
	}
}

// Validate checks that the configuration can drive an engine.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidConfig, c.SampleRate)
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v must be in (0, 1]", ErrInvalidConfig, c.Threshold)
	}
	if c.StateQueue <= 0 || c.AlertQueue <= 0 {
		return fmt.Errorf("%w: queue sizes must be positive", ErrInvalidConfig)
	}
	if c.MIDI.Status&0xF0 != 0x90 {
		return fmt.Errorf("%w: status byte %#x is not a note-on", ErrInvalidConfig, c.MIDI.Status)
	}
	m := c.MIDI
	if m.Record > 127 || m.Play > 127 || m.AddLooper > 127 {
		return fmt.Errorf("%w: note numbers must be in 0..127", ErrInvalidConfig)
	}
	if m.Record == m.Play || m.Record == m.AddLooper || m.Play == m.AddLooper {
		return fmt.Errorf("%w: record, play and addlooper notes must differ", ErrInvalidConfig)
	}
	return nil
}

// ReadConfig parses a YAML configuration on top of DefaultConfig and
// validates the result.
func ReadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("could not parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig reads the configuration from a file. An empty path returns
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not open config: %w", err)
	}
	defer f.Close()
	return ReadConfig(f)
}
