package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/looper"
)

type (
	// OtoContext plays audio on the default output device.
	OtoContext struct {
		context *oto.Context
	}

	// OtoOutput is a player fed through a pipe: WriteAudio blocks until the
	// device has room for the buffer.
	OtoOutput struct {
		player    *oto.Player
		writer    *io.PipeWriter
		tmpBuffer []byte
	}
)

const otoBufferDuration = 100 * time.Millisecond

// NewContext creates and initializes the oto context. Only one context can
// exist per process.
func NewContext(sampleRate int) (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context}, nil
}

func (c *OtoContext) Output() looper.AudioSink {
	r, w := io.Pipe()
	player := c.context.NewPlayer(r)
	player.Play()
	return &OtoOutput{player: player, writer: w}
}

func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (o *OtoOutput) WriteAudio(buffer looper.AudioBuffer) error {
	// reuse the capacity of tmpBuffer between calls
	o.tmpBuffer = AppendFloat32LE(o.tmpBuffer[:0], buffer)
	if _, err := o.writer.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Close waits until everything written has been played and disposes of the
// player.
func (o *OtoOutput) Close() error {
	o.writer.Close()
	for o.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
