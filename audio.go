package looper

type (
	// AudioBuffer is a buffer of stereo frames, left channel first.
	AudioBuffer [][2]float32

	AudioSink interface {
		WriteAudio(buffer AudioBuffer) error
		Close() error
	}

	AudioContext interface {
		Output() AudioSink
		Close() error
	}
)

// Interleave builds an AudioBuffer from separate left and right channels. The
// result is as long as the shorter channel.
func Interleave(left, right []float32) AudioBuffer {
	n := min(len(left), len(right))
	ret := make(AudioBuffer, n)
	for i := range n {
		ret[i] = [2]float32{left[i], right[i]}
	}
	return ret
}

// Split writes the channels of the buffer into left and right, which must be
// at least len(b) long.
func (b AudioBuffer) Split(left, right []float32) {
	for i, f := range b {
		left[i], right[i] = f[0], f[1]
	}
}

// Channels returns freshly allocated left and right channels of the buffer.
func (b AudioBuffer) Channels() (left, right []float32) {
	left, right = make([]float32, len(b)), make([]float32, len(b))
	b.Split(left, right)
	return
}
