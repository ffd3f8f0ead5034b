package oto

import (
	"encoding/binary"
	"math"

	"github.com/vsariola/looper"
)

// AppendFloat32LE appends the buffer to dst as interleaved little-endian
// float32 samples, the sample format of the oto context.
func AppendFloat32LE(dst []byte, buffer looper.AudioBuffer) []byte {
	for _, frame := range buffer {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[0]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[1]))
	}
	return dst
}
