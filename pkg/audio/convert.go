package audio

import "encoding/binary"

// DecodePCM16 converts little-endian 16-bit signed PCM bytes into normalised
// float32 samples in [-1, 1). A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// EncodePCM16 converts normalised float32 samples into little-endian 16-bit
// signed PCM bytes. Samples outside [-1, 1] are clipped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
