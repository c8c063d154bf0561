package audio

import (
	"math"
	"testing"
)

func TestDecodePCM16(t *testing.T) {
	t.Parallel()

	// 0x0000 = 0, 0x7FFF = max positive, 0x8000 = max negative.
	pcm := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	got := DecodePCM16(pcm)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] != 0 {
		t.Errorf("sample 0 = %v, want 0", got[0])
	}
	if math.Abs(float64(got[1])-32767.0/32768.0) > 1e-6 {
		t.Errorf("sample 1 = %v, want ~1", got[1])
	}
	if got[2] != -1 {
		t.Errorf("sample 2 = %v, want -1", got[2])
	}
}

func TestDecodePCM16_OddTrailingByte(t *testing.T) {
	t.Parallel()
	got := DecodePCM16([]byte{0x00, 0x00, 0xAB})
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestEncodePCM16_RoundTrip(t *testing.T) {
	t.Parallel()
	in := []float32{0, 0.25, -0.25, 0.999, -0.999}
	out := DecodePCM16(EncodePCM16(in))
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1e-3 {
			t.Errorf("sample %d: round-trip %v -> %v", i, in[i], out[i])
		}
	}
}

func TestEncodePCM16_Clips(t *testing.T) {
	t.Parallel()
	out := DecodePCM16(EncodePCM16([]float32{2.0, -2.0}))
	if out[0] < 0.99 || out[1] > -0.99 {
		t.Errorf("expected clipping to full scale, got %v", out)
	}
}
