package audio

import "testing"

func TestPCMToMuLawRoundTripPreservesSign(t *testing.T) {
	// A simple square-ish wave; mu-law is lossy so we only assert the
	// round trip stays in the same ballpark and sign is preserved for
	// clearly-signed samples.
	pcm := make([]byte, 0, 8)
	samples := []int16{1000, -1000, 5000, -5000}
	for _, s := range samples {
		pcm = append(pcm, byte(s), byte(s>>8))
	}

	encoded := PCMToMuLaw(pcm, 8000)
	if len(encoded) != len(samples) {
		t.Fatalf("expected %d encoded bytes, got %d", len(samples), len(encoded))
	}

	decoded := bytesToSamples(MuLawToPCM(encoded))
	for i, s := range samples {
		if (s < 0) != (decoded[i] < 0) {
			t.Errorf("sample %d: sign flipped, original=%d decoded=%d", i, s, decoded[i])
		}
	}
}

func TestResampleDownsamplesLength(t *testing.T) {
	samples := make([]int16, 160) // 20ms @ 8kHz doubled to simulate 16kHz input
	out := resample(samples, 16000, 8000)
	if len(out) != 80 {
		t.Errorf("expected 80 samples after 2x downsample, got %d", len(out))
	}
}

func TestResampleNoOpSameRate(t *testing.T) {
	samples := []int16{1, 2, 3}
	out := resample(samples, 8000, 8000)
	if len(out) != 3 {
		t.Errorf("expected no-op resample to preserve length")
	}
}

func TestLinearToMuLawClipsExtremes(t *testing.T) {
	a := linearToMuLaw(32767)
	b := linearToMuLaw(-32768)
	if a == b {
		t.Errorf("expected distinct mu-law codes for max positive/negative samples")
	}
}
