package audio

import "testing"

func TestSpillBufferDropsNewestWhenFull(t *testing.T) {
	b := NewSpillBuffer(4)

	if ok := b.Write([]byte{1, 2}); !ok {
		t.Fatal("expected first write to fit")
	}
	if ok := b.Write([]byte{3, 4}); !ok {
		t.Fatal("expected second write to exactly fill capacity")
	}
	if ok := b.Write([]byte{5}); ok {
		t.Fatal("expected write beyond capacity to be dropped")
	}

	if got := b.Len(); got != 4 {
		t.Fatalf("expected buffered length 4, got %d", got)
	}
}

func TestSpillBufferDrainIsFIFOAndClears(t *testing.T) {
	b := NewSpillBuffer(16)
	b.Write([]byte{1, 2})
	b.Write([]byte{3, 4})

	drained := b.Drain()
	want := []byte{1, 2, 3, 4}
	if len(drained) != len(want) {
		t.Fatalf("expected %d drained bytes, got %d", len(want), len(drained))
	}
	for i := range want {
		if drained[i] != want[i] {
			t.Errorf("byte %d: expected %d, got %d", i, want[i], drained[i])
		}
	}

	if b.Len() != 0 {
		t.Errorf("expected buffer empty after drain, got len %d", b.Len())
	}
}
