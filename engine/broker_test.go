package engine_test

import (
	"testing"
	"time"

	"github.com/atomsynth/atomsynth"
	"github.com/atomsynth/atomsynth/engine"
)

func TestTrySendDoesNotBlock(t *testing.T) {
	c := make(chan int, 1)
	if !engine.TrySend(c, 1) {
		t.Fatalf("sending to an empty channel should succeed")
	}
	if engine.TrySend(c, 2) {
		t.Fatalf("sending to a full channel should fail")
	}
	if v := <-c; v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
}

func TestTimeoutReceive(t *testing.T) {
	c := make(chan int, 1)
	if _, ok := engine.TimeoutReceive(c, time.Millisecond); ok {
		t.Fatalf("receiving from an empty channel should time out")
	}
	c <- 42
	if v, ok := engine.TimeoutReceive(c, time.Second); !ok || v != 42 {
		t.Fatalf("expected 42, got %d, %v", v, ok)
	}
	close(c)
	if _, ok := engine.TimeoutReceive(c, time.Second); ok {
		t.Fatalf("receiving from a closed channel should not be ok")
	}
}

func TestAudioBufferPool(t *testing.T) {
	b := engine.NewBroker()
	buf := b.GetAudioBuffer()
	if len(*buf) != 0 {
		t.Fatalf("expected an empty buffer from the pool, got %d frames", len(*buf))
	}
	*buf = append(*buf, make(atomsynth.AudioBuffer, 10)...)
	b.PutAudioBuffer(buf)
	if len(*buf) != 0 {
		t.Fatalf("PutAudioBuffer should truncate the buffer")
	}
}
