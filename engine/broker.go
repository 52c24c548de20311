package engine

import (
	"sync"
	"time"

	"github.com/atomsynth/atomsynth"
)

type (
	// Broker is the centralized message broker between the player, which runs
	// on the audio thread, and the model, i.e. whatever is controlling the
	// player: the CLI, a MIDI input or a test. The broker is just many-to-one
	// communication, implemented with one channel for each recipient.
	// Additionally, the broker has a sync.Pool for *atomsynth.AudioBuffers, so
	// the player can pass rendered audio to the model without allocating new
	// memory every time.
	//
	// For closing goroutines, the broker has two channels for each goroutine:
	// CloseXXX and FinishedXXX. The CloseXXX channel has a capacity of 1, so
	// you can always send a empty message (struct{}{}) to it without blocking.
	// FinishedXXX is closed when the goroutine has finished.
	Broker struct {
		ToModel  chan MsgToModel
		ToPlayer chan any

		CloseMIDI    chan struct{}
		FinishedMIDI chan struct{}

		bufferPool sync.Pool
	}

	// MsgToModel is a message sent to the model. The most often sent data
	// (Panic, VoiceLevels and Meter) are not boxed to avoid allocations. All
	// the infrequently passed messages can be boxed & cast to any.
	MsgToModel struct {
		HasPanicLevels bool
		Panic          bool
		VoiceLevels    [MaxVoices]float32

		HasMeter bool
		Meter    MeterResult

		Data any
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:     make(chan any, 1024),
		ToModel:      make(chan MsgToModel, 1024),
		CloseMIDI:    make(chan struct{}, 1),
		FinishedMIDI: make(chan struct{}),
		bufferPool:   sync.Pool{New: func() any { return &atomsynth.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an audio buffer from the buffer pool. The buffer is
// guaranteed to be empty. After using the buffer, it should be returned to the
// pool with PutAudioBuffer.
func (b *Broker) GetAudioBuffer() *atomsynth.AudioBuffer {
	return b.bufferPool.Get().(*atomsynth.AudioBuffer)
}

// PutAudioBuffer returns an audio buffer to the buffer pool. If the buffer is
// not empty, its length is resetted (but capacity kept) before returning it to
// the pool.
func (b *Broker) PutAudioBuffer(buf *atomsynth.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
