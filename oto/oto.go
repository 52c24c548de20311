// Package oto plays audio sources on the default audio device of the system
// using the oto library.
package oto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/atomsynth/atomsynth"
	"github.com/ebitengine/oto/v3"
)

type (
	// Context is an atomsynth.AudioContext backed by an oto context. There
	// can be only one oto context per process.
	Context struct {
		ctx *oto.Context
	}

	// Playback pulls audio from a source until the source returns io.EOF or
	// the playback is closed.
	Playback struct {
		player    *oto.Player
		reader    *reader
		closeOnce sync.Once
		closed    chan struct{}
	}

	// reader converts the stereo float frames of an AudioSource into
	// interleaved little endian float32 bytes for oto.
	reader struct {
		source atomsynth.AudioSource
		buf    atomsynth.AudioBuffer
		mu     sync.Mutex
		err    error
	}
)

const bytesPerFrame = 8

// NewContext opens the audio device at the given sample rate. bufferSize is
// the latency of the device buffer; zero lets oto decide.
func NewContext(sampleRate int, bufferSize time.Duration) (*Context, error) {
	if sampleRate <= 0 {
		sampleRate = atomsynth.DefaultSampleRate
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx}, nil
}

// Play starts pulling audio from the source in the audio thread of oto.
func (c *Context) Play(source atomsynth.AudioSource) atomsynth.CloserWaiter {
	r := &reader{source: source}
	p := &Playback{player: c.ctx.NewPlayer(r), reader: r, closed: make(chan struct{})}
	p.player.Play()
	return p
}

// Close stops the playback. It is safe to call Close many times.
func (p *Playback) Close() (err error) {
	p.closeOnce.Do(func() {
		close(p.closed)
		if e := p.player.Close(); e != nil {
			err = fmt.Errorf("cannot close oto player: %w", e)
		}
	})
	return err
}

// Wait blocks until the source is exhausted and played, or the playback is
// closed.
func (p *Playback) Wait() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.closed:
			return
		case <-ticker.C:
			if !p.player.IsPlaying() {
				return
			}
		}
	}
}

// Err returns the error returned by the source, if it stopped with anything
// else than io.EOF.
func (p *Playback) Err() error {
	p.reader.mu.Lock()
	defer p.reader.mu.Unlock()
	if errors.Is(p.reader.err, io.EOF) {
		return nil
	}
	return p.reader.err
}

func (r *reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buf) < frames {
		r.buf = make(atomsynth.AudioBuffer, frames)
	}
	buf := r.buf[:frames]
	clear(buf)
	if err := r.source.ReadAudio(buf); err != nil {
		r.err = err
	}
	encode(p, buf)
	if r.err != nil {
		return frames * bytesPerFrame, r.err
	}
	return frames * bytesPerFrame, nil
}

func encode(dst []byte, buf atomsynth.AudioBuffer) {
	for i, frame := range buf {
		binary.LittleEndian.PutUint32(dst[i*bytesPerFrame:], math.Float32bits(frame[0]))
		binary.LittleEndian.PutUint32(dst[i*bytesPerFrame+4:], math.Float32bits(frame[1]))
	}
}
