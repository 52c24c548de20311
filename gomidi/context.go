// Package gomidi feeds MIDI note events to the engine.Player. The timing part
// is pure Go; opening real input devices through rtmidi needs cgo.
package gomidi

import (
	"sync"

	"github.com/atomsynth/atomsynth"
	"github.com/atomsynth/atomsynth/engine"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// Context implements engine.ProcessContext. Incoming MIDI messages are
	// timestamped in milliseconds by the driver; the context converts them
	// to frames and slowly drifts its internal clock towards the clock of
	// the driver, so that the events are rendered with the same spacing as
	// they were played.
	Context struct {
		sampleRate    int
		events        chan timestampedMsg
		eventsBuf     []timestampedMsg
		eventIndex    int
		startFrame    int
		startFrameSet bool

		mu      sync.Mutex
		channel int // -1 means all channels
	}

	timestampedMsg struct {
		frame int
		msg   midi.Message
	}
)

// clockDrift is how much of the timing error is corrected per block.
const clockDrift = 5

// NewContext returns a context for a player running at sampleRate. Events
// that do not fit in the queue of queueSize messages are dropped.
func NewContext(sampleRate, queueSize int) *Context {
	if sampleRate <= 0 {
		sampleRate = atomsynth.DefaultSampleRate
	}
	return &Context{sampleRate: sampleRate, events: make(chan timestampedMsg, queueSize), channel: -1}
}

// Filter makes the context pass only the messages of one MIDI channel, mapped
// to instrument 0. A negative channel passes all channels, each channel
// playing the instrument with the same index.
func (c *Context) Filter(channel int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channel = channel
}

// HandleMessage is the listener given to the MIDI driver. It never blocks: if
// the queue is full, the message is dropped.
func (c *Context) HandleMessage(msg midi.Message, timestampms int32) {
	engine.TrySend(c.events, timestampedMsg{frame: int(int64(timestampms) * int64(c.sampleRate) / 1000), msg: msg})
}

func (c *Context) NextEvent(frame int) (event engine.MIDINoteEvent, ok bool) {
	c.eventIndex = min(c.eventIndex, len(c.eventsBuf))
F:
	for {
		select {
		case msg := <-c.events:
			c.eventsBuf = append(c.eventsBuf, msg)
			if !c.startFrameSet {
				c.startFrame = msg.frame
				c.startFrameSet = true
			}
		default:
			break F
		}
	}
	if c.eventIndex > 0 && c.eventIndex <= len(c.eventsBuf) {
		// consuming an event late means our clock is behind the driver
		delta := frame + c.startFrame - c.eventsBuf[c.eventIndex-1].frame
		c.startFrame -= delta / clockDrift
	}
	c.mu.Lock()
	filter := c.channel
	c.mu.Unlock()
	for c.eventIndex < len(c.eventsBuf) {
		var channel, key, velocity uint8
		m := c.eventsBuf[c.eventIndex]
		c.eventIndex++
		isNoteOn := m.msg.GetNoteOn(&channel, &key, &velocity)
		isNoteOff := !isNoteOn && m.msg.GetNoteOff(&channel, &key, &velocity)
		if !isNoteOn && !isNoteOff {
			continue
		}
		instrument := int(channel)
		if filter >= 0 {
			if instrument != filter {
				continue
			}
			instrument = 0
		}
		return engine.MIDINoteEvent{
			Frame:    m.frame - c.startFrame,
			On:       isNoteOn,
			Channel:  instrument,
			Note:     key,
			Velocity: velocity,
		}, true
	}
	c.eventIndex = len(c.eventsBuf) + 1 // nothing pending
	return engine.MIDINoteEvent{}, false
}

func (c *Context) FinishBlock(frame int) {
	c.startFrame += frame
	if c.eventIndex > 0 {
		// the last event returned by NextEvent was not handled yet, unless
		// NextEvent already reported that nothing is pending
		n := copy(c.eventsBuf, c.eventsBuf[min(c.eventIndex-1, len(c.eventsBuf)):])
		c.eventsBuf = c.eventsBuf[:n]
		if len(c.eventsBuf) > 0 {
			// events left for the next block: pull the clock towards them
			delta := c.startFrame - c.eventsBuf[0].frame
			c.startFrame -= delta / clockDrift
		}
	}
	c.eventIndex = 0
}

// BPM is not known from MIDI input.
func (c *Context) BPM() (bpm float64, ok bool) {
	return 0, false
}
