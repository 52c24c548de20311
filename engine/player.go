package engine

import (
	"fmt"
	"math"

	"github.com/atomsynth/atomsynth"
)

type (
	// Player is the audio player, run in the audio thread. It is controlled by
	// messages from the model via the broker and MIDI messages via the
	// context. The player sends voice levels, meter results, rendered audio
	// and alerts back to the model.
	Player struct {
		synth       atomsynth.Synth    // the synth used to render audio
		song        atomsynth.Song     // the song being played
		ctx         atomsynth.Context  // sample rate and tempo
		playing     bool               // is the player playing the score or not
		frame       int                // the current position in the song, in frames
		events      []atomsynth.Event  // score events not played yet
		voiceLevels [MaxVoices]float32 // a level that can be used to visualize the volume of each voice
		voices      [MaxVoices]voice
		bindings    []binding
		curve       []float64
		meter       Meter

		synther atomsynth.Synther // the synther used to create new synths
		broker  *Broker           // the broker used to communicate with the model
	}

	// ProcessContext is the context given to the player when processing
	// audio. It is used to get MIDI events and the current BPM.
	ProcessContext interface {
		NextEvent(frame int) (event MIDINoteEvent, ok bool)
		FinishBlock(frame int)
		BPM() (bpm float64, ok bool)
	}

	// MIDINoteEvent is a MIDI event triggering or releasing a note. In
	// processing, the Frame is relative to the start of the current buffer.
	MIDINoteEvent struct {
		Frame    int
		On       bool
		Channel  int
		Note     byte
		Velocity byte
	}

	// CurveSource renders automation curves, e.g. *atomsynth.Lane or
	// automation.Ramp. frame is the position of dst[0] in the song. Render is
	// called on the audio thread before every block, so it must not allocate,
	// lock or block; a Lua script is baked into a Lane first.
	CurveSource interface {
		Render(dst []float64, frame int, ctx *atomsynth.Context)
	}

	binding struct {
		instrument, unit int
		knob             string
		source           CurveSource
		target           *atomsynth.Knob
	}

	voice struct {
		noteID            int
		sustain           bool
		samplesSinceEvent int
	}
)

type (
	NoteOnMsg struct {
		Instr int
		Note  byte
	}
	NoteOffMsg struct {
		Instr int
		Note  byte
	}
	// PanicMsg with true destroys the synth; with false it is rebuilt.
	PanicMsg struct{ bool }
	// IsPlayingMsg starts or stops playing the score. When sent from the
	// player, it tells that the score ended.
	IsPlayingMsg struct{ bool }
	// StartPlayMsg starts playing the score from a position in beats.
	StartPlayMsg struct{ Beat float64 }
	BPMMsg       struct{ float64 }
	// AutomationMsg binds a curve source to a knob. A nil Source removes the
	// binding and returns the knob to its constant value.
	AutomationMsg struct {
		Instrument, Unit int
		Knob             string
		Source           CurveSource
	}
	// AutomatedMsg is sent to the model when a bound curve source starts or
	// stops driving a knob of the synth. The player publishes curves without
	// notifying the listeners of the unit; this message is the notification.
	AutomatedMsg struct {
		Instrument, Unit int
		Knob             string
		Automated        bool
	}
	// Alert is sent to the model when something went wrong in the player.
	Alert struct {
		Name    string
		Message string
	}
)

func NewPanicMsg(b bool) PanicMsg            { return PanicMsg{b} }
func NewIsPlayingMsg(play bool) IsPlayingMsg { return IsPlayingMsg{play} }
func NewBPMMsg(bpm float64) BPMMsg           { return BPMMsg{bpm} }

func (m PanicMsg) Panic() bool         { return m.bool }
func (m IsPlayingMsg) IsPlaying() bool { return m.bool }

const numRenderTries = 10000

func NewPlayer(broker *Broker, synther atomsynth.Synther) *Player {
	return &Player{
		broker:  broker,
		synther: synther,
		ctx:     atomsynth.Context{SampleRate: atomsynth.DefaultSampleRate, BPM: atomsynth.DefaultBPM},
	}
}

// Process renders audio to the given buffer, trying to fill it completely. If
// the buffer is not filled, the synth is destroyed and an alert is sent to the
// model. context tells the player which MIDI events happen during the current
// buffer. It is used to trigger and release notes during processing. The
// context is also used to get the current BPM from the host.
func (p *Player) Process(buffer atomsynth.AudioBuffer, context ProcessContext) {
	p.processMessages(context)
	whole := buffer
	frame := 0
	midi, midiOk := context.NextEvent(frame)
	for i := 0; i < numRenderTries; i++ {
		for midiOk && frame >= midi.Frame {
			p.handleMidiInput(midi)
			midi, midiOk = context.NextEvent(frame)
		}
		for p.playing && len(p.events) > 0 && p.events[0].Frame <= p.frame {
			p.handleScoreEvent(p.events[0])
			p.events = p.events[1:]
		}
		framesUntilEvent := len(buffer)
		if delta := midi.Frame - frame; midiOk && delta < framesUntilEvent {
			framesUntilEvent = delta
		}
		if p.playing && len(p.events) > 0 {
			framesUntilEvent = min(framesUntilEvent, p.events[0].Frame-p.frame)
		}
		var rendered int
		var err error
		if p.synth != nil {
			n := min(framesUntilEvent, p.synth.BlockSize())
			p.publishAutomation(n)
			rendered, err = p.synth.Render(buffer[:n])
		} else {
			clear(buffer[:framesUntilEvent])
			rendered = framesUntilEvent
		}
		if err != nil {
			p.synth = nil
			p.SendAlert("PlayerCrash", fmt.Sprintf("synth.Render: %s", err.Error()))
		}
		bufPtr := p.broker.GetAudioBuffer() // borrow a buffer from the broker
		*bufPtr = append(*bufPtr, buffer[:rendered]...)
		if len(*bufPtr) == 0 || !TrySend(p.broker.ToModel, MsgToModel{Data: bufPtr}) {
			// if the buffer is empty or sending the rendered waveform to Model
			// failed, return the buffer to the broker
			p.broker.PutAudioBuffer(bufPtr)
		}
		buffer = buffer[rendered:]
		frame += rendered
		p.frame += rendered
		for i := range p.voices {
			p.voices[i].samplesSinceEvent += rendered
		}
		alpha := float32(math.Exp(-float64(rendered) / 15000))
		for i, state := range p.voices {
			if state.sustain {
				p.voiceLevels[i] = (p.voiceLevels[i]-0.5)*alpha + 0.5
			} else {
				p.voiceLevels[i] *= alpha
			}
		}
		if p.playing && len(p.events) == 0 {
			p.playing = false
			p.send(IsPlayingMsg{false})
		}
		// when the buffer is full, return
		if len(buffer) == 0 {
			p.sendMeter(whole)
			context.FinishBlock(frame)
			return
		}
	}
	// we were not able to fill the buffer with numRenderTries attempts, destroy synth and throw an error
	p.synth = nil
	p.SendAlert("PlayerCrash", fmt.Sprintf("synth did not fill the audio buffer even with %d render calls", numRenderTries))
}

func (p *Player) publishAutomation(length int) {
	if cap(p.curve) < length {
		p.curve = make([]float64, length)
	}
	for _, b := range p.bindings {
		if b.target == nil {
			continue
		}
		c := p.curve[:length]
		b.source.Render(c, p.frame, &p.ctx)
		b.target.Publish(c)
	}
}

func (p *Player) handleMidiInput(midi MIDINoteEvent) {
	if midi.On {
		p.triggerInstrument(midi.Channel, midi.Note)
	} else {
		p.releaseInstrument(midi.Channel, midi.Note)
	}
}

func (p *Player) handleScoreEvent(e atomsynth.Event) {
	if e.Note < 0 || e.Note >= len(p.song.Score.Notes) {
		return
	}
	n := p.song.Score.Notes[e.Note]
	ID := idForScoreNote(e.Note)
	if !e.On {
		p.release(ID)
		return
	}
	p.release(ID)
	if n.Instrument < 0 || n.Instrument >= len(p.song.Patch) {
		return
	}
	voiceStart := p.song.Patch.FirstVoiceForInstrument(n.Instrument)
	voiceEnd := voiceStart + p.song.Patch[n.Instrument].NumVoices
	p.trigger(voiceStart, voiceEnd, n.Key, ID)
}

func (p *Player) processMessages(context ProcessContext) {
	if bpm, ok := context.BPM(); ok && bpm > 0 && atomsynth.ClampBPM(bpm) != p.ctx.BPM {
		p.song.BPM = atomsynth.ClampBPM(bpm)
		p.ctx.BPM = p.song.BPM
		p.compileOrUpdateSynth()
	}
loop:
	for { // process new message
		select {
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case PanicMsg:
				if m.bool {
					p.synth = nil
				} else {
					p.compileOrUpdateSynth()
				}
			case atomsynth.Song:
				p.song = m
				p.ctx = m.Context()
				for i := range p.bindings {
					p.unbind(&p.bindings[i])
				}
				p.bindings = p.bindings[:0]
				for i := range m.Lanes {
					l := &m.Lanes[i]
					if err := l.Validate(); err != nil {
						p.SendAlert("InvalidLane", fmt.Sprintf("lane %d: %v", i, err))
						continue
					}
					p.bindings = append(p.bindings, binding{instrument: l.Instrument, unit: l.Unit, knob: l.Knob, source: l})
				}
				p.compileOrUpdateSynth()
			case atomsynth.Patch:
				p.song.Patch = m
				p.compileOrUpdateSynth()
			case IsPlayingMsg:
				p.playing = m.bool
				if !p.playing {
					p.releaseScore()
				}
			case StartPlayMsg:
				p.releaseScore()
				p.frame = int(math.Round(p.ctx.BeatFrames(m.Beat)))
				p.events = p.events[:0]
				for _, e := range p.song.Events(&p.ctx) {
					if e.Frame >= p.frame {
						p.events = append(p.events, e)
					}
				}
				p.playing = true
			case BPMMsg:
				p.song.BPM = atomsynth.ClampBPM(m.float64)
				p.ctx.BPM = p.song.BPM
				p.compileOrUpdateSynth()
			case NoteOnMsg:
				p.triggerInstrument(m.Instr, m.Note)
			case NoteOffMsg:
				p.releaseInstrument(m.Instr, m.Note)
			case AutomationMsg:
				p.bind(m)
			default:
				// ignore unknown messages
			}
		default:
			break loop
		}
	}
}

func (p *Player) bind(m AutomationMsg) {
	for i := range p.bindings {
		if b := &p.bindings[i]; b.instrument == m.Instrument && b.unit == m.Unit && b.knob == m.Knob {
			p.unbind(b)
			p.bindings = append(p.bindings[:i], p.bindings[i+1:]...)
			break
		}
	}
	if m.Source == nil {
		return
	}
	p.bindings = append(p.bindings, binding{instrument: m.Instrument, unit: m.Unit, knob: m.Knob, source: m.Source})
	if p.synth != nil {
		b := &p.bindings[len(p.bindings)-1]
		knob, _ := p.synth.Knob(b.instrument, b.unit, b.knob)
		p.retarget(b, knob)
	}
}

// retarget points the binding to knob, returning the previous knob to its
// constant value.
func (p *Player) retarget(b *binding, knob *atomsynth.Knob) {
	if b.target == knob {
		return
	}
	p.unbind(b)
	if knob != nil {
		b.target = knob
		p.send(AutomatedMsg{Instrument: b.instrument, Unit: b.unit, Knob: b.knob, Automated: true})
	}
}

func (p *Player) unbind(b *binding) {
	if b.target == nil {
		return
	}
	b.target.Publish(nil)
	b.target = nil
	p.send(AutomatedMsg{Instrument: b.instrument, Unit: b.unit, Knob: b.knob, Automated: false})
}

func (p *Player) SendAlert(name, message string) {
	p.send(Alert{Name: name, Message: message})
}

func (p *Player) compileOrUpdateSynth() {
	if p.synth != nil {
		err := p.synth.Update(p.song.Patch, p.ctx)
		if err != nil {
			p.synth = nil
			p.SendAlert("PlayerCrash", fmt.Sprintf("synth.Update: %v", err))
			return
		}
	} else {
		var err error
		p.synth, err = p.synther.Synth(p.song.Patch, p.ctx, p.song.BlockLength())
		if err != nil {
			p.synth = nil
			p.SendAlert("PlayerCrash", fmt.Sprintf("synther.Synth: %v", err))
			return
		}
	}
	for i := range p.bindings {
		b := &p.bindings[i]
		knob, _ := p.synth.Knob(b.instrument, b.unit, b.knob)
		p.retarget(b, knob)
	}
	voice := 0
	for _, instr := range p.song.Patch {
		if instr.Mute {
			for j := 0; j < instr.NumVoices; j++ {
				p.synth.Release(voice + j)
			}
		}
		voice += instr.NumVoices
	}
}

// all sends from player are always non-blocking, to ensure that the player
// thread cannot end up in a dead-lock
func (p *Player) send(message any) {
	TrySend(p.broker.ToModel, MsgToModel{
		HasPanicLevels: true,
		Panic:          p.synth == nil,
		VoiceLevels:    p.voiceLevels,
		Data:           message,
	})
}

func (p *Player) sendMeter(buffer atomsynth.AudioBuffer) {
	TrySend(p.broker.ToModel, MsgToModel{
		HasPanicLevels: true,
		Panic:          p.synth == nil,
		VoiceLevels:    p.voiceLevels,
		HasMeter:       true,
		Meter:          p.meter.Measure(buffer),
	})
}

func (p *Player) triggerInstrument(instrument int, note byte) {
	ID := idForInstrumentNote(instrument, note)
	p.release(ID)
	if p.song.Patch == nil || instrument < 0 || instrument >= len(p.song.Patch) {
		return
	}
	voiceStart := p.song.Patch.FirstVoiceForInstrument(instrument)
	voiceEnd := voiceStart + p.song.Patch[instrument].NumVoices
	p.trigger(voiceStart, voiceEnd, note, ID)
}

func (p *Player) releaseInstrument(instrument int, note byte) {
	p.release(idForInstrumentNote(instrument, note))
}

func (p *Player) releaseScore() {
	for i := range p.voices {
		if p.voices[i].noteID < 0 && p.voices[i].sustain {
			p.voices[i].sustain = false
			p.voices[i].samplesSinceEvent = 0
			if p.synth != nil {
				p.synth.Release(i)
			}
		}
	}
}

func (p *Player) trigger(voiceStart, voiceEnd int, note byte, ID int) {
	if p.synth == nil {
		return
	}
	var age int = 0
	oldestReleased := false
	oldestVoice := 0
	for i := voiceStart; i < voiceEnd && i < MaxVoices; i++ {
		// find a suitable voice to trigger. if the voice has been released,
		// then we prefer to trigger that over a voice that is still playing. in
		// case two voices are both playing or or both are released, we prefer
		// the older one
		if (!p.voices[i].sustain && !oldestReleased) ||
			(!p.voices[i].sustain == oldestReleased && p.voices[i].samplesSinceEvent >= age) {
			oldestVoice = i
			oldestReleased = !p.voices[i].sustain
			age = p.voices[i].samplesSinceEvent
		}
	}
	instrIndex, err := p.song.Patch.InstrumentForVoice(oldestVoice)
	if err != nil || p.song.Patch[instrIndex].Mute {
		return
	}
	p.voices[oldestVoice] = voice{noteID: ID, sustain: true, samplesSinceEvent: 0}
	p.voiceLevels[oldestVoice] = 1.0
	p.synth.Trigger(oldestVoice, note)
}

func (p *Player) release(ID int) {
	if p.synth == nil {
		return
	}
	for i := range p.voices {
		if p.voices[i].noteID == ID && p.voices[i].sustain {
			p.voices[i].sustain = false
			p.voices[i].samplesSinceEvent = 0
			p.synth.Release(i)
			return
		}
	}
}

// we need to give voices triggered by different sources a identifier who
// triggered it. non-negative values are for voices triggered by MIDI or
// NoteOnMsg; negative values are for voices triggered by the score
func idForInstrumentNote(instrument int, note byte) int {
	return instrument*256 + int(note)
}

func idForScoreNote(note int) int {
	return -1 - note
}

// NullContext is a ProcessContext without MIDI input nor host tempo.
type NullContext struct{}

func (NullContext) NextEvent(frame int) (event MIDINoteEvent, ok bool) {
	return MIDINoteEvent{}, false
}
func (NullContext) FinishBlock(frame int)       {}
func (NullContext) BPM() (bpm float64, ok bool) { return 0, false }
