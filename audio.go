package atomsynth

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

type (
	// AudioBuffer is a buffer of stereo audio samples of variable length, each
	// sample represented by [2]float32. [0] is left channel, [1] is right
	AudioBuffer [][2]float32

	// AudioContext represents the low-level audio drivers. There should be at
	// most one AudioContext at a time. Play starts pulling audio from the
	// source until the returned CloserWaiter is closed.
	AudioContext interface {
		Play(r AudioSource) CloserWaiter
	}

	// AudioSource is a function that fills the given buffer completely with
	// audio.
	AudioSource interface {
		ReadAudio(buf AudioBuffer) error
	}

	// AudioSourceFunc adapts a function into an AudioSource.
	AudioSourceFunc func(buf AudioBuffer) error

	// CloserWaiter stops playback with Close; Wait blocks until the playback
	// has actually stopped.
	CloserWaiter interface {
		Close() error
		Wait()
	}
)

func (f AudioSourceFunc) ReadAudio(buf AudioBuffer) error { return f(buf) }

// Fill fills the AudioBuffer using a Synth, rendering one block at a time.
func (buffer AudioBuffer) Fill(synth Synth) error {
	for b := buffer; len(b) > 0; {
		n := min(len(b), synth.BlockSize())
		rendered, err := synth.Render(b[:n])
		if err != nil {
			return fmt.Errorf("synth.Render: %w", err)
		}
		if rendered != n {
			return errors.New("synth.Render should have filled the whole block but did not")
		}
		b = b[n:]
	}
	return nil
}

// Source returns an AudioSource that plays the buffer once. After the end of
// the buffer, the source fills with silence and returns io.EOF.
func (buffer AudioBuffer) Source() AudioSource {
	pos := 0
	return AudioSourceFunc(func(buf AudioBuffer) error {
		n := copy(buf, buffer[pos:])
		pos += n
		clear(buf[n:])
		if n < len(buf) {
			return io.EOF
		}
		return nil
	})
}

// Wav converts an AudioBuffer into a valid WAV-file, returned as a []byte
// array.
//
// If pcm16 is set to true, the samples in the WAV-file will be 16-bit signed
// integers; otherwise the samples will be 32-bit floats
func (buffer AudioBuffer) Wav(pcm16 bool, sampleRate int) ([]byte, error) {
	buf := new(bytes.Buffer)
	wavHeader(len(buffer)*2, pcm16, sampleRate, buf)
	err := buffer.rawToBuffer(pcm16, buf)
	if err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	return buf.Bytes(), nil
}

// Raw converts an AudioBuffer into a raw binary float32 or int16 buffer.
//
// If pcm16 is set to false, the buffer will be in float32 format, otherwise
// it will be in int16 format.
func (buffer AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := buffer.rawToBuffer(pcm16, buf)
	if err != nil {
		return nil, fmt.Errorf("Raw failed: %v", err)
	}
	return buf.Bytes(), nil
}

func (data AudioBuffer) rawToBuffer(pcm16 bool, buf io.Writer) error {
	var err error
	if pcm16 {
		int16data := make([][2]int16, len(data))
		for i, v := range data {
			int16data[i][0] = toInt16(v[0])
			int16data[i][1] = toInt16(v[1])
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, data)
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %v", err)
	}
	return nil
}

func toInt16(v float32) int16 {
	return int16(max(min(int(v*math.MaxInt16), math.MaxInt16), math.MinInt16))
}

// wavHeader writes a wave header for either float32 or int16 .wav file into the
// bytes.buffer. It needs to know the length of the buffer and assumes stereo
// sound, so the length in stereo samples (L + R) is bufferlength / 2. If pcm16
// = true, then the header is for int16 audio; pcm16 = false means the header is
// for float32 audio.
func wavHeader(bufferLength int, pcm16 bool, sampleRate int, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	numChannels := 2
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
		factChunk = false
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))            // fact chunk size
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength)) // sample length
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}
