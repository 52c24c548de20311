package engine

import (
	"math"

	"github.com/atomsynth/atomsynth"
	"github.com/viterin/vek/vek32"
)

type (
	// Meter measures the peak and RMS levels of audio buffers. It keeps its
	// scratch buffers between calls, so measuring does not allocate once the
	// buffers have grown to the block size.
	Meter struct {
		tmp, tmp2 []float32
	}

	// MeterResult contains the levels of the left and right channel in dBFS.
	// Silence is reported as MinDecibels.
	MeterResult struct {
		Peak [2]Decibel
		RMS  [2]Decibel
	}

	Decibel float32
)

const MinDecibels Decibel = -100

// Measure returns the levels of buf.
func (m *Meter) Measure(buf atomsynth.AudioBuffer) (ret MeterResult) {
	if len(buf) == 0 {
		return MeterResult{Peak: [2]Decibel{MinDecibels, MinDecibels}, RMS: [2]Decibel{MinDecibels, MinDecibels}}
	}
	if cap(m.tmp) < len(buf) {
		m.tmp = make([]float32, len(buf))
		m.tmp2 = make([]float32, len(buf))
	}
	for chn := 0; chn < 2; chn++ {
		x := m.tmp[:len(buf)]
		for i := range buf {
			x[i] = buf[i][chn]
		}
		sq := vek32.Mul_Into(m.tmp2[:len(buf)], x, x)
		ret.RMS[chn] = toDecibel(float32(math.Sqrt(float64(vek32.Mean(sq)))))
		vek32.Abs_Inplace(x)
		ret.Peak[chn] = toDecibel(vek32.Max(x))
	}
	return
}

func toDecibel(amplitude float32) Decibel {
	if amplitude <= 0 {
		return MinDecibels
	}
	return max(Decibel(20*math.Log10(float64(amplitude))), MinDecibels)
}
