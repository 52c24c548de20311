package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/atomsynth/atomsynth"
	"github.com/atomsynth/atomsynth/automation"
	"github.com/atomsynth/atomsynth/cmd"
	"github.com/atomsynth/atomsynth/engine"
	"github.com/atomsynth/atomsynth/gomidi"
	"github.com/atomsynth/atomsynth/oto"
	"github.com/atomsynth/atomsynth/units"
	"github.com/atomsynth/atomsynth/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	play := flag.Bool("p", false, "Play the input songs (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered song as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered song as .wav file. By default, saves stereo float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	versionFlag := flag.Bool("v", false, "Print version.")
	live := flag.Bool("live", false, "Play the songs through the real time player, with meters and MIDI input.")
	midiInput := flag.String("midi", "", "Connect the MIDI input whose name starts with the given prefix (live mode only). Use \"*\" for the first device.")
	listMIDI := flag.Bool("list-midi", false, "List the MIDI input devices and exit.")
	debugUnits := flag.Bool("debug", false, "Make the debug units available to the songs.")
	strict := flag.Bool("strict", false, "Fail on songs that use unknown units, instead of bypassing them.")
	luaScript := flag.String("lua", "", "Automate a knob with the curve function of a Lua script.")
	luaTarget := flag.String("lua-target", "0:0:gain", "The knob automated by the Lua script, as instrument:unit:knob.")
	luaStep := flag.Float64("lua-step", 1.0/16, "Sampling interval of the Lua script, in beats.")
	luaLength := flag.Float64("lua-length", 0, "Length of the Lua curve, in beats. By default, the length of the score.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	prefs := cmd.MakePreferences()
	if prefs.YmlError != nil {
		log.Printf("preferences.yml: %v", prefs.YmlError)
	}
	if *listMIDI {
		inputs, err := cmd.MIDIInputs()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		for _, name := range inputs {
			fmt.Println(name)
		}
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	synther := engine.Synther{Registry: units.NewRegistry(*debugUnits), Strict: *strict || prefs.Strict}
	var target automationTarget
	if *luaScript != "" {
		var err error
		if target, err = parseTarget(*luaTarget); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -lua-target: %v\n", err)
			os.Exit(1)
		}
	}
	var audioContext *oto.Context
	if *play || *live {
		var err error
		audioContext, err = oto.NewContext(prefs.SampleRate, prefs.Latency)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
			os.Exit(1)
		}
	}
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				_, err := os.Stdout.Write(contents)
				return err
			}
			_, name := filepath.Split(filename)
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f := filepath.Join(dir, name)
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		song, err := readSong(filename)
		if err != nil {
			return err
		}
		// the audio device runs at the rate of the preferences
		if *play || *live {
			song.SampleRate = prefs.SampleRate
		}
		if song.BlockSize == 0 {
			song.BlockSize = prefs.BlockSize
		}
		var script *automation.Script
		if *luaScript != "" {
			if script, err = automation.Load(*luaScript, ""); err != nil {
				return err
			}
			defer script.Close()
		}
		if script != nil {
			// the script is baked into a lane here, so that the Lua VM never
			// runs on the audio thread
			length := *luaLength
			if length <= 0 {
				length = song.Score.End()
			}
			lane, err := script.Lane(target.instrument, target.unit, target.knob, length, *luaStep, song.BPM)
			if err != nil {
				return fmt.Errorf("could not evaluate the Lua script: %v", err)
			}
			song.Lanes = append(song.Lanes, lane)
		}
		if *live {
			return playLive(audioContext, synther, song, prefs, *midiInput)
		}
		buffer, err := atomsynth.Play(synther, song)
		if err != nil {
			return fmt.Errorf("atomsynth.Play failed: %v", err)
		}
		if *rawOut {
			raw, err := buffer.Raw(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			ctx := song.Context()
			wav, err := buffer.Wav(*pcm, int(ctx.SampleRate))
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %v", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		if *play {
			playback := audioContext.Play(buffer.Source())
			playback.Wait()
			playback.Close()
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			jsonfiles, err := filepath.Glob(filepath.Join(param, "*.json"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for json files: %v\n", param, err)
				retval = 1
				continue
			}
			ymlfiles, err := filepath.Glob(filepath.Join(param, "*.yml"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
			files := append(ymlfiles, jsonfiles...)
			for _, file := range files {
				err := process(file)
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			err := process(param)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

type automationTarget struct {
	instrument, unit int
	knob             string
}

func parseTarget(s string) (automationTarget, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return automationTarget{}, errors.New("expected instrument:unit:knob")
	}
	instr, err := strconv.Atoi(parts[0])
	if err != nil {
		return automationTarget{}, fmt.Errorf("instrument: %w", err)
	}
	unit, err := strconv.Atoi(parts[1])
	if err != nil {
		return automationTarget{}, fmt.Errorf("unit: %w", err)
	}
	return automationTarget{instrument: instr, unit: unit, knob: parts[2]}, nil
}

func readSong(filename string) (atomsynth.Song, error) {
	var song atomsynth.Song
	inputBytes, err := os.ReadFile(filename)
	if err != nil {
		return song, fmt.Errorf("could not read file %v: %v", filename, err)
	}
	if errJSON := json.Unmarshal(inputBytes, &song); errJSON != nil {
		song = atomsynth.Song{}
		if errYaml := yaml.Unmarshal(inputBytes, &song); errYaml != nil {
			return song, fmt.Errorf("the song could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	return song, nil
}

// playLive runs the song through the real time player until the score ends
// or, with MIDI input connected, until interrupted.
func playLive(audioContext *oto.Context, synther engine.Synther, song atomsynth.Song, prefs cmd.Preferences, midiInput string) error {
	broker := engine.NewBroker()
	player := engine.NewPlayer(broker, synther)
	var processContext engine.ProcessContext = engine.NullContext{}
	if midiInput != "" {
		midiContext := gomidi.NewContext(prefs.SampleRate, 1024)
		midiContext.Filter(prefs.MIDIChannel)
		prefix := midiInput
		if prefix == "*" {
			prefix = ""
		}
		name, closer, err := cmd.OpenMIDI(midiContext, prefix)
		if err != nil {
			return err
		}
		defer closer()
		log.Printf("listening to MIDI input %s", name)
		processContext = midiContext
	}
	broker.ToPlayer <- song
	broker.ToPlayer <- engine.StartPlayMsg{Beat: 0}
	playback := audioContext.Play(atomsynth.AudioSourceFunc(func(buf atomsynth.AudioBuffer) error {
		player.Process(buf, processContext)
		return nil
	}))
	defer playback.Close()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	meter := newMeterLine(os.Stdout)
	defer meter.done()
	for {
		select {
		case <-interrupt:
			return nil
		case msg := <-broker.ToModel:
			if msg.HasMeter {
				meter.show(msg.Meter, msg.VoiceLevels)
			}
			switch d := msg.Data.(type) {
			case *atomsynth.AudioBuffer:
				broker.PutAudioBuffer(d)
			case engine.Alert:
				return fmt.Errorf("%s: %s", d.Name, d.Message)
			case engine.IsPlayingMsg:
				if !d.IsPlaying() && midiInput == "" {
					// let the release tails ring
					time.Sleep(time.Second)
					return nil
				}
			}
		}
	}
}

// meterLine redraws the levels on one terminal line. When the output is not a
// terminal, nothing is drawn.
type meterLine struct {
	f     *os.File
	tty   bool
	width int
	last  time.Time
}

func newMeterLine(f *os.File) *meterLine {
	m := &meterLine{f: f, tty: term.IsTerminal(int(f.Fd())), width: 40}
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 40 {
		m.width = min(w-40, 80)
	}
	return m
}

func (m *meterLine) show(r engine.MeterResult, voices [engine.MaxVoices]float32) {
	if !m.tty || time.Since(m.last) < 50*time.Millisecond {
		return
	}
	m.last = time.Now()
	level := float64(max(r.Peak[0], r.Peak[1])-engine.MinDecibels) / float64(-engine.MinDecibels)
	bar := int(level * float64(m.width))
	var active int
	for _, v := range voices {
		if v > 0.1 {
			active++
		}
	}
	fmt.Fprintf(m.f, "\r[%-*s] peak %6.1f dB rms %6.1f dB voices %2d", m.width, strings.Repeat("#", min(max(bar, 0), m.width)), max(r.Peak[0], r.Peak[1]), max(r.RMS[0], r.RMS[1]), active)
}

func (m *meterLine) done() {
	if m.tty {
		fmt.Fprintln(m.f)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "atomsynth command line utility for rendering and playing .yml/.json song files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
