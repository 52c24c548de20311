package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultPreferences(t *testing.T) {
	p := loadDefaultPreferences()
	if p.SampleRate != 44100 || p.BlockSize != 256 || p.Latency != 50*time.Millisecond || p.MIDIChannel != -1 {
		t.Fatalf("unexpected default preferences %+v", p)
	}
}

func TestCustomPreferences(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("AppData", dir)
	configDir, err := os.UserConfigDir()
	if err != nil {
		t.Skipf("no user config directory: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(configDir, "atomsynth"), 0o755); err != nil {
		t.Fatalf("cannot create config directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "atomsynth", "preferences.yml"), []byte("samplerate: 48000\n"), 0o644); err != nil {
		t.Fatalf("cannot write preferences: %v", err)
	}
	p := MakePreferences()
	if p.YmlError != nil {
		t.Fatalf("unexpected error: %v", p.YmlError)
	}
	if p.SampleRate != 48000 || p.BlockSize != 256 {
		t.Fatalf("expected the sample rate to be overridden and the rest kept, got %+v", p)
	}
	if err := os.WriteFile(filepath.Join(configDir, "atomsynth", "preferences.yml"), []byte("samplerat: 48000\n"), 0o644); err != nil {
		t.Fatalf("cannot write preferences: %v", err)
	}
	if p := MakePreferences(); p.YmlError == nil {
		t.Fatalf("expected an error for an unknown key")
	}
}
