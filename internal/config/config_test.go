package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petems/voicegpt/internal/sample"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := Default()
	if cfg.Audio.MaxChannels != d.Audio.MaxChannels {
		t.Errorf("expected max channels %d, got %d", d.Audio.MaxChannels, cfg.Audio.MaxChannels)
	}
	if cfg.Audio.FramesPerBuffer != 256 {
		t.Errorf("expected 256 frames per buffer, got %d", cfg.Audio.FramesPerBuffer)
	}
	if cfg.OpenAI.TranscriptionModel != "whisper-1" {
		t.Errorf("expected whisper-1, got %s", cfg.OpenAI.TranscriptionModel)
	}
	if filepath.Base(cfg.Output.Path) != FileName {
		t.Errorf("expected output file %s, got %s", FileName, cfg.Output.Path)
	}
	if cfg.Path() != path {
		t.Errorf("expected path %s, got %s", path, cfg.Path())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	out := filepath.Join(t.TempDir(), "take.wav")
	path := writeConfig(t, `{
  "audio": {"device_id": "USB Audio", "sample_formats": ["float32", "int16"]},
  "output": {"path": "`+filepath.ToSlash(out)+`"},
  "log_level": "debug"
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.DeviceID != "USB Audio" {
		t.Errorf("expected device USB Audio, got %q", cfg.Audio.DeviceID)
	}
	if cfg.Output.Path != filepath.ToSlash(out) {
		t.Errorf("expected output %s, got %s", out, cfg.Output.Path)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %s", cfg.LogLevel)
	}
	// untouched keys keep their defaults
	if cfg.Audio.MaxChannels != 2 {
		t.Errorf("expected default max channels 2, got %d", cfg.Audio.MaxChannels)
	}

	kinds, err := cfg.Audio.Kinds()
	if err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 2 || kinds[0] != sample.Float32 || kinds[1] != sample.Int16 {
		t.Errorf("unexpected kinds %v", kinds)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("VOICEGPT_AUDIO_DEVICE_ID", "Env Mic")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.DeviceID != "Env Mic" {
		t.Errorf("expected device from env, got %q", cfg.Audio.DeviceID)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("expected api key from env, got %q", cfg.OpenAI.APIKey)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"audio": `},
		{"unknown sample format", `{"audio": {"sample_formats": ["int24"]}}`},
		{"negative channels", `{"audio": {"max_channels": -1}}`},
		{"empty output", `{"output": {"path": ""}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.path = filepath.Join(t.TempDir(), "nested", "config.json")
	cfg.Audio.DeviceID = "Studio Mic"
	cfg.OpenAI.APIKey = "sk-secret"
	cfg.Inject.CopyToClipboard = true

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(cfg.path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "sk-secret") {
		t.Error("api key must not be written to disk")
	}

	loaded, err := Load(cfg.path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Audio.DeviceID != "Studio Mic" || !loaded.Inject.CopyToClipboard {
		t.Errorf("unexpected config after round trip: %+v", loaded)
	}
}
