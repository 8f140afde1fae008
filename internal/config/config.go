package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/petems/voicegpt/internal/sample"
)

const appName = "voicegpt"

// FileName is the default recording file name.
const FileName = "recorded.wav"

type Config struct {
	Audio    AudioConfig  `json:"audio" mapstructure:"audio"`
	Output   OutputConfig `json:"output" mapstructure:"output"`
	OpenAI   OpenAIConfig `json:"openai" mapstructure:"openai"`
	Inject   InjectConfig `json:"inject" mapstructure:"inject"`
	LogLevel string       `json:"log_level" mapstructure:"log_level"`

	path string
}

type AudioConfig struct {
	DeviceID        string   `json:"device_id" mapstructure:"device_id"`
	MaxChannels     int      `json:"max_channels" mapstructure:"max_channels"`           // 0 = all input channels
	SampleFormats   []string `json:"sample_formats" mapstructure:"sample_formats"`       // probe order, e.g. "int16", "float32"
	FramesPerBuffer int      `json:"frames_per_buffer" mapstructure:"frames_per_buffer"` // 0 = host decides
}

type OutputConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

type OpenAIConfig struct {
	APIKey             string  `json:"-" mapstructure:"api_key"`
	TranscriptionModel string  `json:"transcription_model" mapstructure:"transcription_model"`
	CompletionModel    string  `json:"completion_model" mapstructure:"completion_model"`
	Language           string  `json:"language" mapstructure:"language"` // "" = auto-detect
	MaxTokens          int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature        float32 `json:"temperature" mapstructure:"temperature"`
	MaxRetries         int     `json:"max_retries" mapstructure:"max_retries"`
}

type InjectConfig struct {
	CopyToClipboard bool `json:"copy_to_clipboard" mapstructure:"copy_to_clipboard"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			DeviceID:        "",
			MaxChannels:     2,
			SampleFormats:   []string{"int16", "float32", "int32", "int8"},
			FramesPerBuffer: 256,
		},
		Output: OutputConfig{
			Path: filepath.Join(DataPath(), FileName),
		},
		OpenAI: OpenAIConfig{
			TranscriptionModel: "whisper-1",
			CompletionModel:    "gpt-4o-mini",
			MaxTokens:          100,
			Temperature:        0,
			MaxRetries:         3,
		},
		Inject: InjectConfig{
			CopyToClipboard: false,
		},
		LogLevel: "info",
		path:     ConfigPath(),
	}
}

// Load reads the config at path (ConfigPath() when empty) on top of the
// defaults. A missing file is not an error. Every key can be overridden
// from the environment as VOICEGPT_<SECTION>_<KEY>; OPENAI_API_KEY is
// honoured as well.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(appName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openai.api_key", "VOICEGPT_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("audio.device_id", d.Audio.DeviceID)
	v.SetDefault("audio.max_channels", d.Audio.MaxChannels)
	v.SetDefault("audio.sample_formats", d.Audio.SampleFormats)
	v.SetDefault("audio.frames_per_buffer", d.Audio.FramesPerBuffer)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.transcription_model", d.OpenAI.TranscriptionModel)
	v.SetDefault("openai.completion_model", d.OpenAI.CompletionModel)
	v.SetDefault("openai.language", d.OpenAI.Language)
	v.SetDefault("openai.max_tokens", d.OpenAI.MaxTokens)
	v.SetDefault("openai.temperature", d.OpenAI.Temperature)
	v.SetDefault("openai.max_retries", d.OpenAI.MaxRetries)
	v.SetDefault("inject.copy_to_clipboard", d.Inject.CopyToClipboard)
	v.SetDefault("log_level", d.LogLevel)
}

// Validate checks values that would otherwise fail deep inside capture.
func (c *Config) Validate() error {
	if c.Output.Path == "" {
		return errors.New("output.path must not be empty")
	}
	if c.Audio.MaxChannels < 0 {
		return fmt.Errorf("audio.max_channels must not be negative, got %d", c.Audio.MaxChannels)
	}
	if c.Audio.FramesPerBuffer < 0 {
		return fmt.Errorf("audio.frames_per_buffer must not be negative, got %d", c.Audio.FramesPerBuffer)
	}
	if _, err := c.Audio.Kinds(); err != nil {
		return err
	}
	if c.OpenAI.MaxTokens < 0 {
		return fmt.Errorf("openai.max_tokens must not be negative, got %d", c.OpenAI.MaxTokens)
	}
	return nil
}

// Kinds parses SampleFormats, dropping duplicates and keeping order.
func (a AudioConfig) Kinds() ([]sample.Kind, error) {
	kinds := make([]sample.Kind, 0, len(a.SampleFormats))
	seen := make(map[sample.Kind]bool)
	for _, name := range a.SampleFormats {
		k, err := sample.ParseKind(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, fmt.Errorf("audio.sample_formats: %w", err)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	if c.path == "" {
		return ConfigPath()
	}
	return c.path
}

// Save writes the config to disk. The API key is never written back; keep
// it in the environment or a .env file.
func (c *Config) Save() error {
	path := c.Path()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ConfigPath returns the platform-specific config file path
func ConfigPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appName, "config.json")
}

// DataPath returns the platform-specific directory recordings go to
func DataPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, appName)
}
