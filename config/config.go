// Package config loads and persists critique preferences as YAML.
//
// Resolution order: DefaultSettings() <- config file <- environment. Only the
// API key and model are typically changed by users; the remaining values tune
// capture and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DirName is the directory under os.UserConfigDir holding the config file.
	DirName = "critique"
	// FileName is the default config file name.
	FileName = "config.yaml"

	// DefaultModel is used when no model has been chosen.
	DefaultModel = "gemini-2.0-flash"
	// MockModel selects the canned offline model; it needs no API key.
	MockModel = "mock-model"
	maxQuality = 12
)

// Providers understood by the model factory.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Environment variables overriding file values.
const (
	EnvAPIKey          = "CRITIQUE_API_KEY"
	EnvModel           = "CRITIQUE_MODEL"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

var (
	// ErrMissingAPIKey is returned by Validate when a real model has no key.
	ErrMissingAPIKey = errors.New("please enter your API key in settings")
)

// Settings holds the persisted preferences.
type Settings struct {
	// Provider is gemini, openai, anthropic or mock. Empty infers it from Model.
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	// BaseURL overrides the provider endpoint (proxies, tests).
	BaseURL string `yaml:"base_url,omitempty"`

	// Prompt replaces a blank scan prompt. Empty uses the built-in prompt.
	Prompt      string `yaml:"prompt,omitempty"`
	Instruction string `yaml:"instruction,omitempty"`
	MaxTurns    int    `yaml:"max_turns"`

	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
}

// CaptureConfig bounds the exported image.
type CaptureConfig struct {
	MaxLongEdge int `yaml:"max_long_edge"`
	// Quality is on the host's 0..12 JPEG scale.
	Quality int `yaml:"quality"`
	// TempDir is the parent of the temporary export directory. Empty uses os.TempDir.
	TempDir string `yaml:"temp_dir,omitempty"`
}

// LogConfig selects the log level and format (json or text).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultSettings returns the baseline preferences.
func DefaultSettings() Settings {
	return Settings{
		Model: DefaultModel,
		Capture: CaptureConfig{
			MaxLongEdge: 3000,
			Quality:     8,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultPath returns <user config dir>/critique/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, DirName, FileName), nil
}

// Load reads path on top of the defaults. A missing file yields the defaults.
// The result is not validated so that incomplete settings can still be edited.
func Load(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return s, nil
}

// Save writes the settings to path, creating parent directories. The file is
// only readable by the owner since it holds the API key.
func (s Settings) Save(path string) error {
	if path == "" {
		return errors.New("config path is required")
	}

	raw, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	return nil
}

// ApplyEnv overlays environment variables. CRITIQUE_API_KEY wins over the
// provider-specific variables, which only fill an empty key.
func (s *Settings) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	if v := getenv(EnvModel); v != "" {
		s.Model = v
	}

	if v := getenv(EnvAPIKey); v != "" {
		s.APIKey = v
		return
	}

	if s.APIKey != "" {
		return
	}

	var name string
	switch s.ResolvedProvider() {
	case ProviderGemini:
		name = EnvGeminiAPIKey
	case ProviderOpenAI:
		name = EnvOpenAIAPIKey
	case ProviderAnthropic:
		name = EnvAnthropicAPIKey
	}
	if name != "" {
		s.APIKey = getenv(name)
	}
}

// ResolvedProvider returns the explicit provider or infers it from the model name.
func (s Settings) ResolvedProvider() string {
	if s.Model == MockModel {
		return ProviderMock
	}
	if s.Provider != "" {
		return strings.ToLower(s.Provider)
	}

	m := strings.ToLower(s.Model)
	switch {
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return ProviderOpenAI
	case strings.HasPrefix(m, "claude"):
		return ProviderAnthropic
	default:
		return ProviderGemini
	}
}

// Validate checks the settings are usable for a critique.
func (s Settings) Validate() error {
	switch p := s.ResolvedProvider(); p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		if strings.TrimSpace(s.APIKey) == "" {
			return ErrMissingAPIKey
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown provider %q", p)
	}

	if s.Model == "" {
		return errors.New("model is required")
	}
	if s.Capture.MaxLongEdge <= 0 {
		return fmt.Errorf("capture.max_long_edge must be positive, got %d", s.Capture.MaxLongEdge)
	}
	if s.Capture.Quality < 0 || s.Capture.Quality > maxQuality {
		return fmt.Errorf("capture.quality must be between 0 and %d, got %d", maxQuality, s.Capture.Quality)
	}
	if s.MaxTurns < 0 {
		return fmt.Errorf("max_turns must not be negative, got %d", s.MaxTurns)
	}

	return nil
}

// MaskedAPIKey returns the key with all but the last four characters hidden.
func (s Settings) MaskedAPIKey() string {
	if s.APIKey == "" {
		return ""
	}
	if len(s.APIKey) <= 4 {
		return strings.Repeat("*", len(s.APIKey))
	}
	return strings.Repeat("*", len(s.APIKey)-4) + s.APIKey[len(s.APIKey)-4:]
}
