package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "mock"},
	"stt": {"kyutai"},
	"tts": {"cartesia"},
}

// cloudLLMProviders require an API key; a missing one is almost always a
// deployment mistake worth warning about.
var cloudLLMProviders = []string{"openai", "anthropic", "gemini", "deepseek", "mistral", "groq"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
// Suspicious-but-workable values are logged as warnings instead.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.STT.Name)
	validateProviderName("llm", cfg.LLM.Name)
	validateProviderName("tts", cfg.TTS.Name)

	// STT
	if cfg.STT.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("stt.sample_rate %d is negative", cfg.STT.SampleRate))
	}

	// LLM
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f is out of range [0.0, 2.0]", cfg.LLM.Temperature))
	}
	if cfg.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens %d is negative", cfg.LLM.MaxTokens))
	}
	if cfg.LLM.APIKey == "" && slices.Contains(cloudLLMProviders, cfg.LLM.Name) {
		slog.Warn("llm.api_key is empty for a cloud provider; completion requests will fail",
			"provider", cfg.LLM.Name)
	}

	// TTS
	if cfg.TTS.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("tts.sample_rate %d is negative", cfg.TTS.SampleRate))
	}
	if cfg.TTS.Name != "" && cfg.TTS.APIKey == "" {
		slog.Warn("tts.api_key is empty; speech synthesis will be unavailable",
			"provider", cfg.TTS.Name)
	}

	// Agent
	if cfg.Agent.Mode != "" && !cfg.Agent.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("agent.mode %q is invalid; valid values: structured, llm", cfg.Agent.Mode))
	}
	if cfg.Agent.Mode == ModeLLM && cfg.LLM.Name == "" {
		errs = append(errs, errors.New("agent.mode llm requires an LLM provider but llm.name is not configured"))
	}
	if cfg.Agent.PauseHead < 0 || cfg.Agent.PauseHead > 3 {
		errs = append(errs, fmt.Errorf("agent.pause_head %d is out of range [0, 3]; the recogniser has four prediction heads", cfg.Agent.PauseHead))
	}
	if cfg.Agent.Restaurant == "" {
		slog.Warn("agent.restaurant is empty; replies will use a generic venue name")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
