// Package config provides the configuration schema, loader, provider
// registry, and file watcher for the TableVox voice reservation system.
package config

import "log/slog"

// LogLevel controls log verbosity for the TableVox server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to an [slog.Level]. An empty or unknown value maps to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Mode selects how the agent generates replies.
type Mode string

const (
	// ModeStructured uses the deterministic reservation state machine.
	ModeStructured Mode = "structured"

	// ModeLLM streams the conversation to an LLM provider.
	ModeLLM Mode = "llm"
)

// IsValid reports whether m is a recognised agent mode.
func (m Mode) IsValid() bool {
	return m == ModeStructured || m == ModeLLM
}

// Config is the root configuration structure for TableVox.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`
	STT    STTConfig    `yaml:"stt"`
	LLM    LLMConfig    `yaml:"llm"`
	TTS    TTSConfig    `yaml:"tts"`
	Agent  AgentConfig  `yaml:"agent"`
}

// ServerConfig holds network and logging settings for the TableVox server.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server (health, metrics)
	// listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// STTConfig selects and configures the streaming speech-to-text provider.
type STTConfig struct {
	// Name selects the registered STT provider (e.g., "kyutai").
	Name string `yaml:"name"`

	// Endpoint overrides the provider's default websocket endpoint.
	Endpoint string `yaml:"endpoint"`

	// APIKey authenticates against the recogniser, if it requires one.
	APIKey string `yaml:"api_key"`

	// SampleRate is the PCM sample rate of the audio in Hz. Zero means the
	// provider default.
	SampleRate int `yaml:"sample_rate"`

	// Language is a BCP-47 language hint passed to the recogniser.
	Language string `yaml:"language"`
}

// LLMConfig selects and configures the LLM provider used in llm mode.
type LLMConfig struct {
	// Name selects the registered LLM provider (e.g., "openai", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Temperature controls output randomness in the range [0.0, 2.0].
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps completion length. Zero means the provider default.
	MaxTokens int `yaml:"max_tokens"`
}

// TTSConfig selects and configures the text-to-speech provider.
type TTSConfig struct {
	// Name selects the registered TTS provider (e.g., "cartesia").
	Name string `yaml:"name"`

	// APIKey authenticates against the synthesis API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects the synthesis model (e.g., "sonic-english").
	Model string `yaml:"model"`

	// Voice is the provider-specific voice identifier.
	Voice string `yaml:"voice"`

	// SampleRate is the output PCM sample rate in Hz. Zero means the
	// provider default.
	SampleRate int `yaml:"sample_rate"`
}

// AgentConfig describes the reservation agent's behaviour.
type AgentConfig struct {
	// Mode selects the reply engine. Default: structured.
	Mode Mode `yaml:"mode"`

	// Restaurant is the venue name woven into prompts and replies.
	Restaurant string `yaml:"restaurant"`

	// SystemPrompt overrides the generated system prompt. Leave empty to use
	// the built-in reservation prompt.
	SystemPrompt string `yaml:"system_prompt"`

	// PauseHead selects the pause-prediction head that decides utterance
	// boundaries. Zero means the 2.0-second head.
	PauseHead int `yaml:"pause_head"`

	// Normalizer toggles transcript repair before intent parsing. When nil
	// the normalizer is enabled.
	Normalizer *bool `yaml:"normalizer"`
}

// NormalizerEnabled reports whether transcript repair should run.
func (a AgentConfig) NormalizerEnabled() bool {
	return a.Normalizer == nil || *a.Normalizer
}
