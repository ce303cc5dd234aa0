package app

import (
	"fmt"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/tablevox/tablevox/internal/config"
	"github.com/tablevox/tablevox/internal/resilience"
	"github.com/tablevox/tablevox/pkg/llm"
	"github.com/tablevox/tablevox/pkg/llm/anyllm"
	"github.com/tablevox/tablevox/pkg/llm/mock"
	"github.com/tablevox/tablevox/pkg/llm/openai"
	"github.com/tablevox/tablevox/pkg/stt"
	"github.com/tablevox/tablevox/pkg/stt/kyutai"
	"github.com/tablevox/tablevox/pkg/tts"
	"github.com/tablevox/tablevox/pkg/tts/cartesia"
)

// Providers bundles the external services one App instance talks to. STT is
// always required; LLM is required only in llm mode, and TTS is optional.
type Providers struct {
	STT stt.Provider
	LLM llm.Provider
	TTS tts.Synthesizer
}

// DefaultRegistry returns a [config.Registry] with every built-in provider
// registered. Callers embedding TableVox can register additional providers on
// top before calling [BuildProviders].
func DefaultRegistry() *config.Registry {
	reg := config.NewRegistry()

	reg.RegisterSTT("kyutai", func(c config.STTConfig) (stt.Provider, error) {
		var opts []kyutai.Option
		if c.APIKey != "" {
			opts = append(opts, kyutai.WithAPIKey(c.APIKey))
		}
		if c.SampleRate > 0 {
			opts = append(opts, kyutai.WithSampleRate(c.SampleRate))
		}
		return kyutai.New(c.Endpoint, opts...)
	})

	// OpenAI goes through the dedicated SDK-backed provider; every other
	// hosted or local LLM goes through the any-llm universal backend.
	reg.RegisterLLM("openai", func(c config.LLMConfig) (llm.Provider, error) {
		var opts []openai.Option
		if c.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.BaseURL))
		}
		return openai.New(c.APIKey, c.Model, opts...)
	})
	for _, name := range []string{
		"anthropic", "gemini", "ollama", "deepseek",
		"mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(name, anyLLMFactory(name))
	}
	reg.RegisterLLM("mock", func(config.LLMConfig) (llm.Provider, error) {
		return mock.New(), nil
	})

	reg.RegisterTTS("cartesia", func(c config.TTSConfig) (tts.Synthesizer, error) {
		var opts []cartesia.Option
		if c.BaseURL != "" {
			opts = append(opts, cartesia.WithBaseURL(c.BaseURL))
		}
		if c.Model != "" {
			opts = append(opts, cartesia.WithModel(c.Model))
		}
		if c.Voice != "" {
			opts = append(opts, cartesia.WithVoice(c.Voice))
		}
		if c.SampleRate > 0 {
			opts = append(opts, cartesia.WithSampleRate(c.SampleRate))
		}
		return cartesia.New(c.APIKey, opts...)
	})

	return reg
}

// anyLLMFactory adapts the any-llm backend named name to a registry factory.
func anyLLMFactory(name string) func(config.LLMConfig) (llm.Provider, error) {
	return func(c config.LLMConfig) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if c.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(c.APIKey))
		}
		if c.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(c.BaseURL))
		}
		return anyllm.New(name, c.Model, opts...)
	}
}

// BuildProviders constructs the provider set selected by cfg using the
// factories in reg. The STT provider defaults to kyutai when stt.name is
// empty; LLM and TTS are built only when configured. Every built provider is
// wrapped in a circuit breaker so a failing backend is not hammered on every
// call.
func BuildProviders(cfg *config.Config, reg *config.Registry) (Providers, error) {
	var p Providers

	sttCfg := cfg.STT
	if sttCfg.Name == "" {
		sttCfg.Name = "kyutai"
	}
	sp, err := reg.CreateSTT(sttCfg)
	if err != nil {
		return Providers{}, fmt.Errorf("app: build stt provider: %w", err)
	}
	p.STT = resilience.NewSTT(sp, sttCfg.Name, resilience.Config{})

	if cfg.LLM.Name != "" {
		lp, err := reg.CreateLLM(cfg.LLM)
		if err != nil {
			return Providers{}, fmt.Errorf("app: build llm provider: %w", err)
		}
		p.LLM = resilience.NewLLM(lp, cfg.LLM.Name, resilience.Config{})
	}

	if cfg.TTS.Name != "" {
		tp, err := reg.CreateTTS(cfg.TTS)
		if err != nil {
			return Providers{}, fmt.Errorf("app: build tts provider: %w", err)
		}
		p.TTS = resilience.NewTTS(tp, cfg.TTS.Name, resilience.Config{})
	}

	return p, nil
}
