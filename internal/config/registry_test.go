package config

import (
	"errors"
	"testing"

	"github.com/tablevox/tablevox/pkg/llm"
	"github.com/tablevox/tablevox/pkg/llm/mock"
)

func TestRegistry_CreateLLM(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterLLM("mock", func(entry LLMConfig) (llm.Provider, error) {
		return mock.New("hi"), nil
	})

	p, err := r.CreateLLM(LLMConfig{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if p == nil {
		t.Fatal("CreateLLM returned nil provider")
	}

	_, err = r.CreateLLM(LLMConfig{Name: "nonexistent"})
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_UnregisteredKinds(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.CreateSTT(STTConfig{Name: "kyutai"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateSTT err = %v", err)
	}
	if _, err := r.CreateTTS(TTSConfig{Name: "cartesia"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateTTS err = %v", err)
	}
}
