package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Engine sends one system instruction and one user prompt to a text-generation
// service and returns the raw text it produced.
type Engine interface {
	Name() string
	GetModel() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

var ErrUnknownEngine = errors.New("unknown llm_name; use 'gpt' or 'gemini'")

type Engines struct {
	OpenAI Engine
	Gemini Engine

	// Default is used when the caller does not name an engine.
	Default string
}

// GetEngine resolves llm_name to a configured engine.
func (e *Engines) GetEngine(llmName string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(e.Default))
	}

	var eng Engine
	switch name {
	case "gpt", "openai":
		eng = e.OpenAI
	case "gemini":
		eng = e.Gemini
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, llmName)
	}
	if eng == nil {
		return nil, fmt.Errorf("%w: %q is not configured", ErrUnknownEngine, name)
	}
	return eng, nil
}

// Manager keeps a per-chat engine choice for the bot front-end.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}
