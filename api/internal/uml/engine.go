package uml

import (
	"context"
	"errors"
	"strings"
	"sync"

	"uml-architect/api/internal/uml/types"
)

type Engine interface {
	Name() string
	GenerateDiagram(ctx context.Context, in types.DiagramRequest) (types.DiagramResult, error)
	GenerateCode(ctx context.Context, in types.CodeGenerationRequest) (types.CodeResult, error)
}

type Engines struct {
	OpenAI Engine
	Gemini Engine
}

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(llmName)) {
	case "", "gpt", "openai":
		eng = e.OpenAI
	case "gemini":
		eng = e.Gemini
	default:
		return nil, errors.New("unknown llm_name; use 'gpt' or 'gemini'")
	}
	if eng == nil {
		return nil, errors.New("llm engine " + llmName + " is not configured")
	}
	return eng, nil
}

// Manager keeps a per-chat engine choice on top of a default.
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
