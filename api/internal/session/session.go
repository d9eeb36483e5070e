package session

import (
	"context"
	"sync"

	"uml-architect/api/internal/uml/types"
)

// Store holds the last successful diagram per chat. Values are replaced
// whole; a reader never sees a half-written diagram.
type Store interface {
	Get(ctx context.Context, chatID int64) (types.LastDiagram, bool, error)
	Put(ctx context.Context, chatID int64, d types.LastDiagram) error
	Reset(ctx context.Context, chatID int64) error
}

// Memory is a process-local Store.
type Memory struct {
	m sync.Map // chatID -> types.LastDiagram
}

func NewMemory() *Memory { return &Memory{} }

func (s *Memory) Get(_ context.Context, chatID int64) (types.LastDiagram, bool, error) {
	v, ok := s.m.Load(chatID)
	if !ok {
		return types.LastDiagram{}, false, nil
	}
	return v.(types.LastDiagram), true, nil
}

func (s *Memory) Put(_ context.Context, chatID int64, d types.LastDiagram) error {
	s.m.Store(chatID, d)
	return nil
}

func (s *Memory) Reset(_ context.Context, chatID int64) error {
	s.m.Delete(chatID)
	return nil
}
