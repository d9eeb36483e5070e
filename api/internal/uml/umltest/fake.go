package umltest

import (
	"context"
	"sync"
	"sync/atomic"

	"uml-architect/api/internal/uml/types"
)

// FakeEngine returns canned results for handler and bot tests.
type FakeEngine struct {
	EngineName string

	Diagram    types.DiagramResult
	DiagramErr error
	Code       types.CodeResult
	CodeErr    error

	// Optional hooks run instead of the canned values.
	DiagramFunc func(ctx context.Context, in types.DiagramRequest) (types.DiagramResult, error)
	CodeFunc    func(ctx context.Context, in types.CodeGenerationRequest) (types.CodeResult, error)

	DiagramCalls atomic.Int32
	CodeCalls    atomic.Int32

	mu          sync.Mutex
	lastDiagram types.DiagramRequest
	lastCode    types.CodeGenerationRequest
}

func (f *FakeEngine) LastDiagram() types.DiagramRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastDiagram
}

func (f *FakeEngine) LastCode() types.CodeGenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCode
}

func (f *FakeEngine) Name() string {
	if f.EngineName == "" {
		return "fake"
	}
	return f.EngineName
}

func (f *FakeEngine) GenerateDiagram(ctx context.Context, in types.DiagramRequest) (types.DiagramResult, error) {
	f.DiagramCalls.Add(1)
	f.mu.Lock()
	f.lastDiagram = in
	f.mu.Unlock()
	if err := in.Validate(); err != nil {
		return types.DiagramResult{}, err
	}
	if f.DiagramFunc != nil {
		return f.DiagramFunc(ctx, in)
	}
	return f.Diagram, f.DiagramErr
}

func (f *FakeEngine) GenerateCode(ctx context.Context, in types.CodeGenerationRequest) (types.CodeResult, error) {
	f.CodeCalls.Add(1)
	f.mu.Lock()
	f.lastCode = in
	f.mu.Unlock()
	if err := in.Validate(); err != nil {
		return types.CodeResult{}, err
	}
	if f.CodeFunc != nil {
		return f.CodeFunc(ctx, in)
	}
	return f.Code, f.CodeErr
}
