package gpt

import (
	"context"

	"uml-architect/api/internal/prompt"
	"uml-architect/api/internal/uml/types"
)

const DIAGRAM = "diagram"

func (e *Engine) GenerateDiagram(ctx context.Context, in types.DiagramRequest) (types.DiagramResult, error) {
	ex, err := prompt.Diagram(in)
	if err != nil {
		return types.DiagramResult{}, err
	}
	content, err := e.complete(ctx, DIAGRAM, ex)
	if err != nil {
		return types.DiagramResult{}, err
	}
	return types.DecodeDiagram(content)
}
