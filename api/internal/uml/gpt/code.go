package gpt

import (
	"context"

	"uml-architect/api/internal/prompt"
	"uml-architect/api/internal/uml/types"
)

const CODE = "code"

func (e *Engine) GenerateCode(ctx context.Context, in types.CodeGenerationRequest) (types.CodeResult, error) {
	ex, err := prompt.Code(in)
	if err != nil {
		return types.CodeResult{}, err
	}
	content, err := e.complete(ctx, CODE, ex)
	if err != nil {
		return types.CodeResult{}, err
	}
	return types.DecodeCode(content)
}
