package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"uml-architect/api/internal/config"
	"uml-architect/api/internal/prompt"
	"uml-architect/api/internal/uml/types"
)

const provider = "Gemini"

type Engine struct {
	Env config.Source
	// Options are appended to the per-call client options (endpoint, HTTP client).
	Options []option.ClientOption
}

func New(env config.Source, opts ...option.ClientOption) *Engine {
	if env == nil {
		env = config.Env
	}
	return &Engine{Env: env, Options: opts}
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) GenerateDiagram(ctx context.Context, in types.DiagramRequest) (types.DiagramResult, error) {
	ex, err := prompt.Diagram(in)
	if err != nil {
		return types.DiagramResult{}, err
	}
	txt, err := e.generate(ctx, "diagram", ex)
	if err != nil {
		return types.DiagramResult{}, err
	}
	return types.DecodeDiagram(txt)
}

func (e *Engine) GenerateCode(ctx context.Context, in types.CodeGenerationRequest) (types.CodeResult, error) {
	ex, err := prompt.Code(in)
	if err != nil {
		return types.CodeResult{}, err
	}
	txt, err := e.generate(ctx, "code", ex)
	if err != nil {
		return types.CodeResult{}, err
	}
	return types.DecodeCode(txt)
}

func (e *Engine) generate(ctx context.Context, op string, ex prompt.Exchange) (string, error) {
	creds := config.Gemini(e.Env)
	if creds.APIKey == "" {
		return "", types.MissingCredential("GEMINI_API_KEY")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(creds.APIKey)}, e.Options...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", op, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(creds.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(ex.Temperature),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(ex.System)}}

	resp, err := m.GenerateContent(ctx, genai.Text(ex.User))
	if err != nil {
		return "", remoteError(op, err)
	}
	txt := candidateText(resp)
	log.Printf("gemini %s: model=%s bytes=%d", op, creds.Model, len(txt))
	if strings.TrimSpace(txt) == "" {
		return "", types.ErrEmptyReply
	}
	return txt, nil
}

// remoteError surfaces HTTP failures from the Google API stack as RemoteError
// so callers see the provider's status and body.
func remoteError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}
		return &types.RemoteError{Provider: provider, StatusCode: gerr.Code, Body: body}
	}
	return fmt.Errorf("gemini %s: %w", op, err)
}

// candidateText joins the text parts of the first candidate. A missing or
// empty first candidate yields "", which the caller reports as an empty reply.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func ptrFloat32(v float32) *float32 { return &v }
