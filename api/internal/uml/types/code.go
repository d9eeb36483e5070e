package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"uml-architect/api/internal/util"
)

// UnknownLanguage is reported when the model does not name a language.
const UnknownLanguage = "Unknown language"

type CodeGenerationRequest struct {
	Prompt      string `json:"prompt"`
	DiagramType string `json:"diagramType"`
	DiagramCode string `json:"diagramCode"`
	Explanation string `json:"explanation,omitempty"`
}

// NewCodeRequest derives a code request from a previous diagram result.
func NewCodeRequest(prompt string, d DiagramResult) CodeGenerationRequest {
	return CodeGenerationRequest{
		Prompt:      prompt,
		DiagramType: d.Type,
		DiagramCode: d.Code,
		Explanation: d.Explanation,
	}
}

func (r CodeGenerationRequest) Validate() error {
	if strings.TrimSpace(r.DiagramCode) == "" {
		return fmt.Errorf("%w: diagram code must not be empty", ErrEmptyInput)
	}
	return nil
}

type CodeResult struct {
	Language    string `json:"language"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
}

// CodePayload is one of the shapes a model uses for the "code" field.
type CodePayload interface{ isCodePayload() }

type (
	CodeText   string
	CodeParts  []any
	CodeObject map[string]any
	// CodeNone covers absence and any shape not listed above.
	CodeNone struct{}
)

func (CodeText) isCodePayload()   {}
func (CodeParts) isCodePayload()  {}
func (CodeObject) isCodePayload() {}
func (CodeNone) isCodePayload()   {}

// ClassifyCode tags a decoded JSON value.
func ClassifyCode(v any) CodePayload {
	switch x := v.(type) {
	case string:
		return CodeText(x)
	case []any:
		return CodeParts(x)
	case map[string]any:
		return CodeObject(x)
	default:
		return CodeNone{}
	}
}

// CoerceCode turns any code payload into source text: list parts are joined
// by a blank line, structured values are pretty-printed, and an outer fence
// is removed. Unusable payloads yield "".
func CoerceCode(p CodePayload) string {
	switch x := p.(type) {
	case CodeText:
		return util.CleanCodeFence(string(x))
	case CodeParts:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
				continue
			}
			parts = append(parts, prettyJSON(item))
		}
		return util.CleanCodeFence(strings.Join(parts, "\n\n"))
	case CodeObject:
		return util.CleanCodeFence(prettyJSON(map[string]any(x)))
	default:
		return ""
	}
}

// NormalizeCode validates a parsed reply object into a CodeResult.
func NormalizeCode(obj map[string]any) (CodeResult, error) {
	code := CoerceCode(ClassifyCode(obj["code"]))
	if code == "" {
		return CodeResult{}, ErrNoCodeOutput
	}
	lang := strings.TrimSpace(stringField(obj, "language"))
	if lang == "" {
		lang = UnknownLanguage
	}
	return CodeResult{
		Language:    lang,
		Code:        code,
		Explanation: stringField(obj, "explanation"),
	}, nil
}

// DecodeCode runs extraction and normalization over raw reply text.
func DecodeCode(content string) (CodeResult, error) {
	obj, err := ParseReply(content)
	if err != nil {
		return CodeResult{}, err
	}
	return NormalizeCode(obj)
}

func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
