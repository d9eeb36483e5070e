package types

import (
	"fmt"
	"strings"
)

// DefaultDiagramTitle stands in for a reply that carries no title.
const DefaultDiagramTitle = "Architecture Diagram"

type DiagramRequest struct {
	Prompt string `json:"prompt"`
}

func (r DiagramRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt must not be empty", ErrEmptyInput)
	}
	return nil
}

// DiagramResult is what the diagram flow hands to the renderer. DiagramCode
// is Mermaid source and is passed on untouched.
type DiagramResult struct {
	Title       string `json:"diagramTitle"`
	Type        string `json:"diagramType"`
	Code        string `json:"diagramCode"`
	Explanation string `json:"explanation"`
}

// LastDiagram is the per-session holder value read by the code flow.
type LastDiagram struct {
	Prompt string        `json:"prompt"`
	Result DiagramResult `json:"result"`
}

// NormalizeDiagram validates a parsed reply object and fills defaults.
// diagramType and diagramCode must be non-empty strings.
func NormalizeDiagram(obj map[string]any) (DiagramResult, error) {
	typ := stringField(obj, "diagramType")
	code := stringField(obj, "diagramCode")
	if typ == "" || code == "" {
		return DiagramResult{}, ErrIncompleteResponse
	}
	return DiagramResult{
		Title:       withDefault(stringField(obj, "diagramTitle"), DefaultDiagramTitle),
		Type:        typ,
		Code:        code,
		Explanation: stringField(obj, "explanation"),
	}, nil
}

// DecodeDiagram runs extraction and normalization over raw reply text.
func DecodeDiagram(content string) (DiagramResult, error) {
	obj, err := ParseReply(content)
	if err != nil {
		return DiagramResult{}, err
	}
	return NormalizeDiagram(obj)
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func withDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
