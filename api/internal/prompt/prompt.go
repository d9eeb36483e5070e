package prompt

import (
	"strings"

	"uml-architect/api/internal/uml/types"
)

// Diagram replies favour determinism; code scaffolds get more room.
const (
	DiagramTemperature float32 = 0.2
	CodeTemperature    float32 = 0.4
)

const (
	diagramSystem = `You are an assistant that designs software architecture diagrams using UML notation expressed as Mermaid code. Respond with concise JSON.`

	diagramUser = `Generate a high-level UML architecture for the following request. Focus on components, responsibilities, key interactions, and data flow. Return the response as JSON with the keys diagramTitle, diagramType, diagramCode (Mermaid syntax), explanation. The Mermaid code must be valid for Mermaid 10.9.4 and use only stable diagram types (e.g. flowchart/graph, classDiagram, sequenceDiagram, stateDiagram, erDiagram). Avoid experimental syntaxes such as textMermaid or the text diagram format. Request: `

	codeSystem = `You are a senior software engineer who translates UML architecture into high-quality implementation scaffolds. Respond with concise JSON only.`
)

// Exchange is the provider-neutral request: one system and one user message.
type Exchange struct {
	System      string
	User        string
	Temperature float32
}

func Diagram(req types.DiagramRequest) (Exchange, error) {
	if err := req.Validate(); err != nil {
		return Exchange{}, err
	}
	return Exchange{
		System:      diagramSystem,
		User:        diagramUser + req.Prompt,
		Temperature: DiagramTemperature,
	}, nil
}

func Code(req types.CodeGenerationRequest) (Exchange, error) {
	if err := req.Validate(); err != nil {
		return Exchange{}, err
	}

	lines := []string{
		"Generate implementable starter code that aligns with this UML design.",
		"Original request: " + req.Prompt,
		"Diagram type: " + req.DiagramType,
	}
	if req.Explanation != "" {
		lines = append(lines, "Explanation from UML generator: "+req.Explanation)
	}
	lines = append(lines,
		"UML diagram (Mermaid syntax):",
		req.DiagramCode,
		"",
		"Return JSON with keys: language (programming language used), code (single multi-file friendly code block), explanation (brief notes on major components).",
		"Prefer mainstream languages (TypeScript, Java, Python, etc.) that best match the architecture. Include necessary scaffolding and key classes or modules.",
	)

	return Exchange{
		System:      codeSystem,
		User:        strings.Join(lines, "\n"),
		Temperature: CodeTemperature,
	}, nil
}
