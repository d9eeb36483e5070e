package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	"uml-architect/api/internal/config"
	"uml-architect/api/internal/prompt"
	"uml-architect/api/internal/uml/types"
)

const provider = "OpenAI"

type Engine struct {
	// Env is consulted on every call for the key, model and base URL.
	Env   config.Source
	httpc *http.Client
}

func New(env config.Source) *Engine {
	if env == nil {
		env = config.Env
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}

	return &Engine{
		Env:   env,
		httpc: &http.Client{Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for tests or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string { return "gpt" }

func chatRequest(model string, ex prompt.Exchange) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       model,
		Temperature: ex.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ex.System},
			{Role: openai.ChatMessageRoleUser, Content: ex.User},
		},
	}
}

// complete performs the single POST for an exchange and returns the text of
// the first choice.
func (e *Engine) complete(ctx context.Context, op string, ex prompt.Exchange) (string, error) {
	creds := config.OpenAI(e.Env)
	if creds.APIKey == "" {
		return "", types.MissingCredential("OPENAI_API_KEY")
	}

	payload, err := json.Marshal(chatRequest(creds.Model, ex))
	if err != nil {
		return "", fmt.Errorf("openai %s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai %s: read body: %w", op, err)
	}
	log.Printf("openai %s: model=%s status=%d bytes=%d", op, creds.Model, resp.StatusCode, len(raw))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &types.RemoteError{Provider: provider, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return firstContent(raw)
}

// firstContent reads choices[0].message.content from the envelope. An empty
// choices list counts as an empty reply.
func firstContent(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", &types.PayloadParseError{Err: errors.New("response envelope is not valid JSON")}
	}
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if content.Type != gjson.String || content.Str == "" {
		return "", types.ErrEmptyReply
	}
	return content.Str, nil
}
