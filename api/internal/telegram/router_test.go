package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uml-architect/api/internal/session"
	"uml-architect/api/internal/uml"
	"uml-architect/api/internal/uml/types"
	"uml-architect/api/internal/uml/umltest"
)

const chat int64 = 42

type fakeBot struct {
	mu       sync.Mutex
	texts    []string
	photos   []string
	requests int
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		b.texts = append(b.texts, m.Text)
	case tgbotapi.PhotoConfig:
		b.photos = append(b.photos, string(m.File.(tgbotapi.FileURL)))
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) all() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.texts, "\n---\n")
}

func newRouter(gpt, gem *umltest.FakeEngine) (*Router, *fakeBot) {
	bot := &fakeBot{}
	engs := &uml.Engines{OpenAI: gpt, Gemini: gem}
	return &Router{
		Bot:        bot,
		Engines:    engs,
		EngManager: uml.NewManager(gpt),
		Sessions:   session.NewMemory(),
	}, bot
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chat}, Text: text}
	if strings.HasPrefix(text, "/") {
		n := len(strings.Fields(text)[0])
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return tgbotapi.Update{Message: msg}
}

var shop = types.DiagramResult{
	Title: "Shop <v1>", Type: "classDiagram", Code: "classDiagram\n  Order --> Item", Explanation: "orders hold items",
}

func TestDiagramFlowStoresHolder(t *testing.T) {
	gpt := &umltest.FakeEngine{EngineName: "gpt", Diagram: shop}
	r, bot := newRouter(gpt, nil)

	r.HandleUpdate(textUpdate("an online shop"))
	r.Wait()

	assert.Equal(t, "an online shop", gpt.LastDiagram().Prompt)
	require.Len(t, bot.photos, 1)
	assert.Equal(t, RenderURL(shop.Code), bot.photos[0])
	out := bot.all()
	assert.Contains(t, out, "Shop &lt;v1&gt;")
	assert.Contains(t, out, "orders hold items")
	assert.Contains(t, out, "Order --&gt; Item")

	last, ok, err := r.Sessions.Get(context.Background(), chat)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.LastDiagram{Prompt: "an online shop", Result: shop}, last)
}

func TestDiagramFailureResetsHolder(t *testing.T) {
	gpt := &umltest.FakeEngine{Diagram: shop}
	r, bot := newRouter(gpt, nil)

	r.HandleUpdate(textUpdate("an online shop"))
	r.Wait()

	gpt.DiagramErr = &types.RemoteError{Provider: "OpenAI", StatusCode: 500, Body: "upstream exploded"}
	gpt.Diagram = types.DiagramResult{}
	r.HandleUpdate(textUpdate("a bank"))
	r.Wait()

	_, ok, err := r.Sessions.Get(context.Background(), chat)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, bot.all(), "Error: OpenAI API error (500): upstream exploded")
}

func TestCodeFlow(t *testing.T) {
	gpt := &umltest.FakeEngine{Diagram: shop, Code: types.CodeResult{Language: "Go", Code: "type Order struct{ Items []Item }", Explanation: "models"}}
	r, bot := newRouter(gpt, nil)

	r.HandleUpdate(textUpdate("/code"))
	r.Wait()
	assert.Contains(t, bot.all(), errNoDiagram.Error())
	assert.Zero(t, gpt.CodeCalls.Load())

	r.HandleUpdate(textUpdate("an online shop"))
	r.Wait()
	r.HandleUpdate(textUpdate("/code"))
	r.Wait()

	assert.Equal(t, types.NewCodeRequest("an online shop", shop), gpt.LastCode())
	assert.Contains(t, bot.all(), "type Order struct{ Items []Item }")
}

func TestCodeButton(t *testing.T) {
	gpt := &umltest.FakeEngine{Diagram: shop, Code: types.CodeResult{Language: "Go", Code: "package shop"}}
	r, bot := newRouter(gpt, nil)
	r.HandleUpdate(textUpdate("an online shop"))
	r.Wait()

	r.HandleUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb1", Data: cbGenerateCode, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chat}},
	}})
	r.Wait()

	assert.EqualValues(t, 1, gpt.CodeCalls.Load())
	assert.Equal(t, 1, bot.requests)
}

func TestEngineCommand(t *testing.T) {
	gpt := &umltest.FakeEngine{EngineName: "gpt"}
	gem := &umltest.FakeEngine{EngineName: "gemini", Diagram: shop}
	r, bot := newRouter(gpt, gem)

	r.HandleUpdate(textUpdate("/engine gemini"))
	assert.Equal(t, "gemini", r.EngManager.Get(chat).Name())
	assert.Equal(t, "gpt", r.EngManager.Get(chat+1).Name())

	r.HandleUpdate(textUpdate("an online shop"))
	r.Wait()
	assert.EqualValues(t, 1, gem.DiagramCalls.Load())
	assert.Zero(t, gpt.DiagramCalls.Load())

	r.HandleUpdate(textUpdate("/engine llama"))
	assert.Contains(t, bot.all(), "unknown llm_name")
}

func TestBusyGuard(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	gpt := &umltest.FakeEngine{
		DiagramFunc: func(ctx context.Context, in types.DiagramRequest) (types.DiagramResult, error) {
			entered <- struct{}{}
			<-release
			return shop, nil
		},
	}
	r, bot := newRouter(gpt, nil)

	r.HandleUpdate(textUpdate("first"))
	<-entered

	// same flow is refused while the first is running
	r.runDiagram(chat, "second")
	assert.Contains(t, bot.all(), "Still working on the previous diagram")

	// the code flow is independent of the diagram flow
	assert.True(t, r.flights.acquire(chat, flowCode))
	r.flights.release(chat, flowCode)

	// another chat is not affected
	assert.True(t, r.flights.acquire(chat+1, flowDiagram))
	r.flights.release(chat+1, flowDiagram)

	close(release)
	r.Wait()
	assert.EqualValues(t, 1, gpt.DiagramCalls.Load())
	assert.True(t, r.flights.acquire(chat, flowDiagram), "released after completion")
}

func TestRenderURL(t *testing.T) {
	code := "graph TD; A-->B?"
	u := RenderURL(code)
	require.True(t, strings.HasPrefix(u, mermaidInkBase))
	dec, err := base64.URLEncoding.DecodeString(strings.TrimPrefix(u, mermaidInkBase))
	require.NoError(t, err)
	assert.Equal(t, code, string(dec))
	assert.NotContains(t, strings.TrimPrefix(u, mermaidInkBase), "/")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	got := truncate(strings.Repeat("ж", 10), 9)
	assert.LessOrEqual(t, len(got), 9)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, "…", truncate("abcdef", 2))
}

func TestFormatCodeStaysWithinLimit(t *testing.T) {
	res := types.CodeResult{Language: "Go", Code: strings.Repeat("a<b>&c\n", 2000)}
	out := formatCode(res)
	assert.LessOrEqual(t, len(out), maxMessage)
	assert.True(t, strings.HasSuffix(out, "…</pre>"))
	assert.Equal(t, 1, strings.Count(out, "<pre>"))
}

func TestFormatStaysWithinLimitWithLongProse(t *testing.T) {
	long := strings.Repeat("orders & <items> ", 400)
	d := types.DiagramResult{
		Title:       strings.Repeat("T", 1000),
		Type:        "classDiagram",
		Code:        strings.Repeat("classDiagram\n  Order --> Item\n", 200),
		Explanation: long,
	}
	out := formatDiagram(d)
	assert.LessOrEqual(t, len(out), maxMessage)
	assert.Equal(t, 1, strings.Count(out, "<pre>"))
	assert.Equal(t, 1, strings.Count(out, "</pre>"))
	assert.NotContains(t, out, "Open image", "link to a long source is left to the photo")

	short := formatDiagram(types.DiagramResult{Title: "Shop", Type: "flowchart", Code: "graph TD; A-->B", Explanation: long})
	assert.LessOrEqual(t, len(short), maxMessage)
	assert.Contains(t, short, "Open image")
	assert.Contains(t, short, "graph TD; A--&gt;B")

	code := formatCode(types.CodeResult{Language: "Go", Code: "package shop", Explanation: long})
	assert.LessOrEqual(t, len(code), maxMessage)
	assert.True(t, strings.HasSuffix(code, "<pre>package shop</pre>"))
}

func TestEscapeCut(t *testing.T) {
	assert.Equal(t, "a &amp; b", escapeCut("a & b", 20))
	got := escapeCut(strings.Repeat("&", 10), 12)
	assert.LessOrEqual(t, len(got), 12)
	assert.True(t, strings.HasSuffix(got, "&amp;…"), got)
	assert.Empty(t, escapeCut("abcdef", 1))
}

type failingPut struct {
	*session.Memory
}

func (failingPut) Put(context.Context, int64, types.LastDiagram) error {
	return errors.New("db down")
}

func TestFailedSaveClearsHolder(t *testing.T) {
	gpt := &umltest.FakeEngine{Diagram: shop}
	r, _ := newRouter(gpt, nil)
	mem := session.NewMemory()
	old := types.LastDiagram{Prompt: "a bank", Result: types.DiagramResult{Type: "flowchart", Code: "graph TD; X-->Y"}}
	require.NoError(t, mem.Put(context.Background(), chat, old))
	r.Sessions = failingPut{mem}

	r.HandleUpdate(textUpdate("an online shop"))
	r.Wait()

	_, ok, err := mem.Get(context.Background(), chat)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFlowsRunWithoutDeadline(t *testing.T) {
	noDeadline := func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			return errors.New("call was given a deadline")
		}
		return nil
	}
	gpt := &umltest.FakeEngine{
		DiagramFunc: func(ctx context.Context, in types.DiagramRequest) (types.DiagramResult, error) {
			return shop, noDeadline(ctx)
		},
		CodeFunc: func(ctx context.Context, in types.CodeGenerationRequest) (types.CodeResult, error) {
			return types.CodeResult{Language: "Go", Code: "package shop"}, noDeadline(ctx)
		},
	}
	r, bot := newRouter(gpt, nil)

	r.HandleUpdate(textUpdate("an online shop"))
	r.Wait()
	r.HandleUpdate(textUpdate("/code"))
	r.Wait()

	assert.NotContains(t, bot.all(), "deadline")
	assert.Contains(t, bot.all(), "package shop")
}
