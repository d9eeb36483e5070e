package telegram

import (
	"encoding/base64"
	"html"
	"log"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"uml-architect/api/internal/uml/types"
)

const (
	maxMessage     = 3900
	maxCaption     = 1000
	mermaidInkBase = "https://mermaid.ink/img/"
	cbGenerateCode = "gen_code"
)

const startText = "Describe a system in plain words and I will draw a Mermaid diagram of it.\n" +
	"Commands:\n" +
	"/code - generate code from the last diagram\n" +
	"/engine [gpt|gemini] - show or switch the model provider\n" +
	"/reset - forget the last diagram"

// RenderURL is the mermaid.ink image for the diagram source.
func RenderURL(code string) string {
	return mermaidInkBase + base64.URLEncoding.EncodeToString([]byte(code))
}

func makeCodeKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("Generate code", cbGenerateCode)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

func (r *Router) sendDiagram(chatID int64, res types.DiagramResult) {
	img := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(RenderURL(res.Code)))
	img.Caption = truncate(res.Title, maxCaption)
	if _, err := r.Bot.Send(img); err != nil {
		// mermaid.ink could not render it; the source below still stands
		log.Printf("telegram photo chat=%d: %v", chatID, err)
	}

	msg := tgbotapi.NewMessage(chatID, formatDiagram(res))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = makeCodeKeyboard()
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("telegram send chat=%d: %v", chatID, err)
	}
}

func (r *Router) sendCode(chatID int64, res types.CodeResult) {
	msg := tgbotapi.NewMessage(chatID, formatCode(res))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("telegram send chat=%d: %v", chatID, err)
	}
}

// Shares of maxMessage for the parts around the source block. Whatever the
// model returns, the <pre> block keeps at least the remainder.
const (
	maxTitle       = 256
	maxExplanation = maxMessage / 3
	maxLink        = maxMessage / 4
)

func formatDiagram(res types.DiagramResult) string {
	var b strings.Builder
	b.WriteString("<b>" + escapeCut(res.Title, maxTitle) + "</b> (" + escapeCut(res.Type, maxTitle) + ")\n")
	if s := strings.TrimSpace(res.Explanation); s != "" {
		b.WriteString("\n" + escapeCut(s, maxExplanation) + "\n")
	}
	// long sources only get the photo above
	if link := html.EscapeString(RenderURL(res.Code)); len(link) <= maxLink {
		b.WriteString("\n<a href=\"" + link + "\">Open image</a>\n")
	}
	return b.String() + pre(res.Code, maxMessage-b.Len())
}

func formatCode(res types.CodeResult) string {
	var b strings.Builder
	b.WriteString("<b>" + escapeCut(res.Language, maxTitle) + "</b>\n")
	if s := strings.TrimSpace(res.Explanation); s != "" {
		b.WriteString("\n" + escapeCut(s, maxExplanation) + "\n")
	}
	b.WriteString("\n")
	return b.String() + pre(res.Code, maxMessage-b.Len())
}

// pre wraps s in a <pre> block of at most budget bytes.
func pre(s string, budget int) string {
	const open, closing = "<pre>", "</pre>"
	return open + escapeCut(s, budget-len(open)-len(closing)) + closing
}

// escapeCut HTML-escapes s, cutting the raw text first so no entity is split
// and the result stays within limit bytes.
func escapeCut(s string, limit int) string {
	esc := html.EscapeString(s)
	if len(esc) <= limit {
		return esc
	}
	raw := []rune(s)
	for len(raw) > 0 && len(html.EscapeString(string(raw)))+len("…") > limit {
		raw = raw[:len(raw)*9/10]
	}
	if limit < len("…") {
		return ""
	}
	return html.EscapeString(string(raw)) + "…"
}

// truncate cuts text to at most limit bytes on a rune boundary.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := max(limit-len("…"), 0)
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}
