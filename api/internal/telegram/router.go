package telegram

import (
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"uml-architect/api/internal/session"
	"uml-architect/api/internal/uml"
)

// Bot is the part of *tgbotapi.BotAPI the router talks to.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Router struct {
	Bot        Bot
	Engines    *uml.Engines
	EngManager *uml.Manager
	Sessions   session.Store

	flights flights
	wg      sync.WaitGroup
}

// HandleUpdate dispatches one update. Model calls run in the background so
// a slow diagram never blocks the update loop; Wait drains them.
func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.HandleCommand(upd)
		return
	}

	text := strings.TrimSpace(upd.Message.Text)
	if text == "" {
		r.send(cid, "Send me a description of the system you want to diagram.")
		return
	}
	r.async(func() { r.runDiagram(cid, text) })
}

func (r *Router) HandleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "engine":
		r.handleEngineCommand(cid, upd.Message.CommandArguments())
	case "code":
		r.async(func() { r.runCode(cid) })
	case "reset":
		if err := r.resetHolder(cid); err != nil {
			r.sendError(cid, err)
			return
		}
		r.send(cid, "Forgot the last diagram.")
	default:
		r.send(cid, "Unknown command. Try /start")
	}
}

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	switch cb.Data {
	case cbGenerateCode:
		r.async(func() { r.runCode(cid) })
	}
}

// handleEngineCommand switches the chat's engine.
//
//	/engine
//	/engine gpt
//	/engine gemini
func (r *Router) handleEngineCommand(chatID int64, args string) {
	name := strings.ToLower(strings.TrimSpace(args))
	if name == "" {
		r.send(chatID, "Current engine: "+r.EngManager.Get(chatID).Name()+"\nUsage: /engine gpt | /engine gemini")
		return
	}
	eng, err := r.Engines.GetEngine(name)
	if err != nil {
		r.send(chatID, err.Error())
		return
	}
	r.EngManager.Set(chatID, eng)
	r.send(chatID, "Engine: "+eng.Name())
}

// Wait blocks until every background flow has finished.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) async(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, truncate(text, maxMessage))
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("telegram send chat=%d: %v", chatID, err)
	}
}

// sendError shows the error text as produced.
func (r *Router) sendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Error: %v", err))
}
