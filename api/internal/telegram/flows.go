package telegram

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"uml-architect/api/internal/uml/types"
)

// holderTimeout bounds session store round trips only; model calls run
// until the provider answers.
const holderTimeout = 5 * time.Second

var errNoDiagram = errors.New("generate a diagram first, then ask for code")

// runDiagram generates a diagram for prompt. On success the chat's holder is
// replaced; on failure it is cleared so /code cannot pick up a stale diagram.
func (r *Router) runDiagram(chatID int64, prompt string) {
	if !r.flights.acquire(chatID, flowDiagram) {
		r.send(chatID, "Still working on the previous diagram, please wait.")
		return
	}
	defer r.flights.release(chatID, flowDiagram)

	rid := uuid.NewString()
	eng := r.EngManager.Get(chatID)
	ctx := context.Background()

	r.send(chatID, "Designing the diagram…")
	start := time.Now()
	res, err := eng.GenerateDiagram(ctx, types.DiagramRequest{Prompt: prompt})
	if err != nil {
		log.Printf("[%s] chat=%d diagram engine=%s failed after %s: kind=%s err=%v",
			rid, chatID, eng.Name(), time.Since(start).Round(time.Millisecond), types.Kind(err), err)
		if rerr := r.resetHolder(chatID); rerr != nil {
			log.Printf("[%s] chat=%d reset holder: %v", rid, chatID, rerr)
		}
		r.sendError(chatID, err)
		return
	}
	log.Printf("[%s] chat=%d diagram engine=%s type=%s ok in %s",
		rid, chatID, eng.Name(), res.Type, time.Since(start).Round(time.Millisecond))

	if err := r.saveHolder(chatID, types.LastDiagram{Prompt: prompt, Result: res}); err != nil {
		// an older diagram must not answer /code for this one
		log.Printf("[%s] chat=%d save holder: %v", rid, chatID, err)
		if rerr := r.resetHolder(chatID); rerr != nil {
			log.Printf("[%s] chat=%d reset holder: %v", rid, chatID, rerr)
		}
	}
	r.sendDiagram(chatID, res)
}

// runCode generates code from the chat's last diagram.
func (r *Router) runCode(chatID int64) {
	if !r.flights.acquire(chatID, flowCode) {
		r.send(chatID, "Still generating code, please wait.")
		return
	}
	defer r.flights.release(chatID, flowCode)

	rid := uuid.NewString()
	last, ok, err := r.loadHolder(chatID)
	if err != nil {
		r.sendError(chatID, err)
		return
	}
	if !ok {
		r.sendError(chatID, errNoDiagram)
		return
	}

	eng := r.EngManager.Get(chatID)
	r.send(chatID, "Writing code for "+last.Result.Title+"…")
	start := time.Now()
	res, err := eng.GenerateCode(context.Background(), types.NewCodeRequest(last.Prompt, last.Result))
	if err != nil {
		log.Printf("[%s] chat=%d code engine=%s failed after %s: kind=%s err=%v",
			rid, chatID, eng.Name(), time.Since(start).Round(time.Millisecond), types.Kind(err), err)
		r.sendError(chatID, err)
		return
	}
	log.Printf("[%s] chat=%d code engine=%s lang=%s ok in %s",
		rid, chatID, eng.Name(), res.Language, time.Since(start).Round(time.Millisecond))
	r.sendCode(chatID, res)
}

func (r *Router) loadHolder(chatID int64) (types.LastDiagram, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), holderTimeout)
	defer cancel()
	return r.Sessions.Get(ctx, chatID)
}

func (r *Router) saveHolder(chatID int64, d types.LastDiagram) error {
	ctx, cancel := context.WithTimeout(context.Background(), holderTimeout)
	defer cancel()
	return r.Sessions.Put(ctx, chatID, d)
}

func (r *Router) resetHolder(chatID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), holderTimeout)
	defer cancel()
	return r.Sessions.Reset(ctx, chatID)
}
