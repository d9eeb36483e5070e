package handle

import (
	"net/http"
	"time"

	"uml-architect/api/internal/uml/types"
)

type DiagramRequest struct {
	LLMName string `json:"llm_name"`
	types.DiagramRequest
}

func (h *Handle) Diagram(w http.ResponseWriter, r *http.Request) {
	rid, ok := begin(w, r)
	if !ok {
		return
	}

	var req DiagramRequest
	if !decode(w, r, &req) {
		return
	}
	eng, ok := h.engine(w, req.LLMName)
	if !ok {
		return
	}

	start := time.Now()
	out, err := eng.GenerateDiagram(r.Context(), req.DiagramRequest)
	logDone(rid, "diagram", eng, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
