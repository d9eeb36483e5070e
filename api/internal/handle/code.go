package handle

import (
	"net/http"
	"time"

	"uml-architect/api/internal/uml/types"
)

type CodeRequest struct {
	LLMName string `json:"llm_name"`
	types.CodeGenerationRequest
}

func (h *Handle) Code(w http.ResponseWriter, r *http.Request) {
	rid, ok := begin(w, r)
	if !ok {
		return
	}

	var req CodeRequest
	if !decode(w, r, &req) {
		return
	}
	eng, ok := h.engine(w, req.LLMName)
	if !ok {
		return
	}

	start := time.Now()
	out, err := eng.GenerateCode(r.Context(), req.CodeGenerationRequest)
	logDone(rid, "code", eng, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
