package handle

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"uml-architect/api/internal/uml"
	"uml-architect/api/internal/uml/types"
)

type Handle struct {
	engs *uml.Engines
}

func New(engs *uml.Engines) *Handle {
	return &Handle{
		engs: engs,
	}
}

// Register mounts the UML routes on mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", Healthz)
	mux.HandleFunc("/v1/uml/diagram", h.Diagram)
	mux.HandleFunc("/v1/uml/code", h.Code)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type errorReply struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError replies with the error text unchanged.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorReply{Error: err.Error(), Kind: types.Kind(err)})
}

func statusFor(err error) int {
	var (
		re *types.RemoteError
		pe *types.PayloadParseError
	)
	switch {
	case errors.Is(err, types.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrMissingCredential):
		return http.StatusInternalServerError
	case errors.As(err, &re), errors.As(err, &pe),
		errors.Is(err, types.ErrEmptyReply),
		errors.Is(err, types.ErrNoJSONPayload),
		errors.Is(err, types.ErrIncompleteResponse),
		errors.Is(err, types.ErrNoCodeOutput):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// begin runs the checks shared by every POST endpoint and returns a request
// id. The call lives as long as the client connection; there is no deadline.
func begin(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorReply{Error: "POST only"})
		return "", false
	}
	rid := r.Header.Get("X-Request-ID")
	if rid == "" {
		rid = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", rid)
	return rid, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "bad json: " + err.Error()})
		return false
	}
	return true
}

func (h *Handle) engine(w http.ResponseWriter, llmName string) (uml.Engine, bool) {
	eng, err := h.engs.GetEngine(llmName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: err.Error()})
		return nil, false
	}
	return eng, true
}

func logDone(rid, op string, eng uml.Engine, start time.Time, err error) {
	if err != nil {
		log.Printf("[%s] %s engine=%s failed after %s: kind=%s err=%v", rid, op, eng.Name(), time.Since(start).Round(time.Millisecond), types.Kind(err), err)
		return
	}
	log.Printf("[%s] %s engine=%s ok in %s", rid, op, eng.Name(), time.Since(start).Round(time.Millisecond))
}
