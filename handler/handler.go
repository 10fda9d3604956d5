// Package handler provides the HTTP API for the wallet actions.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/uratmangun/ai-custodial-wallet/action"
	"github.com/uratmangun/ai-custodial-wallet/logger"
	"github.com/uratmangun/ai-custodial-wallet/wallet"
)

const maxBody = 1 << 20

// Handler holds the server dependencies and registers routes.
type Handler struct {
	actions *action.Registry
	log     *slog.Logger
	mux     *http.ServeMux
}

// New creates a Handler and wires up all routes.
func New(actions *action.Registry, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{actions: actions, log: log, mux: http.NewServeMux()}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)

	h.mux.HandleFunc("GET /actions", h.listActions)
	h.mux.HandleFunc("POST /actions/{name}", h.runAction)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": action.StatusError, "message": msg})
}

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	defer r.Body.Close()
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) > 0 && !json.Valid(b) {
		return nil, errors.New("body is not valid JSON")
	}
	return b, nil
}

// statusOf maps an action result to an HTTP status.
func statusOf(res action.Result) int {
	switch {
	case res.OK():
		return http.StatusOK
	case errors.Is(res.Err, action.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(res.Err, action.ErrInvalidInput),
		errors.Is(res.Err, wallet.ErrWalletNotFound),
		errors.Is(res.Err, action.ErrCoinNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "AI Custodial Wallet",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- actions ----------

func (h *Handler) listActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.actions.List())
}

func (h *Handler) runAction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	input, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res := h.actions.Run(r.Context(), name, input)
	status := statusOf(res)
	if status == http.StatusInternalServerError {
		h.log.Error("action failed", logger.Action(name), logger.Error(res.Err))
	}
	writeJSON(w, status, res)
}
