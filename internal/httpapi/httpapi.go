// Package httpapi exposes the session manager over HTTP (spec §6): a JSON
// API mounted under both /api/v1/session and /api/session, plus /healthz.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"gto-trainer/internal/session"
)

// API bundles the session manager behind chi handlers.
type API struct {
	mgr *session.Manager
}

// New wires a fresh session manager.
func New() *API {
	return &API{mgr: session.NewManager()}
}

// Router builds the full mux: dual-mounted session API plus the health
// route. No handler is registered for the root path.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", a.handleHealthz)

	r.Mount("/api/v1/session", a.sessionRouter())
	r.Mount("/api/session", a.sessionRouter())

	return r
}

func (a *API) sessionRouter() http.Handler {
	r := chi.NewRouter()
	r.Post("/", a.handleCreate)
	r.Get("/{sid}/node", a.handleNode)
	r.Post("/{sid}/choose", a.handleChoose)
	r.Get("/{sid}/summary", a.handleSummary)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		log.Info().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
	})
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRequest struct {
	Hands      int    `json:"hands"`
	MC         int    `json:"mc"`
	RivalStyle string `json:"rival_style"`
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.Body != nil {
		// A blank/absent body is valid (spec §6: missing fields fall back
		// to defaults); only a malformed non-empty body is an error.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	id, err := a.mgr.CreateSession(session.Config{
		Hands:      req.Hands,
		MCTrials:   req.MC,
		RivalStyle: req.RivalStyle,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session": id})
}

func (a *API) handleNode(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	node, done, summary, err := a.mgr.GetNode(sid)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if done {
		writeJSON(w, http.StatusOK, map[string]any{"done": true, "summary": summary})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"done":    false,
		"node":    nodePayload(node),
		"options": optionPayloads(node.Options),
	})
}

type choiceRequest struct {
	Choice int `json:"choice"`
}

func (a *API) handleChoose(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	feedback, next, done, summary, err := a.mgr.Choose(sid, req.Choice)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	resp := map[string]any{"feedback": feedback}
	if done {
		resp["next"] = map[string]any{"done": true, "summary": summary}
	} else {
		resp["next"] = map[string]any{
			"done":    false,
			"node":    nodePayload(next),
			"options": optionPayloads(next.Options),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	summary, err := a.mgr.Summary(sid)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidChoice), errors.Is(err, session.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func nodePayload(n *session.NodeView) map[string]any {
	return map[string]any{
		"street":       n.Street,
		"description":  n.Description,
		"pot_bb":       n.PotBB,
		"effective_bb": n.EffectiveBB,
		"hero_cards":   []string{n.HeroCards[0], n.HeroCards[1]},
		"board_cards":  n.BoardCards,
		"actor":        n.Actor,
		"hand_no":      n.HandNo,
		"total_hands":  n.TotalHands,
		"contract":     n.Contract,
	}
}

func optionPayloads(opts []session.OptionView) []map[string]any {
	out := make([]map[string]any, len(opts))
	for i, o := range opts {
		out[i] = map[string]any{
			"key":       o.Key,
			"label":     o.Label,
			"ev":        o.EV,
			"why":       o.Why,
			"ends_hand": o.EndsHand,
			"gto_freq":  o.GTOFreq,
		}
	}
	return out
}
