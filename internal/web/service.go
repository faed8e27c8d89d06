package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/hotseatchess/internal/chess"
	"github.com/justinabrahms/hotseatchess/internal/config"
	"github.com/justinabrahms/hotseatchess/internal/session"
	"github.com/justinabrahms/hotseatchess/internal/store"
)

type Service struct {
	sessions *session.Manager
	hub      *Hub
	config   *config.Config
}

func NewService(sessions *session.Manager, hub *Hub, config *config.Config) *Service {
	return &Service{
		sessions: sessions,
		hub:      hub,
		config:   config,
	}
}

// Routes registers the API and the WebSocket endpoint on router.
func (s *Service) Routes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.HealthHandler).Methods("GET")

	api.HandleFunc("/matches", s.CreateMatchHandler).Methods("POST")
	api.HandleFunc("/matches", s.ListMatchesHandler).Methods("GET")
	api.HandleFunc("/matches/{id}", s.GetMatchHandler).Methods("GET")
	api.HandleFunc("/matches/{id}", s.DeleteMatchHandler).Methods("DELETE")
	api.HandleFunc("/matches/{id}/select", s.SelectHandler).Methods("GET")
	api.HandleFunc("/matches/{id}/moves", s.MakeMoveHandler).Methods("POST")
	api.HandleFunc("/matches/{id}/promotion", s.PromotionHandler).Methods("POST")
	api.HandleFunc("/matches/{id}/draw/offer", s.OfferDrawHandler).Methods("POST")
	api.HandleFunc("/matches/{id}/draw/accept", s.AcceptDrawHandler).Methods("POST")
	api.HandleFunc("/matches/{id}/resign", s.ResignHandler).Methods("POST")
	api.HandleFunc("/matches/{id}/reset", s.ResetHandler).Methods("POST")
	api.HandleFunc("/matches/{id}/state", s.GetStateHandler).Methods("GET")
	api.HandleFunc("/matches/{id}/state", s.PutStateHandler).Methods("PUT")
	api.HandleFunc("/matches/{id}/clock", s.ClockHandler).Methods("GET")
	api.HandleFunc("/matches/{id}/save", s.SaveHandler).Methods("POST")

	api.HandleFunc("/saves", s.ListSavesHandler).Methods("GET")
	api.HandleFunc("/saves", s.DeleteAllSavesHandler).Methods("DELETE")
	api.HandleFunc("/saves/{name}/load", s.LoadSaveHandler).Methods("POST")
	api.HandleFunc("/saves/{name}", s.DeleteSaveHandler).Methods("DELETE")

	api.HandleFunc("/spectate", s.GetActiveMatchesHandler).Methods("GET")
	api.HandleFunc("/spectate/{id}", s.GetSpectatorMatchHandler).Methods("GET")

	router.HandleFunc("/ws", s.WebSocketHandler(s.hub))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrMatchNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chess.ErrIllegalMove), errors.Is(err, chess.ErrInvalidPromotion):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, chess.ErrGameOver),
		errors.Is(err, chess.ErrPromotionPending),
		errors.Is(err, chess.ErrNoPromotionPending),
		errors.Is(err, chess.ErrDrawUnavailable),
		errors.Is(err, chess.ErrNotOnClock):
		status = http.StatusConflict
	case errors.Is(err, chess.ErrMalformedState),
		errors.Is(err, chess.ErrInvariantViolation),
		errors.Is(err, store.ErrInvalidName):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	http.Error(w, err.Error(), status)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Service) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"matches": len(s.sessions.List()),
		"store":   s.config.Store.Driver,
	})
}

type MatchResponse struct {
	ID       string         `json:"id"`
	Snapshot chess.Snapshot `json:"snapshot"`
}

func (s *Service) CreateMatchHandler(w http.ResponseWriter, r *http.Request) {
	id, snap := s.sessions.Create()
	log.Info().Str("matchID", id).Msg("Match created")
	writeJSON(w, http.StatusCreated, MatchResponse{ID: id, Snapshot: snap})
}

func (s *Service) ListMatchesHandler(w http.ResponseWriter, r *http.Request) {
	matches := s.sessions.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"total":   len(matches),
	})
}

func (s *Service) GetMatchHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := s.sessions.Snapshot(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{ID: id, Snapshot: snap})
}

func (s *Service) DeleteMatchHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Remove(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SelectResponse struct {
	Square       string   `json:"square"`
	Destinations []string `json:"destinations"`
}

// SelectHandler lists where the piece on ?square= may go.
func (s *Service) SelectHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("square")
	sq, err := chess.ParseSquare(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dests, err := s.sessions.Select(mux.Vars(r)["id"], sq)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := SelectResponse{Square: sq.String(), Destinations: []string{}}
	for _, d := range dests {
		resp.Destinations = append(resp.Destinations, d.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

type MakeMoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// MakeMoveHandler plays a move. A promotion piece given with the move resolves
// the promotion in the same request.
func (s *Service) MakeMoveHandler(w http.ResponseWriter, r *http.Request) {
	var req MakeMoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	from, err := chess.ParseSquare(req.From)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := chess.ParseSquare(req.To)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	promotion := chess.NoKind
	if req.Promotion != "" {
		if promotion = chess.ParsePromotion(strings.ToLower(req.Promotion)); promotion == chess.NoKind {
			writeError(w, fmt.Errorf("promotion %q: %w", req.Promotion, chess.ErrInvalidPromotion))
			return
		}
	}

	id := mux.Vars(r)["id"]
	res, err := s.sessions.Move(r.Context(), id, from, to)
	if err != nil {
		log.Debug().Err(err).Str("matchID", id).Str("from", req.From).Str("to", req.To).Msg("Move rejected")
		writeError(w, err)
		return
	}
	if res.PromotionPending && promotion != chess.NoKind {
		res, err = s.sessions.Promote(r.Context(), id, promotion)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	log.Info().Str("matchID", id).Str("from", req.From).Str("to", req.To).Bool("gameOver", res.GameOver).Msg("Move played")
	writeJSON(w, http.StatusOK, res)
}

type PromotionRequest struct {
	Piece string `json:"piece"`
}

func (s *Service) PromotionHandler(w http.ResponseWriter, r *http.Request) {
	var req PromotionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.sessions.Promote(r.Context(), mux.Vars(r)["id"], chess.ParsePromotion(strings.ToLower(req.Piece)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) OfferDrawHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.OfferDraw(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"offered": true})
}

func (s *Service) AcceptDrawHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.sessions.AcceptDraw(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type ResignRequest struct {
	Color string `json:"color"`
}

func (s *Service) ResignHandler(w http.ResponseWriter, r *http.Request) {
	var req ResignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := chess.ParseColor(req.Color)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.sessions.Resign(r.Context(), mux.Vars(r)["id"], c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) ResetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := s.sessions.Reset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{ID: id, Snapshot: snap})
}

type StateBody struct {
	State string `json:"state"`
}

func (s *Service) GetStateHandler(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Serialize(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StateBody{State: state})
}

// PutStateHandler replaces the match with an encoded state. A rejected state
// leaves the match as it was.
func (s *Service) PutStateHandler(w http.ResponseWriter, r *http.Request) {
	var req StateBody
	if !decodeBody(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	snap, err := s.sessions.Restore(r.Context(), id, req.State)
	if err != nil {
		log.Warn().Err(err).Str("matchID", id).Msg("State rejected")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{ID: id, Snapshot: snap})
}

type ClockResponse struct {
	White string `json:"white"`
	Black string `json:"black"`
	Turn  string `json:"turn"`
}

func (s *Service) ClockHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Snapshot(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClockResponse{
		White: chess.FormatClock(time.Duration(snap.WhiteClock) * time.Second),
		Black: chess.FormatClock(time.Duration(snap.BlackClock) * time.Second),
		Turn:  snap.Turn.String(),
	})
}

type SaveRequest struct {
	Name string `json:"name"`
}

// SaveHandler stores the match. An empty body or name picks a generated name.
func (s *Service) SaveHandler(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	name, err := s.sessions.Save(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SaveRequest{Name: name})
}

type SaveInfo struct {
	Name    string    `json:"name"`
	SavedAt time.Time `json:"savedAt"`
}

func (s *Service) ListSavesHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.sessions.ListSaves(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	saves := make([]SaveInfo, 0, len(recs))
	for _, rec := range recs {
		saves = append(saves, SaveInfo{Name: rec.Name, SavedAt: rec.SavedAt})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"saves": saves,
		"total": len(saves),
	})
}

func (s *Service) LoadSaveHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	id, snap, err := s.sessions.Load(r.Context(), name)
	if err != nil {
		writeError(w, fmt.Errorf("load %q: %w", name, err))
		return
	}
	writeJSON(w, http.StatusCreated, MatchResponse{ID: id, Snapshot: snap})
}

func (s *Service) DeleteSaveHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.DeleteSave(r.Context(), mux.Vars(r)["name"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) DeleteAllSavesHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.DeleteAllSaves(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
