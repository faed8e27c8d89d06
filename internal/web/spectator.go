package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/hotseatchess/internal/chess"
)

// MatchIndex represents a match available for spectating
type MatchIndex struct {
	MatchID        string              `json:"matchId"`
	Status         chess.GameStatus    `json:"status"`
	Turn           chess.Color         `json:"turn"`
	MoveCount      int                 `json:"moveCount"`
	CreatedAt      time.Time           `json:"createdAt"`
	SpectatorCount int                 `json:"spectatorCount"`
	MaterialCount  chess.MaterialCount `json:"materialCount"`
}

func finished(status chess.GameStatus) bool {
	switch status {
	case chess.StatusDraw, chess.StatusWhiteWon, chess.StatusBlackWon:
		return true
	}
	return false
}

// GetActiveMatchesHandler lists the matches still in progress.
func (s *Service) GetActiveMatchesHandler(w http.ResponseWriter, r *http.Request) {
	matches := []MatchIndex{}
	for _, m := range s.sessions.List() {
		if finished(m.Status) {
			continue
		}
		matches = append(matches, MatchIndex{
			MatchID:        m.ID,
			Status:         m.Status,
			Turn:           m.Turn,
			MoveCount:      m.Moves,
			CreatedAt:      m.CreatedAt,
			SpectatorCount: s.hub.SpectatorCount(m.ID),
			MaterialCount:  m.Material,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"total":   len(matches),
	})
}

// GetSpectatorMatchHandler returns match data for spectators
func (s *Service) GetSpectatorMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	snap, err := s.sessions.Snapshot(matchID)
	if err != nil {
		log.Debug().Err(err).Str("matchID", matchID).Msg("Failed to fetch match for spectator")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"match":          snap,
		"materialCount":  snap.Material,
		"balance":        snap.Material.White - snap.Material.Black,
		"spectatorCount": s.hub.SpectatorCount(matchID),
		"clock": ClockResponse{
			White: chess.FormatClock(time.Duration(snap.WhiteClock) * time.Second),
			Black: chess.FormatClock(time.Duration(snap.BlackClock) * time.Second),
			Turn:  snap.Turn.String(),
		},
	})
}
