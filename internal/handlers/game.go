// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/auth"
)

// createGameToken mints a token scoped to one game for websocket auth.
func createGameToken(userID, gameID uuid.UUID) (string, error) {
	return auth.CreateGameJWT(userID.String(), gameID.String())
}

// CreateGameHandler creates a new game with the requesting user seated,
// returning the game ID and a game-scoped token. The opponent joins through
// matchmaking or by connecting to the same game's websocket.
func (gs *GameServer) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	g := gs.NewBastionGameWithPlayers(r.Context(), userID)
	token, err := createGameToken(userID, g.ID)
	if err != nil {
		http.Error(w, "failed to create game token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"gameId": g.ID,
		"token":  token,
	})
}

// GameStateHandler returns the requesting player's relative snapshot of a
// game: GET /game/state/{game_id}.
func (gs *GameServer) GameStateHandler(w http.ResponseWriter, r *http.Request) {
	gameIDStr := strings.TrimPrefix(r.URL.Path, "/game/state/")
	gameID, err := uuid.Parse(gameIDStr)
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	g, ok := gs.GameStore.GetGame(gameID)
	if !ok {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	snapshot := g.GetSnapshot(userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// MatchStatusHandler reports a matchmaking ticket's progress:
// GET /matchmaking/status/{ticket}.
func (gs *GameServer) MatchStatusHandler(w http.ResponseWriter, r *http.Request) {
	ticketStr := strings.TrimPrefix(r.URL.Path, "/matchmaking/status/")
	ticketID, err := uuid.Parse(ticketStr)
	if err != nil {
		http.Error(w, "invalid ticket id", http.StatusBadRequest)
		return
	}
	ticket, ok := gs.GetTicket(ticketID)
	if !ok {
		http.Error(w, "ticket not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ticket)
}
