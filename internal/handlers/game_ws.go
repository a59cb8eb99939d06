// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/bastion/internal/auth"
	"github.com/jason-s-yu/bastion/internal/game"
	"github.com/jason-s-yu/bastion/internal/models"
)

// GameMessage is the envelope for inbound WebSocket messages during a match.
// The action name goes in Type; everything else rides in Payload.
type GameMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// GameWSHandler upgrades the HTTP connection to WebSocket for a specific game
// instance. It authenticates the user (preferring a game-scoped token from
// the ?token= query parameter), seats or reconnects them, and then runs the
// read loop.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing game_id in path (/game/ws/{game_id})", http.StatusBadRequest)
			return
		}
		gameID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}

		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		if g.GameOver {
			http.Error(w, "Game has already ended", http.StatusGone)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			logger.Warnf("Client for game %s connected with invalid subprotocol: %s", gameID, c.Subprotocol())
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'game' subprotocol.")
			return
		}

		userID, err := authenticateGameClient(w, r, gameID)
		if err != nil {
			logger.Warnf("User authentication failed for game %s: %v", gameID, err)
			c.Close(websocket.StatusPolicyViolation, "Authentication failed.")
			return
		}
		logger.Infof("User %s authenticated for game %s", userID, gameID)

		// Seat the player, or refresh their connection if already seated.
		// AddPlayer refuses a third seat or a join after start.
		seat := gs.buildPlayer(r.Context(), userID)
		seat.Conn = c
		seat.Connected = true

		g.Mu.Lock()
		if g.BroadcastFn == nil {
			g.BroadcastFn = createBroadcastFunc(g, logger)
		}
		if g.BroadcastToPlayerFn == nil {
			g.BroadcastToPlayerFn = createBroadcastToPlayerFunc(g, logger)
		}
		seated := false
		for _, p := range g.Players {
			if p.ID == userID {
				seated = true
				break
			}
		}
		started := g.Started
		g.Mu.Unlock()

		if !seated && started {
			logger.Warnf("User %s is not a player in started game %s. Closing connection.", userID, gameID)
			c.Close(websocket.StatusPolicyViolation, "You are not a player in this game.")
			return
		}
		g.AddPlayer(seat)
		g.SendSyncState(userID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readGameMessages(ctx, c, g, userID, logger)

		logger.Infof("Player %s WebSocket read loop exited for game %s.", userID, gameID)
		g.HandleDisconnect(userID)
	}
}

// authenticateGameClient prefers a game-scoped token from ?token= and checks
// that its game claim matches the requested game; otherwise it falls back to
// the session cookie (creating a guest if need be).
func authenticateGameClient(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) (uuid.UUID, error) {
	if tokenStr := r.URL.Query().Get("token"); tokenStr != "" {
		userIDStr, gameIDStr, err := auth.AuthenticateGameJWT(tokenStr)
		if err != nil {
			return uuid.Nil, err
		}
		if gameIDStr != "" && gameIDStr != gameID.String() {
			return uuid.Nil, fmt.Errorf("token is scoped to a different game")
		}
		return uuid.Parse(userIDStr)
	}
	return EnsureEphemeralUser(w, r)
}

// createBroadcastFunc returns a function suitable for BastionGame.BroadcastFn.
// It is called while the game lock is held, so the websocket writes happen
// asynchronously after the connected-player list is captured.
func createBroadcastFunc(g *game.BastionGame, logger *logrus.Logger) func(ev game.GameEvent) {
	return func(ev game.GameEvent) {
		playersToSend := []*models.Player{}
		for _, p := range g.Players {
			if p.Connected && p.Conn != nil {
				playersToSend = append(playersToSend, p)
			}
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal broadcast event (%s) for game %s: %v", ev.Type, g.ID, err)
			return
		}

		go func(players []*models.Player, data []byte, gameID uuid.UUID) {
			for _, pl := range players {
				if pl.Conn != nil {
					ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
					err := pl.Conn.Write(ctx, websocket.MessageText, data)
					cancel()
					if err != nil {
						logger.Warnf("Failed to write broadcast message to player %s in game %s: %v", pl.ID, gameID, err)
					}
				}
			}
		}(playersToSend, msgBytes, g.ID)
	}
}

// createBroadcastToPlayerFunc returns a function suitable for
// BastionGame.BroadcastToPlayerFn. Also called while the game lock is held.
func createBroadcastToPlayerFunc(g *game.BastionGame, logger *logrus.Logger) func(targetPlayerID uuid.UUID, ev game.GameEvent) {
	return func(targetPlayerID uuid.UUID, ev game.GameEvent) {
		var targetConn *websocket.Conn
		for _, pl := range g.Players {
			if pl.ID == targetPlayerID {
				if pl.Connected && pl.Conn != nil {
					targetConn = pl.Conn
				}
				break
			}
		}
		if targetConn == nil {
			return
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal private event (%s) for player %s in game %s: %v", ev.Type, targetPlayerID, g.ID, err)
			return
		}
		go func(conn *websocket.Conn, data []byte, playerID uuid.UUID, gameID uuid.UUID) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write private message to player %s in game %s: %v", playerID, gameID, err)
			}
		}(targetConn, msgBytes, targetPlayerID, g.ID)
	}
}

// readGameMessages continuously reads client messages, acquires the game
// lock, and routes each action through HandlePlayerAction. It exits on error
// or context cancellation.
func readGameMessages(ctx context.Context, c *websocket.Conn, g *game.BastionGame, userID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for user %s in game %s.", userID, g.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for user %s in game %s.", userID, g.ID)
			} else {
				logger.Warnf("Error reading from WebSocket for user %s in game %s: %v (Status: %d)", userID, g.ID, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from user %s in game %s. Ignoring.", msgType, userID, g.ID)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON received from user %s in game %s: %v. Data: %s", userID, g.ID, err, string(data))
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}

		logger.Debugf("Received action '%s' from user %s in game %s.", msg.Type, userID, g.ID)

		if msg.Type == "ping" {
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})
			continue
		}

		g.Mu.Lock()
		g.HandlePlayerAction(userID, models.GameAction{
			ActionType: msg.Type,
			Payload:    msg.Payload,
		})
		g.Mu.Unlock()

		select {
		case <-ctx.Done():
			logger.Infof("Context canceled after processing message for user %s in game %s.", userID, g.ID)
			return
		default:
		}
	}
}

// sendWsMessage marshals a message and sends it to the WebSocket client with
// a write timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("Error: Attempted to send WebSocket message on nil connection.")
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			log.Printf("Error writing WebSocket message: %v (Status: %d)", err, status)
		}
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
