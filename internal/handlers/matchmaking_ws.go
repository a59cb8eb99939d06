// internal/handlers/matchmaking_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/bastion/internal/game"
)

// MatchmakingWSHandler enters the client into the matchmaking pool and holds
// the connection open until a match is found, pushing matchmakingStatus
// events. The client then opens the game websocket with the issued token.
func MatchmakingWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"matchmaking"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("matchmaking WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("matchmaking authentication failed: %v", err)
			c.Close(websocket.StatusPolicyViolation, "Authentication failed.")
			return
		}

		ticket, err := gs.JoinQueue(r.Context(), userID)
		if err != nil {
			logger.Errorf("failed to enqueue user %s: %v", userID, err)
			c.Close(websocket.StatusInternalError, "Failed to join matchmaking queue.")
			return
		}
		logger.Infof("user %s joined matchmaking queue (ticket %s)", userID, ticket.ID)

		sendMatchStatus(c, ticket)

		select {
		case <-ticket.matched:
			sendMatchStatus(c, ticket)
			c.Close(websocket.StatusNormalClosure, "Matched.")
		case <-r.Context().Done():
			gs.LeaveQueue(ticket.ID)
			logger.Infof("user %s left matchmaking queue (ticket %s)", userID, ticket.ID)
		}
	}
}

// sendMatchStatus pushes the ticket state as a matchmakingStatus event.
func sendMatchStatus(c *websocket.Conn, ticket *MatchTicket) {
	ev := map[string]interface{}{
		"type":   string(game.EventMatchmakingStatus),
		"ticket": ticket.ID,
		"status": ticket.Status,
	}
	if ticket.Status == TicketMatched {
		ev["gameId"] = ticket.GameID
		ev["token"] = ticket.Token
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = c.Write(ctx, websocket.MessageText, data)
}
