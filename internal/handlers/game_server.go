// internal/handlers/game_server.go
package handlers

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/database"
	"github.com/jason-s-yu/bastion/internal/game"
	"github.com/jason-s-yu/bastion/internal/models"
)

// Ticket statuses reported over /matchmaking/status and the matchmaking
// websocket.
const (
	TicketWaiting = "waiting"
	TicketMatched = "matched"
)

// MatchTicket tracks one user waiting in the matchmaking pool. Once matched
// it carries the game and a game-scoped token.
type MatchTicket struct {
	ID     uuid.UUID `json:"ticket"`
	UserID uuid.UUID `json:"-"`
	Status string    `json:"status"`
	GameID uuid.UUID `json:"gameId,omitempty"`
	Token  string    `json:"token,omitempty"`

	// matched is closed when the ticket resolves.
	matched chan struct{}
}

// GameServer holds the live games plus the process-wide matchmaking pool,
// the only mutable state shared across games.
type GameServer struct {
	Mutex     sync.Mutex
	GameStore *game.GameStore

	waiting *MatchTicket
	tickets map[uuid.UUID]*MatchTicket
}

func NewGameServer() *GameServer {
	return &GameServer{
		GameStore: game.NewGameStore(),
		tickets:   make(map[uuid.UUID]*MatchTicket),
	}
}

// NewBastionGameWithPlayers creates an in-memory game and seats the given
// users, loading their display names from the database.
func (gs *GameServer) NewBastionGameWithPlayers(ctx context.Context, userIDs ...uuid.UUID) *game.BastionGame {
	g := game.NewBastionGame()
	g.OnGameEnd = gs.onGameEnd(g)
	gs.GameStore.AddGame(g)
	for _, uid := range userIDs {
		g.AddPlayer(gs.buildPlayer(ctx, uid))
	}
	if database.DB != nil {
		go database.UpsertInitialGameState(g.ID, g.FullSnapshot())
	}
	return g
}

// buildPlayer loads the user row and wraps it as a seated player. A missing
// row still yields a playable guest seat.
func (gs *GameServer) buildPlayer(ctx context.Context, userID uuid.UUID) *models.Player {
	p := &models.Player{
		ID:        userID,
		Name:      "Guest",
		Connected: false,
		Hand:      []*models.Card{},
	}
	if database.DB == nil {
		return p
	}
	u, err := database.GetUserByID(ctx, userID)
	if err != nil {
		log.Warnf("could not load user %s for seating: %v", userID, err)
		return p
	}
	p.Name = u.Username
	p.User = u
	return p
}

// onGameEnd persists the outcome and retires the game from the store.
func (gs *GameServer) onGameEnd(g *game.BastionGame) game.OnGameEndFunc {
	return func(gameID, winnerID uuid.UUID, reason string) {
		ctx := context.Background()
		if database.DB != nil {
			g.Mu.Lock()
			players := g.Players
			g.Mu.Unlock()
			if err := database.RecordMatchResult(ctx, gameID, players, winnerID, reason); err != nil {
				log.Errorf("failed to record match result for game %s: %v", gameID, err)
			}
			if err := database.StoreFinalGameStateInDB(ctx, gameID, g.FullSnapshot()); err != nil {
				log.Errorf("failed to store final state for game %s: %v", gameID, err)
			}
		}
		gs.GameStore.DeleteGame(gameID)
		log.Infof("game %s retired (winner %s, reason %s)", gameID, winnerID, reason)
	}
}

// JoinQueue enters the user into the matchmaking pool. If someone is already
// waiting, the pair is seated into a fresh game and both tickets resolve.
func (gs *GameServer) JoinQueue(ctx context.Context, userID uuid.UUID) (*MatchTicket, error) {
	gs.Mutex.Lock()
	defer gs.Mutex.Unlock()

	ticket := &MatchTicket{
		ID:      uuid.New(),
		UserID:  userID,
		Status:  TicketWaiting,
		matched: make(chan struct{}),
	}
	gs.tickets[ticket.ID] = ticket

	if gs.waiting == nil || gs.waiting.UserID == userID {
		gs.waiting = ticket
		return ticket, nil
	}

	opponent := gs.waiting
	gs.waiting = nil
	g := gs.NewBastionGameWithPlayers(ctx, opponent.UserID, ticket.UserID)

	for _, t := range []*MatchTicket{opponent, ticket} {
		token, err := createGameToken(t.UserID, g.ID)
		if err != nil {
			log.Errorf("failed to mint game token for %s: %v", t.UserID, err)
			continue
		}
		t.Status = TicketMatched
		t.GameID = g.ID
		t.Token = token
		close(t.matched)
	}
	log.Infof("matched %s vs %s into game %s", opponent.UserID, ticket.UserID, g.ID)
	return ticket, nil
}

// GetTicket looks up a matchmaking ticket by ID.
func (gs *GameServer) GetTicket(id uuid.UUID) (*MatchTicket, bool) {
	gs.Mutex.Lock()
	defer gs.Mutex.Unlock()
	t, ok := gs.tickets[id]
	return t, ok
}

// LeaveQueue abandons a waiting ticket.
func (gs *GameServer) LeaveQueue(id uuid.UUID) {
	gs.Mutex.Lock()
	defer gs.Mutex.Unlock()
	if gs.waiting != nil && gs.waiting.ID == id {
		gs.waiting = nil
	}
	delete(gs.tickets, id)
}
