// internal/game/game.go
package game

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/cache"
	"github.com/jason-s-yu/bastion/internal/models"
)

// Phase is the turn state machine position.
type Phase string

const (
	PhaseSetup   Phase = "SETUP"
	PhaseDiscard Phase = "DISCARD"
	PhaseDraw    Phase = "DRAW"
	PhasePlay    Phase = "PLAY"
	PhaseEnd     Phase = "END"
)

// NegotiationKind discriminates the mutually-exclusive sub-states that
// suspend ordinary turn actions.
type NegotiationKind string

const (
	NegotiationAttack NegotiationKind = "attack"
	NegotiationQueen  NegotiationKind = "queenChallenge"
)

// Negotiation is the single slot for a pending sub-protocol. At most one may
// be active; its presence makes the TurnController reject every ordinary
// action until it resolves.
type Negotiation struct {
	Kind   NegotiationKind
	Attack *PendingAttack
	Queen  *QueenChallenge
}

// OnGameEndFunc receives the finished game's outcome.
type OnGameEndFunc func(gameID uuid.UUID, winnerID uuid.UUID, reason string)

// turnState tracks the per-turn obligations gating endTurn.
type turnState struct {
	DiscardResolved bool
	DrawDone        bool
	ActionDone      bool

	// ActedThisTurn flips on the first discard/draw/action and closes the
	// strategic shuffle window.
	ActedThisTurn bool
}

// BastionGame holds the entire authoritative state for a single match.
// All mutation happens under Mu; inbound player actions and timer expiries
// compete for the same lock, so whichever acquires it first wins and the
// loser is rejected as stale.
type BastionGame struct {
	ID      uuid.UUID
	Players []*models.Player // exactly 2 once the match starts

	Deck    []*models.Card
	Columns map[uuid.UUID]map[models.Suit]*Column

	CurrentPlayerIndex int
	Turn               int
	Phase              Phase
	StartAt            time.Time

	Negotiation *Negotiation

	Started  bool
	GameOver bool

	turn turnState

	SetupDuration time.Duration
	TurnDuration  time.Duration

	Mu sync.Mutex

	// BroadcastFn sends an event to both players. Nil disables broadcasting.
	BroadcastFn func(ev GameEvent)
	// BroadcastToPlayerFn sends an event to a single player.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	// OnGameEnd is invoked once when the match finalizes.
	OnGameEnd OnGameEndFunc

	timerGen    int
	setupTimer  *time.Timer
	turnTimer   *time.Timer
	tickerStop  chan struct{}
	actionIndex int
	lastSeen    map[uuid.UUID]time.Time
}

// NewBastionGame builds an empty match with a freshly shuffled shared deck.
// Timer durations come from SETUP_TIMER_SEC and TURN_TIMER_SEC when set.
func NewBastionGame() *BastionGame {
	id, _ := uuid.NewRandom()
	g := &BastionGame{
		ID:            id,
		Deck:          NewDeck(),
		Columns:       make(map[uuid.UUID]map[models.Suit]*Column),
		Phase:         PhaseSetup,
		Turn:          0,
		SetupDuration: envDuration("SETUP_TIMER_SEC", 40*time.Second),
		TurnDuration:  envDuration("TURN_TIMER_SEC", 30*time.Second),
		lastSeen:      make(map[uuid.UUID]time.Time),
	}
	ShuffleDeck(g.Deck)
	return g
}

// envDuration reads a whole-seconds env var, falling back on the default.
func envDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	secs, err := strconv.Atoi(s)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

// AddPlayer registers a player (or refreshes their connection on rejoin),
// dealing the initial hand and creating their four columns on first join.
func (g *BastionGame) AddPlayer(p *models.Player) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for i, pl := range g.Players {
		if pl.ID == p.ID {
			g.Players[i].Conn = p.Conn
			g.Players[i].Connected = true
			g.lastSeen[p.ID] = time.Now()
			g.logAction(p.ID, "player_rejoin", nil)
			return
		}
	}
	if g.Started || len(g.Players) >= 2 {
		log.Printf("game %s: cannot add player %s after start", g.ID, p.ID)
		return
	}
	p.Health = models.InitialHealth
	p.MaxHealth = models.InitialHealth
	p.Hand = []*models.Card{}
	p.Reserve = []*models.Card{}
	p.Discard = []*models.Card{}
	for i := 0; i < models.MaxHandSize+models.MaxReserveSize; i++ {
		c := g.drawFromDeck()
		if c == nil {
			break
		}
		p.Hand = append(p.Hand, c)
	}
	cols := make(map[models.Suit]*Column, len(models.StandardSuits))
	for _, suit := range models.StandardSuits {
		cols[suit] = NewColumn(suit)
	}
	g.Columns[p.ID] = cols
	g.Players = append(g.Players, p)
	g.lastSeen[p.ID] = time.Now()
	g.logAction(p.ID, "player_join", nil)

	if len(g.Players) == 2 {
		g.startSetupTimer()
	}
}

// drawFromDeck pops the top shared-deck card, or nil when empty.
// Assumes lock is held.
func (g *BastionGame) drawFromDeck() *models.Card {
	if len(g.Deck) == 0 {
		return nil
	}
	c := g.Deck[0]
	g.Deck = g.Deck[1:]
	return c
}

// currentPlayer returns the acting player. Assumes lock is held.
func (g *BastionGame) currentPlayer() *models.Player {
	if len(g.Players) == 0 || g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

// opponentOf returns the other player. Assumes lock is held.
func (g *BastionGame) opponentOf(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID != playerID {
			return p
		}
	}
	return nil
}

// getPlayerByID finds a player by ID. Assumes lock is held.
func (g *BastionGame) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// columnsOf returns a player's column set. Assumes lock is held.
func (g *BastionGame) columnsOf(playerID uuid.UUID) map[models.Suit]*Column {
	return g.Columns[playerID]
}

// fireEvent broadcasts to both players. Assumes lock is held.
func (g *BastionGame) fireEvent(ev GameEvent) {
	ev.GameID = g.ID
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends to one player. Assumes lock is held.
func (g *BastionGame) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	ev.GameID = g.ID
	if g.BroadcastToPlayerFn != nil {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// reject refuses an illegal action: no mutation, a private notice to the
// issuing player only.
func (g *BastionGame) reject(playerID uuid.UUID, msg string) {
	g.fireEventToPlayer(playerID, GameEvent{Type: EventActionRejected, Message: msg})
}

// broadcastState sends each player their relative snapshot. Assumes lock is
// held.
func (g *BastionGame) broadcastState() {
	for _, p := range g.Players {
		if !p.Connected {
			continue
		}
		state := g.relativeStateFor(p.ID)
		g.fireEventToPlayer(p.ID, GameEvent{Type: EventGameState, State: &state})
	}
}

// SendSyncState pushes the relative snapshot to one player, e.g. on
// reconnect.
func (g *BastionGame) SendSyncState(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	state := g.relativeStateFor(playerID)
	g.fireEventToPlayer(playerID, GameEvent{Type: EventGameState, State: &state})
}

// HandlePlayerAction is the single entry point for every inbound action.
// The caller (WS read loop or timer callback) holds the lock; actions are
// therefore serialized in arrival order per game.
func (g *BastionGame) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) {
	if g.GameOver {
		return
	}
	player := g.getPlayerByID(playerID)
	if player == nil {
		return
	}
	g.lastSeen[playerID] = time.Now()
	g.logAction(playerID, action.ActionType, action.Payload)

	// Actions legal regardless of phase or turn.
	switch action.ActionType {
	case "updateProfile":
		g.handleUpdateProfile(player, action.Payload)
		return
	case "surrender":
		g.handleSurrender(player)
		return
	}

	// Setup-phase actions are not turn-gated: both players act in parallel.
	if g.Phase == PhaseSetup {
		switch action.ActionType {
		case "moveToReserve":
			g.handleMoveToReserve(player, action.Payload)
		case "startGame":
			g.handleStartGame(player)
		case "abortGame":
			g.handleAbortGame(player)
		default:
			g.reject(playerID, "game has not started yet")
		}
		return
	}

	// A pending negotiation suspends every ordinary action; only the
	// defender's response can resolve it.
	if g.Negotiation != nil {
		switch action.ActionType {
		case "blockResponse":
			g.handleBlockResponse(player, action.Payload)
		case "queenChallengeResponse":
			g.handleQueenChallengeResponse(player, action.Payload)
		default:
			g.reject(playerID, "a negotiation is pending; resolve it first")
		}
		return
	}
	if action.ActionType == "blockResponse" || action.ActionType == "queenChallengeResponse" {
		// Response raced a timeout that already resolved the negotiation.
		g.reject(playerID, "no negotiation is pending")
		return
	}

	cur := g.currentPlayer()
	if cur == nil || cur.ID != playerID {
		g.reject(playerID, "it's not your turn")
		return
	}

	switch action.ActionType {
	case "discardCard":
		g.handleDiscardCard(player, action.Payload)
	case "strategicShuffle":
		g.handleStrategicShuffle(player)
	case "drawCard":
		g.handleDrawCard(player)
	case "moveToReserve":
		g.handleMoveToReserve(player, action.Payload)
	case "exchangeCards":
		g.handleExchangeCards(player, action.Payload)
	case "recycleDiscardPile":
		g.handleRecycleDiscardPile(player)
	case "skipAction":
		g.handleSkipAction(player)
	case "placeCard":
		g.handlePlaceCard(player, action.Payload)
	case "sacrificeSpecialCard":
		g.handleSacrifice(player, action.Payload)
	case "attack":
		g.handleAttack(player, action.Payload)
	case "jokerAction":
		g.handleJokerAction(player, action.Payload)
	case "jokerExchange":
		g.handleJokerExchange(player, action.Payload)
	case "activatorExchange":
		g.handleActivatorExchange(player, action.Payload)
	case "queenChallenge":
		g.handleQueenChallenge(player, action.Payload)
	case "endTurn":
		g.handleEndTurn(player)
	default:
		g.reject(playerID, "unknown action type")
	}
}

// HandleDisconnect marks the player disconnected. The match keeps running;
// their timers will force defaults until they return or lose.
func (g *BastionGame) HandleDisconnect(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, p := range g.Players {
		if p.ID == playerID {
			p.Connected = false
			p.Conn = nil
			g.logAction(playerID, "player_disconnect", nil)
			return
		}
	}
}

// logAction ships the action record to the analytics queue.
// Assumes lock is held.
func (g *BastionGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.MatchActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.MatchActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishMatchAction(ctx, rec); err != nil {
			log.Printf("game %s: action log publish failed: %v", g.ID, err)
		}
	}(record)
}
