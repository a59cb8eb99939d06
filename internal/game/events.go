// internal/game/events.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// GameEventType names every outbound event the engine can emit.
type GameEventType string

const (
	EventGameState         GameEventType = "gameState"
	EventAttackResult      GameEventType = "attackResult"
	EventGameOver          GameEventType = "gameOver"
	EventStartSetupTimer   GameEventType = "startSetupTimer"
	EventTurnTimer         GameEventType = "turnTimer"
	EventTurnChanged       GameEventType = "turnChanged"
	EventAttackEvent       GameEventType = "attackEvent"
	EventBlockRequest      GameEventType = "blockRequest"
	EventQueenChallenge    GameEventType = "queenChallengeRequest"
	EventMatchmakingStatus GameEventType = "matchmakingStatus"

	// EventActionRejected is a private, non-fatal notice sent only to the
	// player whose action was refused. It never mutates state.
	EventActionRejected GameEventType = "actionRejected"
)

// EventCard carries card details inside an event payload.
type EventCard struct {
	ID    uuid.UUID   `json:"id"`
	Suit  models.Suit `json:"suit,omitempty"`
	Value int         `json:"value,omitempty"`
	Name  string      `json:"name,omitempty"`
}

// eventCard builds an EventCard with full details.
func eventCard(c *models.Card) *EventCard {
	if c == nil {
		return nil
	}
	return &EventCard{ID: c.ID, Suit: c.Suit, Value: c.Value, Name: c.ValueName()}
}

// GameEvent is the single broadcast envelope. Fields are pointers so unused
// ones are omitted from the wire form.
type GameEvent struct {
	Type GameEventType `json:"type"`

	GameID   uuid.UUID  `json:"gameId,omitempty"`
	PlayerID uuid.UUID  `json:"playerId,omitempty"`
	Card     *EventCard `json:"card,omitempty"`

	// Attack negotiation fields.
	AttackCard    *EventCard    `json:"attackCard,omitempty"`
	AttackTarget  *AttackTarget `json:"attackTarget,omitempty"`
	IsBlocked     *bool         `json:"isBlocked,omitempty"`
	BlockingCards []*EventCard  `json:"blockingCards,omitempty"`

	// Timer fields.
	TimerType          string `json:"timerType,omitempty"`
	SetupTimeRemaining int    `json:"setupTimeRemaining,omitempty"`
	RemainingSeconds   int    `json:"remainingSeconds,omitempty"`
	IsPlayerTurn       *bool  `json:"isPlayerTurn,omitempty"`
	CurrentPlayerID    string `json:"currentPlayerId,omitempty"`

	// Turn change fields.
	PreviousPlayerID string `json:"previousPlayerId,omitempty"`
	TurnNumber       int    `json:"turnNumber,omitempty"`

	Message string                 `json:"message,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`

	// State carries the full relative snapshot for gameState events.
	State *PlayerGameState `json:"state,omitempty"`
}
