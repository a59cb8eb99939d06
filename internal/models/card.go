// internal/models/card.go
package models

import (
	"strconv"

	"github.com/google/uuid"
)

// Suit identifies a card's suit; SPECIAL is reserved for Jokers.
type Suit string

const (
	SuitHearts   Suit = "HEARTS"
	SuitDiamonds Suit = "DIAMONDS"
	SuitClubs    Suit = "CLUBS"
	SuitSpades   Suit = "SPADES"
	SuitSpecial  Suit = "SPECIAL"
)

// StandardSuits are the four column suits, in a stable order.
var StandardSuits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// CardColor is red or black.
type CardColor string

const (
	ColorRed   CardColor = "red"
	ColorBlack CardColor = "black"
)

// CardType distinguishes the two Jokers from the 52 standard cards.
type CardType string

const (
	TypeStandard CardType = "STANDARD"
	TypeJoker    CardType = "JOKER"
)

// JackState tracks whether an installed Jack may attack this turn.
type JackState string

const (
	JackActive  JackState = "active"
	JackPassive JackState = "passive"
)

// ActivationSource records how a face card got installed.
type ActivationSource string

const (
	ActivatedBySacrifice ActivationSource = "SACRIFICE"
	ActivatedByJoker     ActivationSource = "JOKER"
)

// Rank values. Jokers carry no rank.
const (
	ValueAce   = 1
	ValueJack  = 11
	ValueQueen = 12
	ValueKing  = 13
	JokerValue = 0
)

// Card is a single card. Identity and rank are fixed once dealt; the
// trailing flags are transient board state.
type Card struct {
	ID    uuid.UUID `json:"id"`
	Suit  Suit      `json:"suit"`
	Value int       `json:"value"`
	Color CardColor `json:"color"`
	Type  CardType  `json:"type"`

	// HasDefended marks a 7 already spent blocking an attack.
	HasDefended bool      `json:"hasDefended,omitempty"`
	IsRedJoker  bool      `json:"isRedJoker,omitempty"`
	State       JackState `json:"state,omitempty"`

	ActivatedBy ActivationSource `json:"activatedBy,omitempty"`
}

// IsFace reports whether the card is a Jack, Queen or King.
func (c *Card) IsFace() bool {
	return c.Type == TypeStandard && c.Value >= ValueJack
}

// IsJoker reports whether the card is one of the two Jokers.
func (c *Card) IsJoker() bool {
	return c.Type == TypeJoker
}

// IsActivator reports whether the card can bind to a column: a 7 or a Joker.
func (c *Card) IsActivator() bool {
	return c.IsJoker() || (c.Type == TypeStandard && c.Value == 7)
}

// AttackDamage is the rank-derived damage: Ace 1, numerals face value,
// faces 10. Jokers deal no raw damage.
func (c *Card) AttackDamage() int {
	switch {
	case c.IsJoker():
		return 0
	case c.Value >= ValueJack:
		return 10
	default:
		return c.Value
	}
}

// ValueName renders the rank for logs and events.
func (c *Card) ValueName() string {
	switch {
	case c.IsJoker():
		return "Joker"
	case c.Value == ValueAce:
		return "A"
	case c.Value == ValueJack:
		return "J"
	case c.Value == ValueQueen:
		return "Q"
	case c.Value == ValueKing:
		return "K"
	default:
		return strconv.Itoa(c.Value)
	}
}
