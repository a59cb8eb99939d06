package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Zone caps enforced at the end of any player-visible state.
const (
	MaxHandSize    = 5
	MaxReserveSize = 2
	MaxHeldCards   = 7 // hand + reserve
)

// InitialHealth is each player's starting (and default max) health.
const InitialHealth = 20

// Profile holds the cosmetic fields a player may update mid-game.
type Profile struct {
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Player is one side of a Bastion match.
type Player struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Health    int             `json:"health"`
	MaxHealth int             `json:"maxHealth"`
	Hand      []*Card         `json:"hand"`
	Reserve   []*Card         `json:"reserve"`
	Discard   []*Card         `json:"discardPile"`
	Profile   Profile         `json:"profile"`
	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`

	// HasUsedStrategicShuffle is the per-game one-shot flag.
	HasUsedStrategicShuffle bool `json:"hasUsedStrategicShuffle"`

	User *User `json:"-"`
}

// HeldCount returns hand + reserve size.
func (p *Player) HeldCount() int {
	return len(p.Hand) + len(p.Reserve)
}

// OverHeldLimit reports whether the player must discard before acting further.
func (p *Player) OverHeldLimit() bool {
	return p.HeldCount() > MaxHeldCards
}

// RemoveFromHand removes the card with the given ID from the hand and returns
// it, or nil if absent.
func (p *Player) RemoveFromHand(cardID uuid.UUID) *Card {
	for i, c := range p.Hand {
		if c.ID == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c
		}
	}
	return nil
}

// RemoveFromReserve removes the card with the given ID from the reserve and
// returns it, or nil if absent.
func (p *Player) RemoveFromReserve(cardID uuid.UUID) *Card {
	for i, c := range p.Reserve {
		if c.ID == cardID {
			p.Reserve = append(p.Reserve[:i], p.Reserve[i+1:]...)
			return c
		}
	}
	return nil
}

// RemoveHeld removes the card from hand or reserve, whichever holds it.
func (p *Player) RemoveHeld(cardID uuid.UUID) *Card {
	if c := p.RemoveFromHand(cardID); c != nil {
		return c
	}
	return p.RemoveFromReserve(cardID)
}

// FindHeld returns the held card with the given ID without removing it.
func (p *Player) FindHeld(cardID uuid.UUID) *Card {
	for _, c := range p.Hand {
		if c.ID == cardID {
			return c
		}
	}
	for _, c := range p.Reserve {
		if c.ID == cardID {
			return c
		}
	}
	return nil
}

// Heal raises health; heals may push health above the initial maximum.
func (p *Player) Heal(amount int) {
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.MaxHealth = p.Health
	}
}
