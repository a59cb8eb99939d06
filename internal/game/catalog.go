// internal/game/catalog.go
package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// NewDeck builds the full Bastion deck: 52 standard cards plus two Jokers.
// The deck is returned unshuffled; callers shuffle via ShuffleDeck.
func NewDeck() []*models.Card {
	deck := make([]*models.Card, 0, 54)
	for _, suit := range models.StandardSuits {
		color := models.ColorBlack
		if suit == models.SuitHearts || suit == models.SuitDiamonds {
			color = models.ColorRed
		}
		for value := models.ValueAce; value <= models.ValueKing; value++ {
			id, _ := uuid.NewRandom()
			deck = append(deck, &models.Card{
				ID:    id,
				Suit:  suit,
				Value: value,
				Color: color,
				Type:  models.TypeStandard,
			})
		}
	}
	for _, red := range []bool{true, false} {
		id, _ := uuid.NewRandom()
		color := models.ColorBlack
		if red {
			color = models.ColorRed
		}
		deck = append(deck, &models.Card{
			ID:         id,
			Suit:       models.SuitSpecial,
			Value:      models.JokerValue,
			Color:      color,
			Type:       models.TypeJoker,
			IsRedJoker: red,
		})
	}
	return deck
}

// ShuffleDeck shuffles cards in place with a time-seeded source.
func ShuffleDeck(cards []*models.Card) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
