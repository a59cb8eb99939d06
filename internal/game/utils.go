// internal/game/utils.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// payloadString extracts a string field from an action payload.
func payloadString(payload map[string]interface{}, key string) (string, bool) {
	s, ok := payload[key].(string)
	return s, ok
}

// payloadBool extracts a bool field from an action payload.
func payloadBool(payload map[string]interface{}, key string) (bool, bool) {
	b, ok := payload[key].(bool)
	return b, ok
}

// payloadInt extracts a numeric field; JSON numbers decode as float64.
func payloadInt(payload map[string]interface{}, key string) (int, bool) {
	f, ok := payload[key].(float64)
	return int(f), ok
}

// payloadCardID extracts and parses a card UUID from an action payload.
func payloadCardID(payload map[string]interface{}, key string) (uuid.UUID, bool) {
	s, ok := payload[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// payloadCardIDs extracts a list of card UUIDs from an action payload.
func payloadCardIDs(payload map[string]interface{}, key string) ([]uuid.UUID, bool) {
	raw, ok := payload[key].([]interface{})
	if !ok {
		return nil, false
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// payloadSuit extracts and validates a suit name from an action payload.
func payloadSuit(payload map[string]interface{}, key string) (models.Suit, bool) {
	s, ok := payload[key].(string)
	if !ok {
		return "", false
	}
	suit := models.Suit(s)
	for _, known := range models.StandardSuits {
		if suit == known {
			return suit, true
		}
	}
	return "", false
}

// firstHeld returns any one held card, preferring the hand, or nil.
func firstHeld(p *models.Player) *models.Card {
	if len(p.Hand) > 0 {
		return p.Hand[0]
	}
	if len(p.Reserve) > 0 {
		return p.Reserve[0]
	}
	return nil
}

// pickFaceCard returns the first face card in a selection, or nil.
func pickFaceCard(selection []*models.Card) *models.Card {
	for _, c := range selection {
		if c.IsFace() {
			return c
		}
	}
	return nil
}

// activationSource maps an install's activator to the recorded source: only
// Joker installs carry one.
func activationSource(activator *models.Card) models.ActivationSource {
	if activator != nil && activator.IsJoker() {
		return models.ActivatedByJoker
	}
	return ""
}

// pickActivator returns the first activator in a selection other than skip,
// or nil.
func pickActivator(selection []*models.Card, skip *models.Card) *models.Card {
	for _, c := range selection {
		if c != skip && c.IsActivator() {
			return c
		}
	}
	return nil
}
