package battle

import "github.com/koyak/kombat_backend/internal/scoring"

// EventType identifies a match lifecycle event
type EventType string

const (
	EventMatchStarted EventType = "match_started"
	EventTurnStarted  EventType = "turn_started"
	EventRoast        EventType = "roast"
	EventVerdict      EventType = "verdict"
	EventHealthUpdate EventType = "health_update"
	EventRoundStarted EventType = "round_started"
	EventMatchEnded   EventType = "match_ended"
	EventMatchFailed  EventType = "match_failed"
)

// Event is what the engine emits as a match progresses. The server turns
// these into websocket broadcasts and persistence writes; the engine itself
// knows nothing about either.
type Event struct {
	Type      EventType           `json:"type"`
	MatchID   string              `json:"match_id"`
	Fighter   string              `json:"fighter,omitempty"`
	Opponent  string              `json:"opponent,omitempty"`
	Text      string              `json:"text,omitempty"`
	TurnIndex int                 `json:"turn_index"`
	Round     int                 `json:"round"`
	Score     *scoring.RoastScore `json:"score,omitempty"`
	Damage    int                 `json:"damage"`
	SpeedTier SpeedTier           `json:"speed_tier,omitempty"`
	Health    map[string]int      `json:"health,omitempty"`
	Winner    string              `json:"winner,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Sink receives engine events. A nil sink is allowed and drops everything.
type Sink func(Event)
