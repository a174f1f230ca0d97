package battle

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koyak/kombat_backend/internal/fighter"
	"github.com/koyak/kombat_backend/internal/logging"
	"github.com/koyak/kombat_backend/internal/scoring"
	"github.com/koyak/kombat_backend/internal/topic"
)

// Slot identifies one of the two fighter positions in a match
type Slot int

const (
	SlotFighter1 Slot = iota
	SlotFighter2
)

// Other returns the opposing slot
func (s Slot) Other() Slot {
	if s == SlotFighter1 {
		return SlotFighter2
	}
	return SlotFighter1
}

func (s Slot) String() string {
	if s == SlotFighter1 {
		return "fighter1"
	}
	return "fighter2"
}

// Status values for a match session
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusFinished  Status = "finished"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned"
)

const startingHealth = 100

// Config holds the pacing knobs for a match. The timing waits exist so the
// frontend animations (text reveal, verdict popup, round card) have time to
// play out; setting any of them to zero collapses that wait entirely.
type Config struct {
	RevealDuration  time.Duration // roast text reveal before judging starts
	VerdictDuration time.Duration // verdict popup before the next turn
	TurnDelay       time.Duration // breather between consecutive turns
	RoundPause      time.Duration // round transition card
}

// DefaultConfig returns the standard match pacing
func DefaultConfig() Config {
	return Config{
		RevealDuration:  2500 * time.Millisecond,
		VerdictDuration: 1200 * time.Millisecond,
		TurnDelay:       500 * time.Millisecond,
		RoundPause:      1500 * time.Millisecond,
	}
}

// TurnRecord is one completed (or in-flight) roast in the match history.
// Damage and its derived fields are set exactly once, when the verdict for
// the turn resolves; until then Damage is nil.
type TurnRecord struct {
	Speaker   string    `json:"speaker"`
	Slot      Slot      `json:"slot"`
	Text      string    `json:"text"`
	Damage    *int      `json:"damage,omitempty"`
	SpeedTier SpeedTier `json:"speed_tier,omitempty"`
	Critical  bool      `json:"critical"`
	AudioURL  string    `json:"audio_url,omitempty"`
	Time      time.Time `json:"time"`
}

// Session holds all mutable state for a single match: health pools, round and
// turn counters, the append-only roast history, the shared exhausted-topic
// tracker and the set of connected spectator sockets. All access goes through
// the mutex; the engine is the only writer of match state, the server reads
// snapshots and manages clients.
type Session struct {
	MatchID  string           `json:"match_id"`
	Fighter1 *fighter.Fighter `json:"-"`
	Fighter2 *fighter.Fighter `json:"-"`
	Config   Config           `json:"-"`

	Clients map[*websocket.Conn]string `json:"-"`

	mu           sync.RWMutex
	status       Status
	health       [2]int
	round        int
	currentTurn  Slot
	startingSlot Slot
	history      []TurnRecord
	topics       *topic.Tracker
	winner       string
	createdAt    time.Time
}

// NewSession creates a match session in the waiting state with both fighters
// at full health.
func NewSession(id string, f1, f2 *fighter.Fighter, config Config) *Session {
	return &Session{
		MatchID:   id,
		Fighter1:  f1,
		Fighter2:  f2,
		Config:    config,
		Clients:   make(map[*websocket.Conn]string),
		status:    StatusWaiting,
		health:    [2]int{startingHealth, startingHealth},
		round:     0,
		history:   make([]TurnRecord, 0),
		topics:    topic.NewTracker(),
		createdAt: time.Now(),
	}
}

// FighterAt returns the fighter occupying a slot
func (s *Session) FighterAt(slot Slot) *fighter.Fighter {
	if slot == SlotFighter1 {
		return s.Fighter1
	}
	return s.Fighter2
}

// begin activates the match with the given starting slot
func (s *Session) begin(starter Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusActive
	s.startingSlot = starter
	s.currentTurn = starter
	s.round = 1
}

// AddClient registers a spectator WebSocket connection
func (s *Session) AddClient(conn *websocket.Conn, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Clients[conn] = clientID
	logging.LogWebSocketEvent("client_joined", s.MatchID, clientID, map[string]interface{}{
		"client_count": len(s.Clients),
	})
}

// RemoveClient drops a spectator connection and reports how many remain
func (s *Session) RemoveClient(conn *websocket.Conn) (clientID string, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clientID = s.Clients[conn]
	delete(s.Clients, conn)
	remaining = len(s.Clients)
	logging.LogWebSocketEvent("client_left", s.MatchID, clientID, map[string]interface{}{
		"client_count": remaining,
	})
	return clientID, remaining
}

// Broadcast sends a JSON message to every connected spectator. Writes are
// synchronous because a websocket connection allows only one writer at a
// time.
func (s *Session) Broadcast(message interface{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.Clients) == 0 {
		return
	}

	errorCount := 0
	for client := range s.Clients {
		if err := client.WriteJSON(message); err != nil {
			errorCount++
		}
	}
	if errorCount > 0 {
		logging.LogWebSocketEvent("broadcast_errors", s.MatchID, "", map[string]interface{}{
			"error_count":  errorCount,
			"client_count": len(s.Clients),
		})
	}
}

// Status returns the current session status
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// UpdateStatus transitions the session status
func (s *Session) UpdateStatus(newStatus Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != newStatus {
		logging.LogMatchEvent("status_changed", s.MatchID, map[string]interface{}{
			"from": string(s.status),
			"to":   string(newStatus),
		})
		s.status = newStatus
	}
}

// Health returns the current health of a slot
func (s *Session) Health(slot Slot) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health[slot]
}

// ApplyDamage subtracts damage from a slot's health, clamping at zero, and
// returns the new value.
func (s *Session) ApplyDamage(slot Slot, damage int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health[slot] -= damage
	if s.health[slot] < 0 {
		s.health[slot] = 0
	}
	return s.health[slot]
}

// Round returns the current round number (1-based)
func (s *Session) Round() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}

// AdvanceRound increments the round counter and returns the new round
func (s *Session) AdvanceRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round++
	return s.round
}

// CurrentTurn returns the slot whose turn it is
func (s *Session) CurrentTurn() Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTurn
}

// SetCurrentTurn hands the turn to a slot
func (s *Session) SetCurrentTurn(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTurn = slot
}

// StartingSlot returns the slot that opened the match
func (s *Session) StartingSlot() Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startingSlot
}

// AppendTurn records a delivered roast in the history and feeds its text into
// the exhausted-topic tracker. It returns the index of the new record so the
// verdict can be attached later.
func (s *Session) AppendTurn(speaker string, slot Slot, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, TurnRecord{
		Speaker: speaker,
		Slot:    slot,
		Text:    text,
		Time:    time.Now(),
	})
	s.topics.Observe(text)
	return len(s.history) - 1
}

// FinalizeTurn attaches the resolved verdict to a turn record. A turn's
// damage can only be set once; a second attempt is a bug in the caller.
func (s *Session) FinalizeTurn(index int, damage int, tier SpeedTier, critical bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.history) {
		return fmt.Errorf("turn index %d out of range (history has %d entries)", index, len(s.history))
	}
	if s.history[index].Damage != nil {
		return fmt.Errorf("turn %d already finalized with damage %d", index, *s.history[index].Damage)
	}
	s.history[index].Damage = &damage
	s.history[index].SpeedTier = tier
	s.history[index].Critical = critical
	return nil
}

// SetTurnAudio attaches a rendered audio URL to a turn record. Audio is a
// side channel: it may land before or after the verdict, and a turn without
// audio is still complete.
func (s *Session) SetTurnAudio(index int, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.history) {
		return fmt.Errorf("turn index %d out of range (history has %d entries)", index, len(s.history))
	}
	s.history[index].AudioURL = url
	return nil
}

// History returns a copy of the full turn history
func (s *Session) History() []TurnRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	historyCopy := make([]TurnRecord, len(s.history))
	copy(historyCopy, s.history)
	return historyCopy
}

// TurnCount returns the number of roasts delivered so far
func (s *Session) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// HistoryEntries returns the history in the speaker/text form the LLM
// prompts consume.
func (s *Session) HistoryEntries() []scoring.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]scoring.HistoryEntry, 0, len(s.history))
	for _, rec := range s.history {
		entries = append(entries, scoring.HistoryEntry{Speaker: rec.Speaker, Text: rec.Text})
	}
	return entries
}

// ExhaustedTopics returns the attack categories already used up in this match
func (s *Session) ExhaustedTopics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topics.Exhausted()
}

// Winner returns the winning fighter's name, or "" while the match runs
func (s *Session) Winner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.winner
}

// finish marks the match finished with a winner
func (s *Session) finish(winner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFinished
	s.winner = winner
}

// CheckStatusAndClients returns the status and spectator count in one lock
func (s *Session) CheckStatusAndClients() (Status, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, len(s.Clients)
}

// Snapshot is a point-in-time view of the session for the REST API
type Snapshot struct {
	MatchID         string         `json:"match_id"`
	Status          Status         `json:"status"`
	Fighter1        string         `json:"fighter1"`
	Fighter2        string         `json:"fighter2"`
	Round           int            `json:"round"`
	CurrentTurn     string         `json:"current_turn"`
	StartingFighter string         `json:"starting_fighter"`
	Health          map[string]int `json:"health"`
	History         []TurnRecord   `json:"history"`
	ExhaustedTopics []string       `json:"exhausted_topics"`
	Winner          string         `json:"winner,omitempty"`
}

// Snapshot captures the current session state for API responses
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	historyCopy := make([]TurnRecord, len(s.history))
	copy(historyCopy, s.history)
	return Snapshot{
		MatchID:         s.MatchID,
		Status:          s.status,
		Fighter1:        s.Fighter1.Name(),
		Fighter2:        s.Fighter2.Name(),
		Round:           s.round,
		CurrentTurn:     s.FighterAt(s.currentTurn).Name(),
		StartingFighter: s.FighterAt(s.startingSlot).Name(),
		Health: map[string]int{
			s.Fighter1.Name(): s.health[SlotFighter1],
			s.Fighter2.Name(): s.health[SlotFighter2],
		},
		History:         historyCopy,
		ExhaustedTopics: s.topics.Exhausted(),
		Winner:          s.winner,
	}
}
