package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/koyak/kombat_backend/internal/battle"
	"github.com/koyak/kombat_backend/internal/database"
	"github.com/koyak/kombat_backend/internal/fighter"
	"github.com/koyak/kombat_backend/internal/logging"
	"github.com/koyak/kombat_backend/internal/postmatch"
	"github.com/koyak/kombat_backend/internal/scoring"
)

type matchEntry struct {
	session *battle.Session
	cancel  context.CancelFunc
	started bool
}

// MatchManager owns the lifecycle of every match: creation, the battle loop
// goroutine, persistence, broadcasting and cleanup.
type MatchManager struct {
	db       *database.Database
	server   *Server
	scorer   *scoring.Scorer
	pipeline *postmatch.Pipeline
	apiKey   string
	timeout  time.Duration

	mu      sync.RWMutex
	matches map[string]*matchEntry
}

// NewMatchManager creates the manager and marks any matches left active by a
// previous process as abandoned.
func NewMatchManager(db *database.Database, apiKey, judgeModel string, srv *Server, pipeline *postmatch.Pipeline, timeout time.Duration) (*MatchManager, error) {
	scorer, err := scoring.NewScorer(apiKey, judgeModel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize judge: %v", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}

	manager := &MatchManager{
		db:       db,
		server:   srv,
		scorer:   scorer,
		pipeline: pipeline,
		apiKey:   apiKey,
		timeout:  timeout,
		matches:  make(map[string]*matchEntry),
	}

	if db != nil {
		stale, err := db.MarkStaleActiveMatches()
		if err != nil {
			logging.Warn("Failed to mark stale matches", map[string]interface{}{"error": err.Error()})
		} else if stale > 0 {
			logging.Info("Marked stale matches as abandoned", map[string]interface{}{"count": stale})
		}
	}

	return manager, nil
}

// CreateMatch builds both fighters and registers a new waiting session
func (m *MatchManager) CreateMatch(config1, config2 fighter.Config) (string, *battle.Session, error) {
	matchID := uuid.New().String()

	fighter1, err := fighter.New(m.apiKey, config1)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create fighter %q: %v", config1.Name, err)
	}
	fighter2, err := fighter.New(m.apiKey, config2)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create fighter %q: %v", config2.Name, err)
	}

	session := battle.NewSession(matchID, fighter1, fighter2, battle.DefaultConfig())

	if m.db != nil {
		if err := m.db.CreateMatch(matchID, fighter1.Name(), fighter2.Name()); err != nil {
			return "", nil, err
		}
	}

	m.mu.Lock()
	m.matches[matchID] = &matchEntry{session: session}
	m.mu.Unlock()

	logging.LogMatchEvent("match_created", matchID, map[string]interface{}{
		"fighter1": fighter1.Name(),
		"fighter2": fighter2.Name(),
	})
	return matchID, session, nil
}

// GetSession retrieves a live session by match ID
func (m *MatchManager) GetSession(matchID string) (*battle.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.matches[matchID]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

// StartMatchLoop launches the battle loop goroutine for a session. Calling
// it again for a running match is a no-op.
func (m *MatchManager) StartMatchLoop(session *battle.Session) {
	m.mu.Lock()
	entry, ok := m.matches[session.MatchID]
	if !ok || entry.started {
		m.mu.Unlock()
		return
	}
	entry.started = true
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	entry.cancel = cancel
	m.mu.Unlock()

	engine := battle.NewEngine(session, session.Fighter1, session.Fighter2, m.scorer, m.eventSink(session))

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Panic in battle loop", map[string]interface{}{
					"match_id": session.MatchID,
					"panic":    fmt.Sprintf("%v", r),
				})
				session.UpdateStatus(battle.StatusFailed)
				session.Broadcast(gin.H{
					"type":    "error",
					"message": "Internal error occurred. The match has ended.",
				})
			}
			m.persistMatchState(session)
		}()

		if err := engine.Run(ctx); err != nil {
			logging.LogMatchEvent("match_loop_ended_with_error", session.MatchID, map[string]interface{}{
				"error":  err.Error(),
				"status": string(session.Status()),
			})
			return
		}
		logging.LogMatchEvent("match_loop_completed", session.MatchID, map[string]interface{}{
			"winner": session.Winner(),
		})
	}()
}

// eventSink turns engine events into websocket broadcasts, TTS jobs and
// database writes. It runs on the engine goroutine.
func (m *MatchManager) eventSink(session *battle.Session) battle.Sink {
	return func(ev battle.Event) {
		switch ev.Type {
		case battle.EventMatchStarted:
			session.Broadcast(gin.H{
				"type":    "system",
				"message": fmt.Sprintf("FIGHT! %s vs %s", session.Fighter1.Name(), session.Fighter2.Name()),
				"starter": ev.Fighter,
				"round":   ev.Round,
				"health":  ev.Health,
			})
			m.persistMatchState(session)

		case battle.EventTurnStarted:
			session.Broadcast(gin.H{
				"type":       "turn_started",
				"fighter":    ev.Fighter,
				"round":      ev.Round,
				"turn_index": ev.TurnIndex,
			})

		case battle.EventRoast:
			session.Broadcast(gin.H{
				"type":       "roast",
				"fighter":    ev.Fighter,
				"content":    ev.Text,
				"round":      ev.Round,
				"turn_index": ev.TurnIndex,
				"speed_tier": string(ev.SpeedTier),
			})
			// audio plays alongside the verdict; never blocks the loop
			go m.generateTurnAudio(session, ev.Fighter, ev.Text, ev.TurnIndex)

		case battle.EventVerdict:
			msg := gin.H{
				"type":       "verdict",
				"fighter":    ev.Fighter,
				"damage":     ev.Damage,
				"round":      ev.Round,
				"turn_index": ev.TurnIndex,
				"speed_tier": string(ev.SpeedTier),
			}
			if ev.Score != nil {
				msg["critical"] = ev.Score.IsCritical
				msg["repetition"] = ev.Score.IsRepetition
				msg["scores"] = gin.H{
					"specificity": ev.Score.Specificity,
					"creativity":  ev.Score.Creativity,
					"accuracy":    ev.Score.Accuracy,
					"reasoning":   ev.Score.Reasoning,
				}
			}
			session.Broadcast(msg)
			m.persistTurn(session, ev)

			if ev.Score != nil && ev.Score.IsCritical && m.pipeline != nil {
				prompt := fmt.Sprintf("%s lands a devastating critical hit on %s in a packed neon arena, crowd going wild", ev.Fighter, ev.Opponent)
				m.pipeline.QueueArenaVideo(session.MatchID, prompt)
			}

		case battle.EventHealthUpdate:
			session.Broadcast(gin.H{
				"type":   "health",
				"health": ev.Health,
			})
			m.persistMatchState(session)

		case battle.EventRoundStarted:
			session.Broadcast(gin.H{
				"type":  "round",
				"round": ev.Round,
			})

		case battle.EventMatchEnded:
			session.Broadcast(gin.H{
				"type":    "game_over",
				"winner":  ev.Winner,
				"health":  ev.Health,
				"message": fmt.Sprintf("K.O.! %s wins the match!", ev.Winner),
			})

		case battle.EventMatchFailed:
			session.Broadcast(gin.H{
				"type":    "error",
				"message": "The match could not continue and has ended.",
			})
		}
	}
}

// generateTurnAudio renders TTS for a roast and broadcasts its URL
func (m *MatchManager) generateTurnAudio(session *battle.Session, fighterName, text string, turnIndex int) {
	if m.server == nil {
		return
	}
	speaker := session.Fighter1
	if session.Fighter2.Name() == fighterName {
		speaker = session.Fighter2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	audioData, err := speaker.GenerateAudio(ctx, text)
	if err != nil {
		logging.LogTTSEvent("tts_failed", fighterName, map[string]interface{}{
			"match_id": session.MatchID,
			"error":    err.Error(),
		})
		return
	}

	audioURL := m.server.CacheAudio(audioData)
	if err := session.SetTurnAudio(turnIndex, audioURL); err != nil {
		logging.Warn("Failed to attach audio to turn", map[string]interface{}{
			"match_id": session.MatchID,
			"error":    err.Error(),
		})
	}
	session.Broadcast(gin.H{
		"type":     "audio",
		"fighter":  fighterName,
		"audioUrl": audioURL,
	})
}

func (m *MatchManager) persistMatchState(session *battle.Session) {
	if m.db == nil {
		return
	}
	err := m.db.UpdateMatchState(
		session.MatchID,
		string(session.Status()),
		session.Round(),
		session.Health(battle.SlotFighter1),
		session.Health(battle.SlotFighter2),
		session.Winner(),
	)
	if err != nil {
		logging.Warn("Failed to persist match state", map[string]interface{}{
			"match_id": session.MatchID,
			"error":    err.Error(),
		})
	}
}

func (m *MatchManager) persistTurn(session *battle.Session, ev battle.Event) {
	if m.db == nil {
		return
	}
	critical := ev.Score != nil && ev.Score.IsCritical
	_, err := m.db.SaveTurn(session.MatchID, ev.TurnIndex, ev.Round, ev.Fighter, ev.Text,
		ev.Score, ev.Damage, string(ev.SpeedTier), critical)
	if err != nil {
		logging.Warn("Failed to persist turn", map[string]interface{}{
			"match_id":   session.MatchID,
			"turn_index": ev.TurnIndex,
			"error":      err.Error(),
		})
	}
}

// AbandonMatch cancels a running match. In-flight generation or judging is
// discarded; spectators are told the match was walked away from.
func (m *MatchManager) AbandonMatch(matchID string) error {
	m.mu.Lock()
	entry, ok := m.matches[matchID]
	var cancel context.CancelFunc
	if ok {
		cancel = entry.cancel
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("match %s not found", matchID)
	}

	if cancel != nil {
		cancel()
	} else {
		// loop never started; settle the status directly
		entry.session.UpdateStatus(battle.StatusAbandoned)
		m.persistMatchState(entry.session)
	}

	entry.session.Broadcast(gin.H{
		"type":    "system",
		"message": "Match abandoned.",
	})
	logging.LogMatchEvent("match_abandoned", matchID, nil)
	return nil
}

// RemoveMatch drops a match from the registry
func (m *MatchManager) RemoveMatch(matchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.matches, matchID)
}

// StartPeriodicCleanup removes settled matches on an interval
func (m *MatchManager) StartPeriodicCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			m.CleanupSettledMatches()
		}
	}()
}

// CleanupSettledMatches drops finished, failed and abandoned sessions that
// no longer have spectators attached.
func (m *MatchManager) CleanupSettledMatches() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, entry := range m.matches {
		status, clients := entry.session.CheckStatusAndClients()
		if clients > 0 {
			continue
		}
		switch status {
		case battle.StatusFinished, battle.StatusFailed, battle.StatusAbandoned:
			delete(m.matches, id)
			logging.LogMatchEvent("match_cleaned_up", id, map[string]interface{}{
				"status": string(status),
			})
		}
	}
}
