package battle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/koyak/kombat_backend/internal/fighter"
	"github.com/koyak/kombat_backend/internal/logging"
	"github.com/koyak/kombat_backend/internal/scoring"
)

// Phase is the engine's position inside a turn
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseGenerating Phase = "generating"
	PhaseStreaming  Phase = "streaming"
	PhaseJudging    Phase = "judging"
	PhaseResolving  Phase = "resolving"
)

// turn outcomes
type outcome int

const (
	outcomeNextTurn outcome = iota
	outcomeRoundTransition
	outcomeMatchEnd
)

// Generator produces a roast for the current turn. *fighter.Fighter
// satisfies this; tests substitute scripted generators.
type Generator interface {
	GenerateRoast(ctx context.Context, opponentName string, opponentAttackVectors []string, history []scoring.HistoryEntry, exhaustedTopics []string) (*fighter.RoastResult, error)
}

// Judge scores a delivered roast. *scoring.Scorer satisfies this.
type Judge interface {
	ScoreRoast(ctx context.Context, roastText, opponentName string, opponentAttackVectors []string, history []scoring.HistoryEntry, exhaustedTopics []string) (*scoring.RoastScore, error)
}

// Engine drives one match from coin toss to knockout. It owns the turn state
// machine; the session holds the state, the sink gets told what happened.
// There are no retries: any generator or judge failure aborts the match.
type Engine struct {
	session    *Session
	generators [2]Generator
	judge      Judge
	sink       Sink

	phase Phase

	// forcedStarter skips the coin toss when set
	forcedStarter *Slot
	rng           func(n int) int
}

// NewEngine wires a session to its collaborators
func NewEngine(session *Session, gen1, gen2 Generator, judge Judge, sink Sink) *Engine {
	return &Engine{
		session:    session,
		generators: [2]Generator{gen1, gen2},
		judge:      judge,
		sink:       sink,
		phase:      PhaseIdle,
		rng:        rand.Intn,
	}
}

// ForceStartingSlot pins the opening fighter instead of tossing a coin
func (e *Engine) ForceStartingSlot(slot Slot) {
	e.forcedStarter = &slot
}

// Phase reports where the engine is inside the current turn
func (e *Engine) Phase() Phase {
	return e.phase
}

func (e *Engine) emit(event Event) {
	if e.sink == nil {
		return
	}
	event.MatchID = e.session.MatchID
	e.sink(event)
}

// Run executes the match loop until a knockout, a collaborator failure or
// context cancellation. It returns nil on a clean knockout; on cancellation
// the session is marked abandoned, on failure it is marked failed.
func (e *Engine) Run(ctx context.Context) error {
	starter := e.coinToss()
	e.session.begin(starter)

	logging.LogMatchEvent("match_started", e.session.MatchID, map[string]interface{}{
		"fighter1": e.session.Fighter1.Name(),
		"fighter2": e.session.Fighter2.Name(),
		"starter":  e.session.FighterAt(starter).Name(),
	})

	e.emit(Event{
		Type:    EventMatchStarted,
		Fighter: e.session.FighterAt(starter).Name(),
		Round:   1,
		Health: map[string]int{
			e.session.Fighter1.Name(): startingHealth,
			e.session.Fighter2.Name(): startingHealth,
		},
	})

	for {
		out, err := e.runTurn(ctx)
		if err != nil {
			return e.abort(err)
		}

		switch out {
		case outcomeMatchEnd:
			e.phase = PhaseIdle
			return nil
		case outcomeRoundTransition:
			round := e.session.AdvanceRound()
			logging.LogMatchEvent("round_started", e.session.MatchID, map[string]interface{}{
				"round": round,
			})
			e.emit(Event{Type: EventRoundStarted, Round: round})
			if err := e.wait(ctx, e.session.Config.RoundPause); err != nil {
				return e.abort(err)
			}
		case outcomeNextTurn:
			if err := e.wait(ctx, e.session.Config.TurnDelay); err != nil {
				return e.abort(err)
			}
		}
	}
}

// runTurn executes one full attack: generate, reveal, judge, resolve
func (e *Engine) runTurn(ctx context.Context) (outcome, error) {
	attacker := e.session.CurrentTurn()
	defender := attacker.Other()
	speaker := e.session.FighterAt(attacker)
	target := e.session.FighterAt(defender)

	// both prompts see the match as it stood before this roast
	historyBefore := e.session.HistoryEntries()
	exhaustedBefore := e.session.ExhaustedTopics()
	round := e.session.Round()

	e.phase = PhaseGenerating
	e.emit(Event{
		Type:      EventTurnStarted,
		Fighter:   speaker.Name(),
		Opponent:  target.Name(),
		TurnIndex: e.session.TurnCount(),
		Round:     round,
	})

	logging.LogTurnEvent("generating", e.session.MatchID, speaker.Name(), map[string]interface{}{
		"round": round,
		"turn":  e.session.TurnCount() + 1,
	})

	result, err := e.generators[attacker].GenerateRoast(ctx, target.Name(), target.AttackVectors(), historyBefore, exhaustedBefore)
	if err != nil {
		return 0, fmt.Errorf("%s failed to generate a roast: %w", speaker.Name(), err)
	}

	turnIndex := e.session.AppendTurn(speaker.Name(), attacker, result.Text)
	tier := SpeedTierFor(result.Latency)

	e.emit(Event{
		Type:      EventRoast,
		Fighter:   speaker.Name(),
		Opponent:  target.Name(),
		Text:      result.Text,
		TurnIndex: turnIndex,
		Round:     round,
		SpeedTier: tier,
	})

	// hold while the frontend streams the text out
	e.phase = PhaseStreaming
	if err := e.wait(ctx, e.session.Config.RevealDuration); err != nil {
		return 0, err
	}

	e.phase = PhaseJudging
	verdict, err := e.judge.ScoreRoast(ctx, result.Text, target.Name(), target.AttackVectors(), historyBefore, exhaustedBefore)
	if err != nil {
		return 0, fmt.Errorf("judging %s's roast failed: %w", speaker.Name(), err)
	}

	e.phase = PhaseResolving

	// a verdict that lands after cancellation is discarded, never applied
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	damage := ComputeDamage(verdict, result.Latency, verdict.IsRepetition)
	newHealth := e.session.ApplyDamage(defender, damage)
	if err := e.session.FinalizeTurn(turnIndex, damage, tier, verdict.IsCritical); err != nil {
		return 0, err
	}

	logging.LogJudgeEvent("verdict", e.session.MatchID, map[string]interface{}{
		"fighter":    speaker.Name(),
		"damage":     damage,
		"critical":   verdict.IsCritical,
		"repetition": verdict.IsRepetition,
		"speed_tier": string(tier),
		"health":     newHealth,
	})

	e.emit(Event{
		Type:      EventVerdict,
		Fighter:   speaker.Name(),
		Opponent:  target.Name(),
		Text:      result.Text,
		TurnIndex: turnIndex,
		Round:     round,
		Score:     verdict,
		Damage:    damage,
		SpeedTier: tier,
	})
	e.emit(Event{
		Type:      EventHealthUpdate,
		TurnIndex: turnIndex,
		Round:     round,
		Health: map[string]int{
			e.session.Fighter1.Name(): e.session.Health(SlotFighter1),
			e.session.Fighter2.Name(): e.session.Health(SlotFighter2),
		},
	})

	if err := e.wait(ctx, e.session.Config.VerdictDuration); err != nil {
		return 0, err
	}

	if newHealth <= 0 {
		e.session.finish(speaker.Name())
		logging.LogMatchEvent("match_ended", e.session.MatchID, map[string]interface{}{
			"winner": speaker.Name(),
			"rounds": round,
			"turns":  e.session.TurnCount(),
		})
		e.emit(Event{
			Type:   EventMatchEnded,
			Winner: speaker.Name(),
			Round:  round,
			Health: map[string]int{
				e.session.Fighter1.Name(): e.session.Health(SlotFighter1),
				e.session.Fighter2.Name(): e.session.Health(SlotFighter2),
			},
		})
		return outcomeMatchEnd, nil
	}

	// strict alternation; a new round begins when the turn comes back
	// around to whoever opened the match
	e.session.SetCurrentTurn(defender)
	if defender == e.session.StartingSlot() {
		return outcomeRoundTransition, nil
	}
	return outcomeNextTurn, nil
}

// abort closes out a match that did not reach a knockout. Cancellation means
// the match was walked away from; anything else is a hard failure.
func (e *Engine) abort(err error) error {
	e.phase = PhaseIdle
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		e.session.UpdateStatus(StatusAbandoned)
	} else {
		e.session.UpdateStatus(StatusFailed)
		e.emit(Event{Type: EventMatchFailed, Error: err.Error()})
	}
	logging.LogMatchEvent("match_aborted", e.session.MatchID, map[string]interface{}{
		"error":  err.Error(),
		"status": string(e.session.Status()),
	})
	return err
}

func (e *Engine) coinToss() Slot {
	if e.forcedStarter != nil {
		return *e.forcedStarter
	}
	if e.rng(2) == 0 {
		return SlotFighter1
	}
	return SlotFighter2
}

// wait sleeps for d unless the context is cancelled first. Zero and negative
// durations return immediately without touching the clock.
func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
