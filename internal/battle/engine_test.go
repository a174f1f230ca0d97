package battle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyak/kombat_backend/internal/fighter"
	"github.com/koyak/kombat_backend/internal/scoring"
	"github.com/koyak/kombat_backend/internal/types"
)

// scriptedGenerator returns canned roasts with a fixed fake latency
type scriptedGenerator struct {
	name    string
	latency time.Duration
	calls   int
	err     error
}

func (g *scriptedGenerator) GenerateRoast(ctx context.Context, opponentName string, opponentAttackVectors []string, history []scoring.HistoryEntry, exhaustedTopics []string) (*fighter.RoastResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.calls++
	return &fighter.RoastResult{
		Text:    fmt.Sprintf("%s roast #%d", g.name, g.calls),
		Latency: g.latency,
	}, nil
}

// scriptedJudge replays canned verdicts in order, repeating the last one
type scriptedJudge struct {
	verdicts []*scoring.RoastScore
	calls    int
	err      error
	onCall   func()
}

func (j *scriptedJudge) ScoreRoast(ctx context.Context, roastText, opponentName string, opponentAttackVectors []string, history []scoring.HistoryEntry, exhaustedTopics []string) (*scoring.RoastScore, error) {
	if j.onCall != nil {
		j.onCall()
	}
	if j.err != nil {
		return nil, j.err
	}
	idx := j.calls
	if idx >= len(j.verdicts) {
		idx = len(j.verdicts) - 1
	}
	j.calls++
	return j.verdicts[idx], nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	f1, err := fighter.New("test-key", fighter.Config{
		Name:          "Alice",
		Gender:        types.GenderFemale,
		AttackVectors: []string{"still uses a flip phone"},
	})
	require.NoError(t, err)
	f2, err := fighter.New("test-key", fighter.Config{
		Name:          "Bob",
		Gender:        types.GenderMale,
		AttackVectors: []string{"lost a chess game to a pigeon"},
	})
	require.NoError(t, err)

	// zero pacing so tests run the loop flat out
	return NewSession("match-test", f1, f2, Config{})
}

func collectEvents(events *[]Event) Sink {
	return func(ev Event) {
		*events = append(*events, ev)
	}
}

func TestEngineKnockoutAlternationAndRounds(t *testing.T) {
	session := newTestSession(t)

	// every roast lands the worked-example verdict: 80/60/90 at 1500ms
	// resolves to 52 damage, so the match is Alice 52, Bob 52, Alice 52 KO
	verdict := &scoring.RoastScore{Specificity: 80, Creativity: 60, Accuracy: 90}
	judge := &scriptedJudge{verdicts: []*scoring.RoastScore{verdict}}
	gen1 := &scriptedGenerator{name: "Alice", latency: 1500 * time.Millisecond}
	gen2 := &scriptedGenerator{name: "Bob", latency: 1500 * time.Millisecond}

	var events []Event
	engine := NewEngine(session, gen1, gen2, judge, collectEvents(&events))
	engine.ForceStartingSlot(SlotFighter1)

	err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusFinished, session.Status())
	assert.Equal(t, "Alice", session.Winner())
	assert.Equal(t, 48, session.Health(SlotFighter1))
	assert.Equal(t, 0, session.Health(SlotFighter2))

	// strict alternation from the forced starter
	history := session.History()
	require.Len(t, history, 3)
	assert.Equal(t, "Alice", history[0].Speaker)
	assert.Equal(t, "Bob", history[1].Speaker)
	assert.Equal(t, "Alice", history[2].Speaker)
	for _, rec := range history {
		require.NotNil(t, rec.Damage)
		assert.Equal(t, 52, *rec.Damage)
		assert.Equal(t, SpeedTierBlazing, rec.SpeedTier)
	}

	// the turn wrapped back to the starter exactly once before the KO
	assert.Equal(t, 2, session.Round())

	// final event announces the winner
	last := events[len(events)-1]
	assert.Equal(t, EventMatchEnded, last.Type)
	assert.Equal(t, "Alice", last.Winner)
	assert.Equal(t, 0, last.Health["Bob"])
}

func TestEngineEventSequence(t *testing.T) {
	session := newTestSession(t)
	verdict := &scoring.RoastScore{Specificity: 80, Creativity: 60, Accuracy: 90}
	judge := &scriptedJudge{verdicts: []*scoring.RoastScore{verdict}}
	gen := &scriptedGenerator{name: "x", latency: time.Second}

	var events []Event
	engine := NewEngine(session, gen, gen, judge, collectEvents(&events))
	engine.ForceStartingSlot(SlotFighter1)

	require.NoError(t, engine.Run(context.Background()))

	var got []EventType
	for _, ev := range events {
		got = append(got, ev.Type)
	}
	want := []EventType{
		EventMatchStarted,
		EventTurnStarted, EventRoast, EventVerdict, EventHealthUpdate,
		EventTurnStarted, EventRoast, EventVerdict, EventHealthUpdate,
		EventRoundStarted,
		EventTurnStarted, EventRoast, EventVerdict, EventHealthUpdate,
		EventMatchEnded,
	}
	assert.Equal(t, want, got)

	for _, ev := range events {
		assert.Equal(t, "match-test", ev.MatchID)
	}
}

func TestEngineRepetitionDealsNoDamage(t *testing.T) {
	session := newTestSession(t)

	// first verdict is a repetition, second and later end the match quickly
	repeat := &scoring.RoastScore{Specificity: 90, Creativity: 90, Accuracy: 90, IsRepetition: true}
	lethal := &scoring.RoastScore{Specificity: 100, Creativity: 100, Accuracy: 100}
	judge := &scriptedJudge{verdicts: []*scoring.RoastScore{repeat, lethal}}
	gen := &scriptedGenerator{name: "x", latency: time.Second}

	engine := NewEngine(session, gen, gen, judge, nil)
	engine.ForceStartingSlot(SlotFighter1)

	require.NoError(t, engine.Run(context.Background()))

	history := session.History()
	require.NotEmpty(t, history)
	require.NotNil(t, history[0].Damage)
	assert.Equal(t, 0, *history[0].Damage, "repetition turn must deal zero damage")
	assert.Equal(t, StatusFinished, session.Status())
}

func TestEngineCancellationDiscardsPendingVerdict(t *testing.T) {
	session := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())

	// the judge cancels the match before returning its verdict; the damage
	// must never be applied
	judge := &scriptedJudge{
		verdicts: []*scoring.RoastScore{{Specificity: 100, Creativity: 100, Accuracy: 100}},
		onCall:   cancel,
	}
	gen := &scriptedGenerator{name: "x", latency: time.Second}

	engine := NewEngine(session, gen, gen, judge, nil)
	engine.ForceStartingSlot(SlotFighter1)

	err := engine.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, StatusAbandoned, session.Status())
	assert.Equal(t, 100, session.Health(SlotFighter1))
	assert.Equal(t, 100, session.Health(SlotFighter2))

	history := session.History()
	require.Len(t, history, 1)
	assert.Nil(t, history[0].Damage, "cancelled turn must stay unresolved")
}

func TestEngineGeneratorFailureAbortsMatch(t *testing.T) {
	session := newTestSession(t)
	boom := errors.New("model unavailable")
	gen1 := &scriptedGenerator{name: "x", latency: time.Second, err: boom}
	gen2 := &scriptedGenerator{name: "y", latency: time.Second}
	judge := &scriptedJudge{verdicts: []*scoring.RoastScore{{}}}

	var events []Event
	engine := NewEngine(session, gen1, gen2, judge, collectEvents(&events))
	engine.ForceStartingSlot(SlotFighter1)

	err := engine.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailed, session.Status())

	last := events[len(events)-1]
	assert.Equal(t, EventMatchFailed, last.Type)
	assert.NotEmpty(t, last.Error)
}

func TestEngineJudgeFailureAbortsMatch(t *testing.T) {
	session := newTestSession(t)
	gen := &scriptedGenerator{name: "x", latency: time.Second}
	judge := &scriptedJudge{err: errors.New("judge offline")}

	engine := NewEngine(session, gen, gen, judge, nil)
	engine.ForceStartingSlot(SlotFighter1)

	err := engine.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusFailed, session.Status())
}

func TestEngineForcedStartingSlot(t *testing.T) {
	session := newTestSession(t)
	verdict := &scoring.RoastScore{Specificity: 100, Creativity: 100, Accuracy: 100}
	judge := &scriptedJudge{verdicts: []*scoring.RoastScore{verdict}}
	gen := &scriptedGenerator{name: "x", latency: time.Second}

	engine := NewEngine(session, gen, gen, judge, nil)
	engine.ForceStartingSlot(SlotFighter2)

	require.NoError(t, engine.Run(context.Background()))

	history := session.History()
	require.NotEmpty(t, history)
	assert.Equal(t, "Bob", history[0].Speaker)
	assert.Equal(t, SlotFighter2, session.StartingSlot())
}

func TestEngineCoinTossCoversBothSlots(t *testing.T) {
	session := newTestSession(t)
	engine := NewEngine(session, nil, nil, nil, nil)

	engine.rng = func(n int) int { return 0 }
	assert.Equal(t, SlotFighter1, engine.coinToss())

	engine.rng = func(n int) int { return 1 }
	assert.Equal(t, SlotFighter2, engine.coinToss())
}
