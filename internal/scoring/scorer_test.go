package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	raw := `{
		"is_repetition": false,
		"specificity": 80,
		"creativity": 60,
		"accuracy": 90,
		"damage": 78,
		"reasoning": "Hyper-specific hit on a real fact."
	}`

	score, err := ParseVerdict(raw)
	require.NoError(t, err)

	assert.Equal(t, 80, score.Specificity)
	assert.Equal(t, 60, score.Creativity)
	assert.Equal(t, 90, score.Accuracy)
	assert.Equal(t, 78, score.Damage)
	assert.False(t, score.IsRepetition)
	assert.False(t, score.IsCritical)
}

func TestParseVerdictStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"is_repetition\": false, \"specificity\": 50, \"creativity\": 50, \"accuracy\": 50, \"damage\": 50}\n```"

	score, err := ParseVerdict(raw)
	require.NoError(t, err)
	assert.Equal(t, 50, score.Damage)
}

func TestParseVerdictRepetitionForcesZero(t *testing.T) {
	raw := `{
		"is_repetition": true,
		"specificity": 95,
		"creativity": 95,
		"accuracy": 95,
		"damage": 95,
		"reasoning": "Same bike joke again."
	}`

	score, err := ParseVerdict(raw)
	require.NoError(t, err)

	assert.True(t, score.IsRepetition)
	assert.Equal(t, 0, score.Damage, "repetition must force raw damage to zero")
	assert.False(t, score.IsCritical)
	assert.Contains(t, score.Reasoning, "REPETITION DETECTED")
}

func TestParseVerdictRecomputesMissingDamage(t *testing.T) {
	raw := `{"is_repetition": false, "specificity": 80, "creativity": 60, "accuracy": 90}`

	score, err := ParseVerdict(raw)
	require.NoError(t, err)

	// 80*0.3 + 60*0.3 + 90*0.4 = 78
	assert.Equal(t, 78, score.Damage)
}

func TestParseVerdictMissingSubscoresIsError(t *testing.T) {
	_, err := ParseVerdict(`{"is_repetition": false, "damage": 50}`)
	assert.Error(t, err, "missing subscores are a malformed response, not a default")

	_, err = ParseVerdict(`not json at all`)
	assert.Error(t, err)
}

func TestParseVerdictClampsOutOfRange(t *testing.T) {
	raw := `{"is_repetition": false, "specificity": 180, "creativity": -20, "accuracy": 90, "damage": 130}`

	score, err := ParseVerdict(raw)
	require.NoError(t, err)

	assert.Equal(t, 100, score.Specificity)
	assert.Equal(t, 0, score.Creativity)
	assert.Equal(t, 100, score.Damage)
}

func TestParseVerdictCriticalFlag(t *testing.T) {
	raw := `{"is_repetition": false, "specificity": 90, "creativity": 85, "accuracy": 95, "damage": 91}`

	score, err := ParseVerdict(raw)
	require.NoError(t, err)
	assert.True(t, score.IsCritical)

	// Exactly at the threshold is not critical
	raw = `{"is_repetition": false, "specificity": 80, "creativity": 80, "accuracy": 80, "damage": 80}`
	score, err = ParseVerdict(raw)
	require.NoError(t, err)
	assert.False(t, score.IsCritical)
}

func TestWeightedDamage(t *testing.T) {
	testCases := []struct {
		name                              string
		specificity, creativity, accuracy int
		expected                          int
	}{
		{"mixed scores", 80, 60, 90, 78},
		{"all zero", 0, 0, 0, 0},
		{"all max", 100, 100, 100, 100},
		{"accuracy weighted heavier", 0, 0, 100, 40},
		{"specificity only", 100, 0, 0, 30},
		{"rounds down", 1, 1, 1, 0},
		{"negative clamps", -50, -50, -50, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, WeightedDamage(tc.specificity, tc.creativity, tc.accuracy))
		})
	}
}
