package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koyak/kombat_backend/internal/logging"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// HistoryEntry is one prior utterance shown to the judge for repetition checks
type HistoryEntry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// RoastScore is the judge's verdict for a single roast.
// Specificity, Creativity and Accuracy are bounded to [0,100]; Damage is the
// raw weighted total before any speed scaling. Repetition forces Damage to 0.
type RoastScore struct {
	Specificity  int    `json:"specificity"`
	Creativity   int    `json:"creativity"`
	Accuracy     int    `json:"accuracy"`
	IsRepetition bool   `json:"is_repetition"`
	IsCritical   bool   `json:"is_critical"`
	Damage       int    `json:"damage"`
	Reasoning    string `json:"reasoning"`
}

// WeightedDamage computes the raw weighted total from the three subscores:
// specificity 30%, creativity 30%, accuracy 40%. Integer tenths keep the
// result exact where float weights would drift at tier boundaries.
func WeightedDamage(specificity, creativity, accuracy int) int {
	tenths := 3*specificity + 3*creativity + 4*accuracy
	if tenths < 0 {
		return 0
	}
	return tenths / 10
}

// criticalThreshold is the raw weighted damage above which a hit is critical
const criticalThreshold = 80

// Scorer grades roasts through an independent judge model
type Scorer struct {
	llm llms.LLM
}

// NewScorer creates a judge client using the given model
func NewScorer(apiKey, model string) (*Scorer, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge LLM: %v", err)
	}

	return &Scorer{llm: llm}, nil
}

// ScoreRoast asks the judge for an independent verdict on one roast.
// A transport failure or a malformed response is returned as an error and is
// fatal to the caller's turn; scores are never silently defaulted.
func (s *Scorer) ScoreRoast(ctx context.Context, roastText, opponentName string, opponentAttackVectors []string, history []HistoryEntry, exhaustedTopics []string) (*RoastScore, error) {
	prompt := buildJudgePrompt(roastText, opponentName, opponentAttackVectors, history, exhaustedTopics)

	completion, err := s.llm.Call(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("judging failed: %v", err)
	}

	score, err := ParseVerdict(completion)
	if err != nil {
		return nil, err
	}

	logging.LogJudgeEvent("roast_scored", "", map[string]interface{}{
		"opponent":    opponentName,
		"damage":      score.Damage,
		"specificity": score.Specificity,
		"creativity":  score.Creativity,
		"accuracy":    score.Accuracy,
		"repetition":  score.IsRepetition,
	})

	return score, nil
}

// ParseVerdict decodes a judge completion into a RoastScore, enforcing the
// repetition zero-override and recomputing a missing damage field from the
// weights. Missing subscores are a malformed response, not a default.
func ParseVerdict(completion string) (*RoastScore, error) {
	completion = strings.TrimSpace(completion)
	completion = strings.TrimPrefix(completion, "```json")
	completion = strings.TrimPrefix(completion, "```")
	completion = strings.TrimSuffix(completion, "```")
	completion = strings.TrimSpace(completion)

	var raw struct {
		Specificity  *int   `json:"specificity"`
		Creativity   *int   `json:"creativity"`
		Accuracy     *int   `json:"accuracy"`
		IsRepetition bool   `json:"is_repetition"`
		Damage       *int   `json:"damage"`
		Reasoning    string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(completion), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse verdict: %v\nraw response: %s", err, completion)
	}
	if raw.Specificity == nil || raw.Creativity == nil || raw.Accuracy == nil {
		return nil, fmt.Errorf("verdict missing subscores\nraw response: %s", completion)
	}

	score := &RoastScore{
		Specificity:  clampScore(*raw.Specificity),
		Creativity:   clampScore(*raw.Creativity),
		Accuracy:     clampScore(*raw.Accuracy),
		IsRepetition: raw.IsRepetition,
		Reasoning:    raw.Reasoning,
	}

	switch {
	case score.IsRepetition:
		// Anti-repetition override is authoritative
		score.Damage = 0
		score.Reasoning = strings.TrimSpace("REPETITION DETECTED. " + score.Reasoning)
	case raw.Damage != nil:
		score.Damage = clampScore(*raw.Damage)
	default:
		score.Damage = WeightedDamage(score.Specificity, score.Creativity, score.Accuracy)
	}

	score.IsCritical = score.Damage > criticalThreshold
	return score, nil
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func buildJudgePrompt(roastText, opponentName string, opponentAttackVectors []string, history []HistoryEntry, exhaustedTopics []string) string {
	vectorsText := "- No known facts"
	if len(opponentAttackVectors) > 0 {
		var lines []string
		for _, av := range opponentAttackVectors {
			lines = append(lines, "- "+av)
		}
		vectorsText = strings.Join(lines, "\n")
	}

	historyText := "No previous history."
	if len(history) > 0 {
		var lines []string
		for _, entry := range history {
			lines = append(lines, fmt.Sprintf("- %s: %s", entry.Speaker, entry.Text))
		}
		historyText = strings.Join(lines, "\n")
	}

	exhaustedText := "none"
	if len(exhaustedTopics) > 0 {
		exhaustedText = strings.Join(exhaustedTopics, ", ")
	}

	return fmt.Sprintf(`You are an impartial JUDGE in a roast battle. Score the following roast independently.

ROAST: "%s"

TARGET: %s
KNOWN FACTS ABOUT TARGET:
%s

PREVIOUS MATCH HISTORY (CHECK FOR REPEATS):
%s

TOPICS ALREADY ATTACKED THIS MATCH: %s

=== REPETITION CHECK (DO THIS FIRST) ===
Before scoring, check if this roast uses the SAME TOPIC, SAME ANGLE, or SAME KEYWORDS as any previous roast.
If repetition is detected: Set "is_repetition" to true.

SCORE THE ROAST ON THESE CRITERIA (0-100 each):

1. SPECIFICITY (30%% weight): How personal is the attack?
   - Generic insults like "you're ugly" = 0-30
   - Mentions specific traits about the target = 40-70
   - Deeply personal, hyper-specific attacks = 80-100

2. CREATIVITY (30%% weight): Is this a unique burn or a cliché?
   - Common insults/overused jokes = 0-30
   - Clever wordplay or unexpected angles = 40-70
   - Brilliant, never-heard-before burns = 80-100

3. ACCURACY (40%% weight): Does it reference REAL content from the target's profile?
   - No connection to known facts = 0-30
   - Loosely related to their profile = 40-70
   - Directly attacks known facts/weaknesses = 80-100

Calculate FINAL DAMAGE as: (Specificity x 0.3) + (Creativity x 0.3) + (Accuracy x 0.4)

Return JSON ONLY:
{
    "is_repetition": <boolean>,
    "specificity": <score>,
    "creativity": <score>,
    "accuracy": <score>,
    "damage": <weighted_total>,
    "reasoning": "<brief 1-line explanation>"
}`, roastText, opponentName, vectorsText, historyText, exhaustedText)
}
