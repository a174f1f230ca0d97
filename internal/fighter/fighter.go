package fighter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/koyak/kombat_backend/internal/audio"
	"github.com/koyak/kombat_backend/internal/logging"
	"github.com/koyak/kombat_backend/internal/scoring"
	"github.com/koyak/kombat_backend/internal/types"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config holds the immutable persona for a fighter. Attack vectors are the
// specific embarrassing facts used as roast ammunition against this fighter.
type Config struct {
	Name          string
	Gender        types.Gender
	SystemPrompt  string
	AttackVectors []string
	Model         string
	Voice         types.Voice
}

// Fighter is one AI persona in a match. The persona is immutable for the
// lifetime of the fighter; health lives in the battle session, not here.
type Fighter struct {
	config Config
	llm    llms.LLM
	tts    *audio.TTSService
}

// RoastResult carries a generated roast and the measured round-trip latency
// of the generation call, which feeds the speed bonus.
type RoastResult struct {
	Text    string
	Latency time.Duration
}

// New creates a fighter backed by its selected generation model
func New(apiKey string, config Config) (*Fighter, error) {
	if !config.Voice.IsValid() {
		config.Voice = types.VoiceAlloy // fallback to alloy if invalid
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = fmt.Sprintf("You are %s. You are a generic roast fighter.", config.Name)
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM: %v", err)
	}

	tts, err := audio.NewTTSService(apiKey, config.Voice.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS service: %v", err)
	}

	return &Fighter{
		config: config,
		llm:    llm,
		tts:    tts,
	}, nil
}

// GenerateRoast produces one roast against the opponent. The exhausted topic
// list is a soft constraint passed into the prompt; the wall clock around the
// model call is the latency the damage calculator scales by.
func (f *Fighter) GenerateRoast(ctx context.Context, opponentName string, opponentAttackVectors []string, history []scoring.HistoryEntry, exhaustedTopics []string) (*RoastResult, error) {
	prompt := f.buildRoastPrompt(opponentName, opponentAttackVectors, history, exhaustedTopics)

	start := time.Now()
	completion, err := f.llm.Call(ctx, prompt)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("failed to generate roast: %v", err)
	}

	text, err := parseRoast(completion)
	if err != nil {
		return nil, err
	}

	logging.LogTurnEvent("roast_generated", "", f.config.Name, map[string]interface{}{
		"opponent":   opponentName,
		"latency_ms": latency.Milliseconds(),
		"length":     len(text),
	})

	return &RoastResult{Text: text, Latency: latency}, nil
}

// parseRoast extracts the roast text from a JSON completion
func parseRoast(completion string) (string, error) {
	completion = strings.TrimSpace(completion)
	completion = strings.TrimPrefix(completion, "```json")
	completion = strings.TrimPrefix(completion, "```")
	completion = strings.TrimSuffix(completion, "```")
	completion = strings.TrimSpace(completion)

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(completion), &payload); err != nil {
		// Some models ignore the JSON instruction and answer with the roast
		// itself; a bare non-empty line is accepted as-is.
		if completion != "" && !strings.HasPrefix(completion, "{") {
			return completion, nil
		}
		return "", fmt.Errorf("failed to parse roast: %v\nraw response: %s", err, completion)
	}
	if payload.Text == "" {
		return "", fmt.Errorf("empty roast text\nraw response: %s", completion)
	}
	return payload.Text, nil
}

func (f *Fighter) buildRoastPrompt(opponentName string, opponentAttackVectors []string, history []scoring.HistoryEntry, exhaustedTopics []string) string {
	vectorsText := "- No specific weaknesses known"
	if len(opponentAttackVectors) > 0 {
		var lines []string
		for _, av := range opponentAttackVectors {
			lines = append(lines, "- "+av)
		}
		vectorsText = strings.Join(lines, "\n")
	}

	exhaustedText := "none"
	if len(exhaustedTopics) > 0 {
		exhaustedText = strings.Join(exhaustedTopics, ", ")
	}

	turnNumber := 1
	var historyLines []string
	for _, entry := range history {
		if entry.Speaker == f.config.Name {
			turnNumber++
		}
		historyLines = append(historyLines, fmt.Sprintf("%s: %s", entry.Speaker, entry.Text))
	}
	historyText := "The battle is just starting."
	if len(historyLines) > 0 {
		historyText = strings.Join(historyLines, "\n")
	}

	return fmt.Sprintf(`IDENTITY:
You are %s.
%s

TARGET:
You are roasting %s.

AMMUNITION (use these SPECIFIC facts to attack them):
%s

MATCH SO FAR:
%s

Turn #%d against %s.

EXHAUSTED TOPICS (DO NOT USE): %s

RULES:
1. Pick an attack vector from AMMUNITION that hasn't been used.
2. Avoid topics listed above.
3. MAX 20 WORDS. Be savage.
4. NO EMOJIS.
5. DO NOT roast follower counts - too generic.

Return JSON: {"text": "Your roast"}`,
		f.config.Name, f.config.SystemPrompt,
		opponentName,
		vectorsText,
		historyText,
		turnNumber, opponentName,
		exhaustedText)
}

// GenerateAudio synthesizes the roast with the fighter's selected voice
func (f *Fighter) GenerateAudio(ctx context.Context, text string) ([]byte, error) {
	audioData, err := f.tts.GenerateAudio(ctx, text)
	if err != nil {
		return nil, err
	}

	logging.LogTTSEvent("audio_generated", f.config.Name, map[string]interface{}{
		"bytes": len(audioData),
		"voice": f.config.Voice.String(),
	})

	return audioData, nil
}

// Name returns the fighter's name
func (f *Fighter) Name() string {
	return f.config.Name
}

// Gender returns the fighter's cosmetic gender tag
func (f *Fighter) Gender() types.Gender {
	return f.config.Gender
}

// AttackVectors returns the ammunition usable against this fighter
func (f *Fighter) AttackVectors() []string {
	return f.config.AttackVectors
}

// Voice returns the fighter's selected voice
func (f *Fighter) Voice() types.Voice {
	return f.config.Voice
}

// Model returns the fighter's selected generation model
func (f *Fighter) Model() string {
	return f.config.Model
}
