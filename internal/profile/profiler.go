package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/koyak/kombat_backend/internal/logging"
)

// SpeechPatterns captures how the person writes online
type SpeechPatterns struct {
	Vocabulary        []string `json:"vocabulary"`
	SentenceStructure string   `json:"sentence_structure"`
	Tone              string   `json:"tone"`
}

// Worldview captures what the person believes, and where those beliefs
// contradict their behavior (prime roast material).
type Worldview struct {
	CoreBeliefs    []string `json:"core_beliefs"`
	Contradictions []string `json:"contradictions"`
}

// FighterPersona is the synthesized digital twin. SystemPrompt is handed
// directly to the fighter LLM; AttackVectors are handed to the opponent.
type FighterPersona struct {
	Name                      string         `json:"name"`
	SpeechPatterns            SpeechPatterns `json:"speech_patterns"`
	PsychologicalInsecurities []string       `json:"psychological_insecurities"`
	Worldview                 Worldview      `json:"worldview"`
	AttackVectors             []string       `json:"attack_vectors"`
	Gender                    string         `json:"gender"`
	SystemPrompt              string         `json:"system_prompt"`
}

// PersonaProfiler turns aggregated social data into a FighterPersona
type PersonaProfiler struct {
	llm   llms.LLM
	model string
}

const defaultProfilerModel = "gpt-4o-mini"

// NewPersonaProfiler creates a profiler backed by the given model
func NewPersonaProfiler(apiKey, model string) (*PersonaProfiler, error) {
	if model == "" {
		model = defaultProfilerModel
	}
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profiler LLM: %v", err)
	}
	return &PersonaProfiler{llm: llm, model: model}, nil
}

// GeneratePersona synthesizes a persona from the aggregated context block.
// Any LLM or parse failure degrades to a generic fallback persona rather
// than failing fighter creation.
func (p *PersonaProfiler) GeneratePersona(ctx context.Context, aggregatedData, targetName string) *FighterPersona {
	prompt := buildProfilerPrompt(aggregatedData, targetName)

	completion, err := p.llm.Call(ctx, prompt)
	if err != nil {
		logging.Warn("Persona synthesis failed, using fallback persona", map[string]interface{}{
			"target": targetName,
			"error":  err.Error(),
		})
		return FallbackPersona(targetName)
	}

	persona, err := parsePersona(completion, targetName)
	if err != nil {
		logging.Warn("Persona response unparseable, using fallback persona", map[string]interface{}{
			"target": targetName,
			"error":  err.Error(),
		})
		return FallbackPersona(targetName)
	}
	return persona
}

// parsePersona decodes the profiler completion into a FighterPersona
func parsePersona(completion, targetName string) (*FighterPersona, error) {
	completion = strings.TrimSpace(completion)
	completion = strings.TrimPrefix(completion, "```json")
	completion = strings.TrimPrefix(completion, "```")
	completion = strings.TrimSuffix(completion, "```")
	completion = strings.TrimSpace(completion)

	var persona FighterPersona
	if err := json.Unmarshal([]byte(completion), &persona); err != nil {
		// some models wrap the object in a single-element array
		var list []FighterPersona
		if listErr := json.Unmarshal([]byte(completion), &list); listErr == nil && len(list) > 0 {
			persona = list[0]
		} else {
			return nil, fmt.Errorf("failed to parse persona: %v", err)
		}
	}

	if persona.Name == "" {
		persona.Name = targetName
	}
	if persona.Gender == "" {
		persona.Gender = "unknown"
	}
	if persona.SystemPrompt == "" {
		persona.SystemPrompt = fmt.Sprintf("You are %s.", persona.Name)
	}
	return &persona, nil
}

// FallbackPersona is returned when no usable data or synthesis exists
func FallbackPersona(targetName string) *FighterPersona {
	return &FighterPersona{
		Name: targetName,
		SpeechPatterns: SpeechPatterns{
			Vocabulary:        []string{"generic"},
			SentenceStructure: "standard",
			Tone:              "neutral",
		},
		PsychologicalInsecurities: []string{"Unknown weaknesses"},
		Worldview: Worldview{
			CoreBeliefs:    []string{"Unknown beliefs"},
			Contradictions: []string{"Unknown contradictions"},
		},
		AttackVectors: []string{"No specific attack vectors found"},
		Gender:        "unknown",
		SystemPrompt:  fmt.Sprintf("You are %s. You are a generic roast fighter.", targetName),
	}
}

func buildProfilerPrompt(aggregatedData, targetName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert psychological profiler and comedy writer.
Analyze the following social media data for %s and create a "Digital Twin" persona for a roast battle game.

SOCIAL MEDIA DATA:
%s

INSTRUCTIONS:
1. Identify their SPEECH PATTERNS: vocabulary, sentence structure, tone. Be very specific.
2. Find PSYCHOLOGICAL INSECURITIES: things they're defensive about, contradictions, failures.
3. Understand their WORLDVIEW: what they believe, and where those beliefs contradict their actions.
4. List specific ATTACK VECTORS: embarrassing moments, hypocrisies, meme-able quotes.
5. Deduce their GENDER: "male", "female", or "non-binary".
6. CRITICAL: Generate a "system_prompt" that is EXTREMELY DETAILED.
   - It must contain a "Knowledge Base" of specific facts, quotes, and events from the data.
   - Include at least 15 specific data points (tweets, posts, bio details) in the Knowledge Base.
   - It must explicitly define their writing style with examples.
   - It must be long enough to give the Fighter LLM deep context (at least 500 words).
   - CONSTRAINT: The system prompt must explicitly instruct the persona to NOT use emojis.

Return JSON format ONLY:
{
    "name": "Their real name only (e.g. 'John Smith'). NO brackets, labels, or descriptions.",
    "speech_patterns": {
        "vocabulary": ["word1", "word2", "phrase1"],
        "sentence_structure": "description of how they write",
        "tone": "description of their tone"
    },
    "psychological_insecurities": ["insecurity 1 with specific example", "insecurity 2 with specific example"],
    "worldview": {
        "core_beliefs": ["belief 1", "belief 2"],
        "contradictions": ["contradiction 1", "contradiction 2"]
    },
    "attack_vectors": ["specific embarrassing fact or event 1", "specific embarrassing fact or event 2"],
    "gender": "male/female/non-binary",
    "system_prompt": "You are [name]. BIO & PSYCHOLOGY: ... SPEECH STYLE: ... KNOWLEDGE BASE (Use these facts!): ... INSTRUCTIONS: You are in a roast battle. Be ruthless. Use the Knowledge Base to make specific references."
}`, targetName, aggregatedData)
	return b.String()
}
