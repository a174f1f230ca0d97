package server

import "time"

// Config holds server configuration
type Config struct {
	Port          string
	OpenAIKey     string
	SocialDataKey string
	DataDir       string
	MatchTimeout  time.Duration // hard cap on a single match
	JudgeModel    string
	ProfilerModel string
}

// DefaultConfig returns the standard server configuration
func DefaultConfig() Config {
	return Config{
		Port:         "8080",
		DataDir:      "data",
		MatchTimeout: 15 * time.Minute,
	}
}

// FighterPayload is the wire form of a fighter persona for match setup
type FighterPayload struct {
	Name          string   `json:"name" binding:"required"`
	Gender        string   `json:"gender"`
	SystemPrompt  string   `json:"system_prompt"`
	AttackVectors []string `json:"attack_vectors"`
	Model         string   `json:"model"`
	Voice         string   `json:"voice"`
}
