package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

type TTSService struct {
	client *openai.Client
	voice  openai.SpeechVoice
}

// NewTTSService creates a new TTS service with the specified voice
func NewTTSService(apiKey string, voiceStr string) (*TTSService, error) {
	var voice openai.SpeechVoice
	switch voiceStr {
	case "alloy":
		voice = openai.VoiceAlloy
	case "echo":
		voice = openai.VoiceEcho
	case "fable":
		voice = openai.VoiceFable
	case "onyx":
		voice = openai.VoiceOnyx
	case "nova":
		voice = openai.VoiceNova
	case "shimmer":
		voice = openai.VoiceShimmer
	default:
		voice = openai.VoiceAlloy
	}

	return &TTSService{
		client: openai.NewClient(apiKey),
		voice:  voice,
	}, nil
}

// GenerateAudio synthesizes speech for the given text and returns MP3 bytes.
// Callers treat failures as cosmetic: a turn proceeds without audio.
func (t *TTSService) GenerateAudio(ctx context.Context, text string) ([]byte, error) {
	req := openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          t.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}

	resp, err := t.client.CreateSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech: %v", err)
	}
	defer resp.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp); err != nil {
		return nil, fmt.Errorf("failed to read speech response: %v", err)
	}

	return buf.Bytes(), nil
}

// Voice returns the configured voice identifier
func (t *TTSService) Voice() string {
	return string(t.voice)
}
