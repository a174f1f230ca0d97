package types

import (
	"fmt"
)

// Voice represents available TTS voices
type Voice string

const (
	// VoiceAlloy - A versatile, neutral voice that maintains clarity and engagement
	VoiceAlloy Voice = "alloy"

	// VoiceEcho - A baritone voice with depth and warmth, good for trash talk
	VoiceEcho Voice = "echo"

	// VoiceFable - A youthful voice with a bright and optimistic tone
	VoiceFable Voice = "fable"

	// VoiceOnyx - A deep and authoritative male voice with gravitas
	VoiceOnyx Voice = "onyx"

	// VoiceNova - A feminine voice with a confident, assertive delivery
	VoiceNova Voice = "nova"

	// VoiceShimmer - A clear, energetic voice with a friendly character
	VoiceShimmer Voice = "shimmer"
)

// Gender is a cosmetic tag used for avatar and voice fallback selection
type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonBinary Gender = "non-binary"
	GenderUnknown   Gender = "unknown"
)

var (
	// AllVoices contains all valid voices
	AllVoices = []Voice{
		VoiceAlloy,
		VoiceEcho,
		VoiceFable,
		VoiceOnyx,
		VoiceNova,
		VoiceShimmer,
	}

	// AllGenders contains all valid gender tags
	AllGenders = []Gender{
		GenderMale,
		GenderFemale,
		GenderNonBinary,
		GenderUnknown,
	}

	// voiceMap maps string values to Voice
	voiceMap = map[string]Voice{
		string(VoiceAlloy):   VoiceAlloy,
		string(VoiceEcho):    VoiceEcho,
		string(VoiceFable):   VoiceFable,
		string(VoiceOnyx):    VoiceOnyx,
		string(VoiceNova):    VoiceNova,
		string(VoiceShimmer): VoiceShimmer,
	}

	// genderMap maps string values to Gender
	genderMap = map[string]Gender{
		string(GenderMale):      GenderMale,
		string(GenderFemale):    GenderFemale,
		string(GenderNonBinary): GenderNonBinary,
		string(GenderUnknown):   GenderUnknown,
	}
)

// Error types for invalid values
var (
	ErrInvalidVoice  = fmt.Errorf("invalid voice")
	ErrInvalidGender = fmt.Errorf("invalid gender")
)

// IsValid checks if the Voice is valid
func (v Voice) IsValid() bool {
	_, ok := voiceMap[string(v)]
	return ok
}

// String converts the enum to string
func (v Voice) String() string {
	return string(v)
}

// ParseVoice parses a string into a Voice
func ParseVoice(s string) (Voice, error) {
	if voice, ok := voiceMap[s]; ok {
		return voice, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidVoice, s)
}

// GetAllVoices returns all valid voices
func GetAllVoices() []Voice {
	return AllVoices
}

// Description returns a human-readable description of the voice
func (v Voice) Description() string {
	switch v {
	case VoiceAlloy:
		return "A versatile, neutral voice that maintains clarity and engagement"
	case VoiceEcho:
		return "A baritone voice with depth and warmth, good for trash talk"
	case VoiceFable:
		return "A youthful voice with a bright and optimistic tone"
	case VoiceOnyx:
		return "A deep and authoritative male voice with gravitas"
	case VoiceNova:
		return "A feminine voice with a confident, assertive delivery"
	case VoiceShimmer:
		return "A clear, energetic voice with a friendly character"
	default:
		return "Unknown voice"
	}
}

// IsValid checks if the Gender tag is valid
func (g Gender) IsValid() bool {
	_, ok := genderMap[string(g)]
	return ok
}

// String converts the enum to string
func (g Gender) String() string {
	return string(g)
}

// ParseGender parses a string into a Gender, falling back to unknown
func ParseGender(s string) Gender {
	if g, ok := genderMap[s]; ok {
		return g
	}
	return GenderUnknown
}
