package topic

import (
	"sort"
	"strings"
)

// Category names a fixed attack category
type Category string

const (
	CategoryAppearance   Category = "appearance"
	CategoryDating       Category = "dating"
	CategoryCareer       Category = "career"
	CategoryPersonality  Category = "personality"
	CategorySocialMedia  Category = "social_media"
	CategoryIntelligence Category = "intelligence"
	CategoryHobbies      Category = "hobbies"
	CategoryFamily       Category = "family"
)

// attackCategories maps each category to its keyword triggers.
// A category matches when any keyword appears as a case-insensitive
// substring of the roast text. The table is static configuration.
var attackCategories = map[Category][]string{
	CategoryAppearance:   {"ugly", "face", "look", "outfit", "clothes", "fashion", "style", "fit", "wearing", "hair", "body", "photo", "selfie", "mirror"},
	CategoryDating:       {"single", "lonely", "relationship", "girlfriend", "boyfriend", "date", "love", "virgin", "crush", "tinder", "bumble", "dm"},
	CategoryCareer:       {"job", "work", "career", "unemployed", "salary", "boss", "office", "intern", "promotion", "hustle", "ceo", "founder", "startup", "linkedin", "resume", "hired", "fired"},
	CategoryPersonality:  {"boring", "annoying", "cringe", "toxic", "fake", "hypocrite", "ego", "personality", "thinking", "pretend", "act"},
	CategorySocialMedia:  {"followers", "likes", "posts", "content", "influencer", "clout", "engagement", "views", "tiktok", "instagram", "insta", "twitter", "reels", "viral", "feed"},
	CategoryIntelligence: {"dumb", "stupid", "brain", "iq", "degree", "education", "school", "college", "dropout", "graduated", "spelling", "count", "math"},
	CategoryHobbies:      {"hobby", "game", "gaming", "sport", "music", "anime", "netflix", "book", "travel", "gym", "workout"},
	CategoryFamily:       {"mom", "mum", "dad", "parents", "family", "sibling", "brother", "sister", "grandma", "kid", "child"},
}

// AllCategories returns every configured category name, sorted
func AllCategories() []Category {
	cats := make([]Category, 0, len(attackCategories))
	for c := range attackCategories {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// Classify returns the set of categories whose keywords match the text.
// It is pure and total: unknown or empty text yields an empty slice,
// never an error. Results are sorted for stable output.
func Classify(text string) []Category {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)

	var matched []Category
	for category, keywords := range attackCategories {
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				matched = append(matched, category)
				break
			}
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
	return matched
}

// Keywords returns the keyword set for a category, or nil if unknown
func Keywords(c Category) []string {
	return attackCategories[c]
}
