package profile

import (
	"fmt"
	"strings"
)

// Aggregator normalizes raw per-platform scraper payloads into one text
// block for the profiler LLM. Payloads are loosely-typed JSON because each
// scraper backend uses different field names for the same data; the getters
// below try each known alias in order.
type Aggregator struct{}

const sectionSeparator = "\n\n========================================\n\n"

// pick returns the first non-empty string value among the given keys
func pick(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// pickInt returns the first numeric value among the given keys
func pickInt(data map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		switch v := data[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}

func pickList(data map[string]interface{}, keys ...string) []map[string]interface{} {
	for _, key := range keys {
		raw, ok := data[key].([]interface{})
		if !ok {
			continue
		}
		items := make([]map[string]interface{}, 0, len(raw))
		for _, entry := range raw {
			if m, ok := entry.(map[string]interface{}); ok {
				items = append(items, m)
			}
		}
		return items
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// NormalizeTwitter renders a SocialData profile payload (wrapped in a list)
// or a legacy tweet list into text.
func (Aggregator) NormalizeTwitter(raw []map[string]interface{}) string {
	if len(raw) == 0 {
		return "No Twitter data available."
	}

	first := raw[0]
	if pick(first, "screen_name") != "" || pick(first, "description") != "" {
		var parts []string
		name := pick(first, "name")
		if name == "" {
			name = "Unknown"
		}
		handle := pick(first, "screen_name")
		if handle == "" {
			handle = "unknown"
		}
		bio := pick(first, "description")
		if bio == "" {
			bio = "No bio."
		}
		parts = append(parts, fmt.Sprintf("Name: %s (@%s)", name, handle))
		parts = append(parts, fmt.Sprintf("Bio: %s", bio))
		if location := pick(first, "location"); location != "" {
			parts = append(parts, fmt.Sprintf("Location: %s", location))
		}
		if created := pick(first, "created_at"); created != "" {
			parts = append(parts, fmt.Sprintf("Account Created: %s", created))
		}
		parts = append(parts, fmt.Sprintf("Stats: %d Followers, %d Following, %d Tweets, %d Likes",
			pickInt(first, "followers_count"),
			pickInt(first, "friends_count"),
			pickInt(first, "statuses_count"),
			pickInt(first, "favourites_count")))
		if verified, ok := first["verified"].(bool); ok && verified {
			parts = append(parts, "Status: Verified Account")
		}
		return "TWITTER PROFILE:\n" + strings.Join(parts, "\n")
	}

	// legacy tweet list format
	var posts []string
	for i, tweet := range raw {
		if i >= 15 {
			break
		}
		if text := pick(tweet, "text", "full_text", "fullText", "content"); text != "" {
			posts = append(posts, "Tweet: "+text)
		}
	}
	if len(posts) == 0 {
		return "No Twitter data available."
	}
	return "TWITTER POSTS:\n" + strings.Join(posts, "\n---\n")
}

// NormalizeInstagram renders an Instagram profile payload into text
func (Aggregator) NormalizeInstagram(raw map[string]interface{}) string {
	if len(raw) == 0 {
		return "No Instagram data available."
	}

	var parts []string
	if name := pick(raw, "fullName", "full_name"); name != "" {
		parts = append(parts, "Name: "+name)
	}
	if bio := pick(raw, "biography"); bio != "" {
		parts = append(parts, "Bio: "+bio)
	}
	if followers := pickInt(raw, "followersCount"); followers > 0 {
		parts = append(parts, fmt.Sprintf("Followers: %d", followers))
	}

	var captions []string
	for i, post := range pickList(raw, "posts", "latestPosts") {
		if i >= 10 {
			break
		}
		if caption := pick(post, "caption"); caption != "" {
			captions = append(captions, truncate(caption, 500))
		}
	}
	if len(captions) > 0 {
		parts = append(parts, "RECENT CAPTIONS:\n"+strings.Join(captions, "\n---\n"))
	}

	if len(parts) == 0 {
		return "No Instagram data available."
	}
	return "INSTAGRAM PROFILE:\n" + strings.Join(parts, "\n")
}

// NormalizeLinkedIn renders a LinkedIn profile payload into text
func (Aggregator) NormalizeLinkedIn(raw map[string]interface{}) string {
	if len(raw) == 0 {
		return "No LinkedIn data available."
	}

	var parts []string
	name := strings.TrimSpace(pick(raw, "firstName") + " " + pick(raw, "lastName"))
	if name != "" {
		parts = append(parts, "Name: "+name)
	}
	if headline := pick(raw, "headline"); headline != "" {
		parts = append(parts, "Headline: "+headline)
	}
	if location := pick(raw, "locationName", "location", "geoLocationName"); location != "" {
		parts = append(parts, "Location: "+location)
	}
	if summary := pick(raw, "summary", "about"); summary != "" {
		parts = append(parts, "About: "+truncate(summary, 1000))
	}

	var experience []string
	for i, pos := range pickList(raw, "positions", "experience", "workExperience") {
		if i >= 5 {
			break
		}
		title := pick(pos, "title")
		company := pick(pos, "companyName", "company", "organizationName")
		if title == "" && company == "" {
			continue
		}
		entry := fmt.Sprintf("- %s at %s", title, company)
		if description := pick(pos, "description"); description != "" {
			entry += ": " + truncate(description, 200)
		}
		experience = append(experience, entry)
	}
	if len(experience) > 0 {
		parts = append(parts, "EXPERIENCE:\n"+strings.Join(experience, "\n"))
	}

	var education []string
	for i, edu := range pickList(raw, "educations", "education") {
		if i >= 3 {
			break
		}
		school := pick(edu, "schoolName", "school")
		if school == "" {
			continue
		}
		if degree := pick(edu, "degreeName", "degree"); degree != "" {
			education = append(education, fmt.Sprintf("- %s in %s from %s", degree, pick(edu, "fieldOfStudy"), school))
		} else {
			education = append(education, "- Studied at "+school)
		}
	}
	if len(education) > 0 {
		parts = append(parts, "EDUCATION:\n"+strings.Join(education, "\n"))
	}

	var certs []string
	for i, cert := range pickList(raw, "certifications") {
		if i >= 5 {
			break
		}
		if name := pick(cert, "name"); name != "" {
			certs = append(certs, name)
		}
	}
	if len(certs) > 0 {
		parts = append(parts, "CERTIFICATIONS: "+strings.Join(certs, ", "))
	}

	if len(parts) == 0 {
		return "No LinkedIn data available."
	}
	return "LINKEDIN PROFILE:\n" + strings.Join(parts, "\n")
}

// NormalizeFacebook renders a Facebook page payload into text
func (Aggregator) NormalizeFacebook(raw map[string]interface{}) string {
	if len(raw) == 0 {
		return "No Facebook data available."
	}

	var parts []string
	if name := pick(raw, "name", "title"); name != "" {
		parts = append(parts, "Name: "+name)
	}
	if category := pick(raw, "category"); category != "" {
		parts = append(parts, "Category: "+category)
	}
	if about := pick(raw, "about", "description"); about != "" {
		parts = append(parts, "About: "+truncate(about, 500))
	}
	likes := pickInt(raw, "likes", "likesCount")
	followers := pickInt(raw, "followers", "followersCount")
	if likes > 0 || followers > 0 {
		parts = append(parts, fmt.Sprintf("Engagement: %d Likes, %d Followers", likes, followers))
	}
	if website := pick(raw, "website"); website != "" {
		parts = append(parts, "Website: "+website)
	}

	var posts []string
	for i, post := range pickList(raw, "posts") {
		if i >= 10 {
			break
		}
		text := pick(post, "text", "message", "postText")
		if text == "" {
			continue
		}
		posts = append(posts, fmt.Sprintf("Post: %s (%d likes, %d shares, %d comments)",
			truncate(text, 500),
			pickInt(post, "likes", "likesCount"),
			pickInt(post, "shares", "sharesCount"),
			pickInt(post, "comments", "commentsCount")))
	}
	if len(posts) > 0 {
		parts = append(parts, "RECENT POSTS:\n"+strings.Join(posts, "\n---\n"))
	}

	if len(parts) == 0 {
		return "No Facebook data available."
	}
	return "FACEBOOK PROFILE:\n" + strings.Join(parts, "\n")
}

// Aggregate combines every platform's payload into a single context block
func (a Aggregator) Aggregate(platformData map[string]interface{}) string {
	var sections []string

	if raw, ok := platformData[PlatformTwitter].([]map[string]interface{}); ok && len(raw) > 0 {
		sections = append(sections, a.NormalizeTwitter(raw))
	}
	if raw, ok := platformData[PlatformInstagram].(map[string]interface{}); ok && len(raw) > 0 {
		sections = append(sections, a.NormalizeInstagram(raw))
	}
	if raw, ok := platformData[PlatformLinkedIn].(map[string]interface{}); ok && len(raw) > 0 {
		sections = append(sections, a.NormalizeLinkedIn(raw))
	}
	if raw, ok := platformData[PlatformFacebook].(map[string]interface{}); ok && len(raw) > 0 {
		sections = append(sections, a.NormalizeFacebook(raw))
	}

	if len(sections) == 0 {
		return "No social media data available for this person."
	}
	return strings.Join(sections, sectionSeparator)
}
