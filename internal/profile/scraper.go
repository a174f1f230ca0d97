package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/koyak/kombat_backend/internal/logging"
)

const socialDataBaseURL = "https://api.socialdata.tools"

// Scraper fetches public profile data per platform. Twitter goes through the
// SocialData API when a key is configured; every platform falls back to mock
// payloads so fighter creation works end to end without any scraper keys.
type Scraper struct {
	client        *http.Client
	socialDataKey string
	baseURL       string
}

// NewScraper creates a scraper. An empty key disables live Twitter fetches.
func NewScraper(socialDataKey string) *Scraper {
	return &Scraper{
		client:        &http.Client{Timeout: 10 * time.Second},
		socialDataKey: socialDataKey,
		baseURL:       socialDataBaseURL,
	}
}

// ScrapeTwitter returns the raw profile wrapped in a list, or a mock tweet
// when the API is unavailable.
func (s *Scraper) ScrapeTwitter(ctx context.Context, username string) []map[string]interface{} {
	if s.socialDataKey != "" {
		if profile := s.fetchTwitterProfile(ctx, username); profile != nil {
			return []map[string]interface{}{profile}
		}
		logging.Warn("Could not fetch Twitter profile, using mock data", map[string]interface{}{
			"username": username,
		})
	}
	return []map[string]interface{}{
		{"text": fmt.Sprintf("Mock tweet from @%s. They post about tech and memes.", username), "likeCount": 100},
	}
}

func (s *Scraper) fetchTwitterProfile(ctx context.Context, username string) map[string]interface{} {
	url := fmt.Sprintf("%s/twitter/user/%s", s.baseURL, username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+s.socialDataKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logging.Warn("SocialData request failed", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warn("SocialData returned non-OK status", map[string]interface{}{
			"username": username,
			"status":   resp.StatusCode,
		})
		return nil
	}

	var profile map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil
	}
	return profile
}

// titleCase uppercases the first letter, enough for mock display names
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ScrapeInstagram returns a mock profile payload
func (s *Scraper) ScrapeInstagram(username string) map[string]interface{} {
	return map[string]interface{}{
		"fullName":       titleCase(username),
		"biography":      fmt.Sprintf("Mock bio for %s. Lifestyle and vibes.", username),
		"followersCount": float64(10000),
		"posts": []interface{}{
			map[string]interface{}{"caption": "Living my best life"},
		},
	}
}

// ScrapeLinkedIn returns a mock profile payload. Full profile URLs are
// reduced to their trailing username segment first.
func (s *Scraper) ScrapeLinkedIn(usernameOrURL string) map[string]interface{} {
	username := usernameOrURL
	if strings.Contains(username, "linkedin.com") {
		trimmed := strings.TrimRight(username, "/")
		username = trimmed[strings.LastIndex(trimmed, "/")+1:]
	}

	first, last := username, ""
	if idx := strings.Index(username, "-"); idx > 0 {
		first = username[:idx]
		last = titleCase(strings.SplitN(username[idx+1:], "-", 2)[0])
	}

	return map[string]interface{}{
		"firstName": titleCase(first),
		"lastName":  last,
		"headline":  "Professional at Company",
		"summary":   fmt.Sprintf("Mock LinkedIn profile for %s.", username),
		"positions": []interface{}{
			map[string]interface{}{"title": "Job Title", "companyName": "Company Name"},
		},
	}
}

// ScrapeFacebook returns a mock page payload
func (s *Scraper) ScrapeFacebook(username string) map[string]interface{} {
	return map[string]interface{}{
		"name":           titleCase(username),
		"about":          fmt.Sprintf("Mock Facebook page for %s.", username),
		"likes":          float64(5000),
		"followersCount": float64(5200),
		"posts": []interface{}{
			map[string]interface{}{"text": "Throwback to better times", "likes": float64(42)},
		},
	}
}

// ScrapePlatform dispatches to the scraper for a routed platform. The return
// shape matches what the aggregator expects for that platform.
func (s *Scraper) ScrapePlatform(ctx context.Context, platform, username string) interface{} {
	switch platform {
	case PlatformTwitter:
		return s.ScrapeTwitter(ctx, username)
	case PlatformInstagram:
		return s.ScrapeInstagram(username)
	case PlatformLinkedIn:
		return s.ScrapeLinkedIn(username)
	case PlatformFacebook:
		return s.ScrapeFacebook(username)
	default:
		return nil
	}
}
