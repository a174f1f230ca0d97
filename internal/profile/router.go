package profile

import (
	"regexp"
	"strings"
)

// PlatformInfo is the result of platform detection for one URL
type PlatformInfo struct {
	Platform    string `json:"platform"`
	Username    string `json:"username"`
	OriginalURL string `json:"original_url"`
}

// supported platform names, in routing order
const (
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
	PlatformFacebook  = "facebook"
	PlatformUnknown   = "unknown"
)

// Routing is pure pattern matching, no LLM involved. Each pattern captures
// the username portion of the URL; x.com routes to twitter.
var platformPatterns = []struct {
	platform string
	pattern  *regexp.Regexp
}{
	{PlatformTwitter, regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?(?:twitter\.com|x\.com)/([a-zA-Z0-9_]+)(?:/.*)?$`)},
	{PlatformInstagram, regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?instagram\.com/([a-zA-Z0-9_.]+)(?:/.*)?$`)},
	{PlatformLinkedIn, regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?linkedin\.com/in/([a-zA-Z0-9_-]+)(?:/.*)?$`)},
	// facebook has two capture groups: numeric ID from profile.php?id=N, or
	// the vanity username from the path; exactly one is non-empty on a match
	{PlatformFacebook, regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?facebook\.com/(?:profile\.php\?id=(\d+)|([a-zA-Z0-9.]+))(?:/.*)?$`)},
}

// DetectPlatform identifies which social platform a profile URL belongs to
// and extracts its username. Unrecognized URLs come back as "unknown" with
// an empty username, never an error.
func DetectPlatform(url string) PlatformInfo {
	url = strings.TrimSpace(url)

	for _, entry := range platformPatterns {
		match := entry.pattern.FindStringSubmatch(url)
		if match == nil {
			continue
		}
		username := match[1]
		if entry.platform == PlatformFacebook && username == "" {
			username = match[2]
		}
		return PlatformInfo{
			Platform:    entry.platform,
			Username:    username,
			OriginalURL: url,
		}
	}

	return PlatformInfo{Platform: PlatformUnknown, OriginalURL: url}
}

// RouteURLs groups a batch of profile URLs by detected platform
func RouteURLs(urls []string) map[string][]PlatformInfo {
	routed := make(map[string][]PlatformInfo)
	for _, url := range urls {
		info := DetectPlatform(url)
		routed[info.Platform] = append(routed[info.Platform], info)
	}
	return routed
}

// SupportedPlatforms lists the platforms the router can identify
func SupportedPlatforms() []string {
	return []string{PlatformTwitter, PlatformInstagram, PlatformLinkedIn, PlatformFacebook}
}
