package referrers

import (
	"net/url"
	"strings"
)

// Direct is the source name for visits without a usable referrer.
const Direct = "Direto"

// Hostnames of the usual portfolio traffic sources.
var knownReferrers = map[string]string{
	// Search
	"google.com":       "Google",
	"google.com.br":    "Google",
	"google.pt":        "Google",
	"bing.com":         "Bing",
	"duckduckgo.com":   "DuckDuckGo",
	"yahoo.com":        "Yahoo",
	"search.brave.com": "Brave Search",

	// Professional networks and portfolios
	"linkedin.com": "LinkedIn",
	"lnkd.in":      "LinkedIn",
	"github.com":   "GitHub",
	"gitlab.com":   "GitLab",
	"behance.net":  "Behance",
	"dribbble.com": "Dribbble",
	"medium.com":   "Medium",
	"dev.to":       "DEV",

	// Social
	"instagram.com":   "Instagram",
	"l.instagram.com": "Instagram",
	"facebook.com":    "Facebook",
	"fb.me":           "Facebook",
	"x.com":           "X/Twitter",
	"twitter.com":     "X/Twitter",
	"t.co":            "X/Twitter",
	"youtube.com":     "YouTube",
	"tiktok.com":      "TikTok",
	"reddit.com":      "Reddit",

	// Messaging
	"web.whatsapp.com": "WhatsApp",
	"wa.me":            "WhatsApp",
	"t.me":             "Telegram",
}

// Source returns the display name for a raw Referer header value.
// Unparseable or empty values are Direct.
func Source(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return Direct
	}
	if !strings.Contains(referrer, "://") {
		referrer = "https://" + referrer
	}
	parsed, err := url.Parse(referrer)
	if err != nil || parsed.Hostname() == "" {
		return Direct
	}
	return FriendlyName(parsed.Hostname())
}

// FriendlyName maps a hostname to its display name. Unknown hosts lose the
// "www." prefix and keep the rest in lower case.
func FriendlyName(hostname string) string {
	hostname = strings.TrimSuffix(strings.ToLower(hostname), ".")

	if name, ok := knownReferrers[hostname]; ok {
		return name
	}

	if withoutWWW, found := strings.CutPrefix(hostname, "www."); found {
		if name, ok := knownReferrers[withoutWWW]; ok {
			return name
		}
		hostname = withoutWWW
	}

	for domain, name := range knownReferrers {
		if strings.HasSuffix(hostname, "."+domain) {
			return name
		}
	}

	return hostname
}
