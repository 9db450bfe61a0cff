package features

import "strings"

const (
	ClientUnknown = "unknown"
	ClientOther   = "other"
)

// botMarkers identify automated clients and tooling.
var botMarkers = []string{
	"bot",
	"crawler",
	"spider",
	"scraper",
	"curl",
	"wget",
	"python",
	"go-http-client",
	"java/",
	"libwww",
	"okhttp",
	"httpclient",
	"scrapy",
	"headless",
	"nikto",
	"sqlmap",
	"nmap",
	"masscan",
	"zgrab",
}

// browserFamilies is checked in order; Chrome user agents also advertise Safari.
var browserFamilies = []string{
	"chrome",
	"firefox",
	"safari",
}

// UserAgentInfo is the coarse classification of a User-Agent header.
type UserAgentInfo struct {
	IsBot  bool   `json:"is_bot"`
	Client string `json:"client"`
}

// ParseUserAgent classifies a User-Agent string. A missing user agent is
// always treated as a bot of unknown family.
func ParseUserAgent(ua string) UserAgentInfo {
	if strings.TrimSpace(ua) == "" {
		return UserAgentInfo{IsBot: true, Client: ClientUnknown}
	}
	lower := strings.ToLower(ua)

	info := UserAgentInfo{Client: ClientOther}
	for _, m := range botMarkers {
		if strings.Contains(lower, m) {
			info.IsBot = true
			break
		}
	}
	for _, family := range browserFamilies {
		if strings.Contains(lower, family) {
			info.Client = family
			break
		}
	}
	return info
}
