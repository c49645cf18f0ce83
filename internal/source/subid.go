package source

import (
	"regexp"
	"strings"
)

// Campaign naming carries the sub-id in a handful of loose conventions:
//
//	"Beauty TH | sub id: july_promo"
//	"campaign_july_promo | lookalike 1%"
//	"july_promo_campaign - broad"
//	"Sales TH july_promo"
//
// The patterns are tried in order and the first hit wins.
var subIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sub\s*id\s*[:=]\s*([A-Za-z0-9][A-Za-z0-9_-]*)`),
	regexp.MustCompile(`(?i)campaign[_\s]+([A-Za-z0-9][A-Za-z0-9_-]*)`),
	regexp.MustCompile(`(?i)([A-Za-z0-9][A-Za-z0-9_-]*)[_\s]+campaign`),
	regexp.MustCompile(`([A-Za-z0-9]+(?:_[A-Za-z0-9]+)+)\s*$`),
}

// InferSubID extracts a sub-id from free-text campaign/ad-set/ad naming.
// Returns "" when no pattern matches; attribution downstream treats that as
// unattributable spend, not an error.
func InferSubID(nameBlob string) string {
	s := strings.TrimSpace(nameBlob)
	if s == "" {
		return ""
	}
	for _, re := range subIDPatterns {
		m := re.FindStringSubmatch(s)
		if len(m) < 2 {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if candidate == "" || isNoiseToken(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

// isNoiseToken filters tokens that pattern-match but are never real sub-ids.
func isNoiseToken(s string) bool {
	switch strings.ToLower(s) {
	case "test", "n/a", "na", "null", "none", "undefined", "new", "copy":
		return true
	}
	return false
}
