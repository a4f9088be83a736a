package classifier

import "github.com/urlguard/urlguard/internal/features"

// rule is one entry of the scoring table. Rules are evaluated in order and
// each one that matches adds its weight and, when set, its warning.
type rule struct {
	name    string
	weight  int
	warning string
	match   func(f features.Features) bool
}

// Warning messages, in the order their rules are evaluated.
const (
	WarnIPAddress      = "URL uses IP address instead of domain name"
	WarnShortener      = "URL uses a URL shortening service"
	WarnKeywords       = "URL contains suspicious keywords"
	WarnAtSymbol       = "URL contains @ symbol (potential redirect)"
	WarnAbnormal       = "Abnormal URL structure detected"
	WarnLongURL        = "Unusually long URL"
	WarnEncodedChars   = "Multiple encoded characters detected"
	WarnHyphens        = "Excessive hyphens in URL"
	WarnDeepDirectory  = "Deep directory structure"
	WarnEmbeddedDomain = "Embedded domain detected"
)

// rules is the ordered scoring table. Thresholds and weights are fixed
// heuristic values.
var rules = []rule{
	{"use_of_ip", 25, WarnIPAddress, func(f features.Features) bool { return f.UseOfIP == 1 }},
	{"short_url", 15, WarnShortener, func(f features.Features) bool { return f.ShortURL == 1 }},
	{"sus_url", 20, WarnKeywords, func(f features.Features) bool { return f.SusURL == 1 }},
	{"count_at", 20, WarnAtSymbol, func(f features.Features) bool { return f.CountAt > 0 }},
	{"abnormal_url", 15, WarnAbnormal, func(f features.Features) bool { return f.AbnormalURL == 1 }},
	{"url_length", 10, WarnLongURL, func(f features.Features) bool { return f.URLLength > 75 }},
	{"count_percent", 10, WarnEncodedChars, func(f features.Features) bool { return f.CountPercent > 2 }},
	{"count_hyphen", 8, WarnHyphens, func(f features.Features) bool { return f.CountHyphen > 4 }},
	{"count_dir", 8, WarnDeepDirectory, func(f features.Features) bool { return f.CountDir > 5 }},
	{"embed_domain", 15, WarnEmbeddedDomain, func(f features.Features) bool { return f.CountEmbedDomain > 0 }},
	{"single_https", -5, "", func(f features.Features) bool { return f.CountHTTPS > 0 && f.CountHTTP == 1 }},
	{"hostname_length", -3, "", func(f features.Features) bool { return f.HostnameLength > 5 && f.HostnameLength < 30 }},
}

// score applies every rule and returns the unclamped score, the warnings
// in rule order, and the names of the rules that matched.
func score(f features.Features) (int, []string, []string) {
	total := 0
	warnings := make([]string, 0, len(rules))
	var matched []string
	for _, r := range rules {
		if !r.match(f) {
			continue
		}
		total += r.weight
		matched = append(matched, r.name)
		if r.warning != "" {
			warnings = append(warnings, r.warning)
		}
	}
	return total, warnings, matched
}
