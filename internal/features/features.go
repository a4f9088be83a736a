// Package features extracts the lexical and structural URL features used by
// the threat classifier.
//
// Extraction is a total function: it never fails. Character and substring
// counts are taken over the raw input exactly as given, while hostname and
// path features come from a normalized, parsed copy. When that parse fails
// the structural features fall back to fixed defaults.
package features

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Features is the fixed-shape feature record of one URL.
// Flag fields are 0 or 1; every other field is a non-negative count or length.
type Features struct {
	UseOfIP          int `json:"useOfIp"`
	AbnormalURL      int `json:"abnormalUrl"`
	CountDot         int `json:"countDot"`
	CountWWW         int `json:"countWww"`
	CountAt          int `json:"countAt"`
	CountDir         int `json:"countDir"`
	CountEmbedDomain int `json:"countEmbedDomain"`
	ShortURL         int `json:"shortUrl"`
	CountHTTPS       int `json:"countHttps"`
	CountHTTP        int `json:"countHttp"`
	CountPercent     int `json:"countPercent"`
	CountQuestion    int `json:"countQuestion"`
	CountHyphen      int `json:"countHyphen"`
	CountEqual       int `json:"countEqual"`
	URLLength        int `json:"urlLength"`
	HostnameLength   int `json:"hostnameLength"`
	SusURL           int `json:"susUrl"`
	FDLength         int `json:"fdLength"`
	TLDLength        int `json:"tldLength"`
	CountDigits      int `json:"countDigits"`
	CountLetters     int `json:"countLetters"`
}

var (
	ipv4Pattern   = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	wwwPattern    = regexp.MustCompile(`(?i)www`)
	httpsPattern  = regexp.MustCompile(`(?i)https`)
	httpPattern   = regexp.MustCompile(`(?i)http`)
	digitPattern  = regexp.MustCompile(`\d`)
	letterPattern = regexp.MustCompile(`[a-zA-Z]`)
)

// Extract computes the feature record for raw.
func Extract(raw string) Features {
	s := parseStructure(raw)

	return Features{
		UseOfIP:          flag(ipv4Pattern.MatchString(raw)),
		AbnormalURL:      abnormalURL(raw, s),
		CountDot:         strings.Count(raw, "."),
		CountWWW:         countMatches(wwwPattern, raw),
		CountAt:          strings.Count(raw, "@"),
		CountDir:         countDir(s),
		CountEmbedDomain: countEmbedDomain(s),
		ShortURL:         flag(shortenerPattern.MatchString(raw)),
		CountHTTPS:       countMatches(httpsPattern, raw),
		CountHTTP:        countMatches(httpPattern, raw),
		CountPercent:     strings.Count(raw, "%"),
		CountQuestion:    strings.Count(raw, "?"),
		CountHyphen:      strings.Count(raw, "-"),
		CountEqual:       strings.Count(raw, "="),
		URLLength:        length(raw),
		HostnameLength:   hostnameLength(raw, s),
		SusURL:           flag(keywordPattern.MatchString(raw)),
		FDLength:         fdLength(s),
		TLDLength:        tldLength(s),
		CountDigits:      countMatches(digitPattern, raw),
		CountLetters:     countMatches(letterPattern, raw),
	}
}

// abnormalURL flags URLs whose parsed hostname does not appear verbatim in
// the raw text. A failed parse counts as abnormal.
func abnormalURL(raw string, s structure) int {
	if !s.ok {
		return 1
	}
	return flag(!strings.Contains(raw, s.hostname))
}

func countDir(s structure) int {
	if !s.ok {
		return 0
	}
	return strings.Count(s.path, "/")
}

func countEmbedDomain(s structure) int {
	if !s.ok {
		return 0
	}
	return strings.Count(s.path, "//")
}

func hostnameLength(raw string, s structure) int {
	if !s.ok {
		return length(raw)
	}
	return length(s.hostname)
}

// fdLength is the length of the first non-empty path segment.
func fdLength(s structure) int {
	if !s.ok {
		return 0
	}
	for _, seg := range strings.Split(s.path, "/") {
		if seg != "" {
			return length(seg)
		}
	}
	return 0
}

// tldLength is the length of the last dot-delimited hostname label.
func tldLength(s structure) int {
	if !s.ok {
		return 0
	}
	labels := strings.Split(s.hostname, ".")
	return length(labels[len(labels)-1])
}

func countMatches(re *regexp.Regexp, s string) int {
	return len(re.FindAllStringIndex(s, -1))
}

// length counts characters, not bytes.
func length(s string) int {
	return utf8.RuneCountInString(s)
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Map returns the record keyed by wire name.
func (f Features) Map() map[string]int {
	return map[string]int{
		"useOfIp":          f.UseOfIP,
		"abnormalUrl":      f.AbnormalURL,
		"countDot":         f.CountDot,
		"countWww":         f.CountWWW,
		"countAt":          f.CountAt,
		"countDir":         f.CountDir,
		"countEmbedDomain": f.CountEmbedDomain,
		"shortUrl":         f.ShortURL,
		"countHttps":       f.CountHTTPS,
		"countHttp":        f.CountHTTP,
		"countPercent":     f.CountPercent,
		"countQuestion":    f.CountQuestion,
		"countHyphen":      f.CountHyphen,
		"countEqual":       f.CountEqual,
		"urlLength":        f.URLLength,
		"hostnameLength":   f.HostnameLength,
		"susUrl":           f.SusURL,
		"fdLength":         f.FDLength,
		"tldLength":        f.TLDLength,
		"countDigits":      f.CountDigits,
		"countLetters":     f.CountLetters,
	}
}

// Names lists the feature wire names in record order.
func Names() []string {
	return []string{
		"useOfIp", "abnormalUrl", "countDot", "countWww", "countAt",
		"countDir", "countEmbedDomain", "shortUrl", "countHttps", "countHttp",
		"countPercent", "countQuestion", "countHyphen", "countEqual",
		"urlLength", "hostnameLength", "susUrl", "fdLength", "tldLength",
		"countDigits", "countLetters",
	}
}
