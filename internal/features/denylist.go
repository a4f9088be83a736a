package features

import (
	"regexp"
	"strings"
)

// shortenerDomains lists URL-shortening services. Matching is a
// case-insensitive substring test over the raw input, so "t.co" also
// matches inside longer hosts.
var shortenerDomains = []string{
	"bit.ly", "goo.gl", "shorte.st", "go2l.ink", "x.co", "ow.ly", "t.co",
	"tinyurl", "tr.im", "is.gd", "cli.gs", "yfrog.com", "migre.me", "ff.im",
	"tiny.cc", "url4.eu", "twit.ac", "su.pr", "twurl.nl", "snipurl.com",
	"short.to", "BudURL.com", "ping.fm", "post.ly", "Just.as", "bkite.com",
	"snipr.com", "fic.kr", "loopt.us", "doiop.com", "short.ie", "kl.am",
	"wp.me", "rubyurl.com", "om.ly", "to.ly", "bit.do", "lnkd.in", "db.tt",
	"qr.ae", "adf.ly", "bitly.com", "cur.lv", "tinyurl.com", "ity.im",
	"q.gs", "po.st", "bc.vc", "twitthis.com", "u.to", "j.mp", "buzurl.com",
	"cutt.us", "u.bb", "yourls.org", "prettylinkpro.com", "scrnch.me",
	"filoops.info", "vzturl.com", "qr.net", "1url.com", "tweez.me", "v.gd",
	"link.zip.net",
}

// suspiciousKeywords are words commonly found in credential-harvesting URLs.
var suspiciousKeywords = []string{
	"PayPal", "login", "signin", "bank", "account", "update", "free",
	"lucky", "service", "bonus", "ebayisapi", "webscr", "secure", "verify",
	"password", "credential",
}

var (
	shortenerPattern = compileTerms(shortenerDomains)
	keywordPattern   = compileTerms(suspiciousKeywords)
)

// compileTerms builds a case-insensitive alternation of literal terms.
func compileTerms(terms []string) *regexp.Regexp {
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(term)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}
