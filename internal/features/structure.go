package features

import (
	"fmt"
	"math"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// structure is the parsed view of a URL used by the structural features.
// It is built from a normalized copy of the input; the raw input is never
// modified. ok reports whether parsing succeeded.
type structure struct {
	ok       bool
	hostname string
	path     string
}

// parseStructure normalizes raw (adding "http://" unless it already starts
// with "http") and splits it into hostname and path the way a browser URL
// parser would: credentials dropped, host mapped through UTS #46, numeric
// IPv4 hosts canonicalized, ports range-checked, dot segments removed, and
// "/" as the path of a bare host.
func parseStructure(raw string) structure {
	normalized := raw
	if !strings.HasPrefix(raw, "http") {
		normalized = "http://" + raw
	}
	normalized = stripInput(normalized)

	scheme, rest, hasScheme := splitScheme(normalized)
	if !hasScheme {
		return structure{}
	}
	if scheme != "http" && scheme != "https" {
		return parseOpaque(normalized)
	}

	rest = normalizeSpecialRest(rest)
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	authority, tail := rest[:end], rest[end:]

	// Credentials run up to the last "@" and never reach the host parser.
	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		authority = authority[at+1:]
	}

	host, ok := splitPort(authority)
	if !ok {
		return structure{}
	}
	hostname, ok := canonicalHost(host)
	if !ok {
		return structure{}
	}
	path, ok := parsePath(tail)
	if !ok {
		return structure{}
	}

	return structure{ok: true, hostname: hostname, path: path}
}

// parseOpaque handles schemes without browser host rules.
func parseOpaque(normalized string) structure {
	u, err := url.Parse(escapeStrayPercents(normalized))
	if err != nil || !validPort(u.Port()) {
		return structure{}
	}
	path := u.Opaque
	if path == "" {
		path = u.EscapedPath()
	}
	return structure{ok: true, hostname: u.Hostname(), path: path}
}

// parsePath returns the escaped, dot-segment-free path of everything that
// follows the authority.
func parsePath(tail string) (string, bool) {
	u, err := url.Parse("http://h" + escapeStrayPercents(escapeControls(tail)))
	if err != nil {
		return "", false
	}
	return removeDotSegments(u.EscapedPath()), true
}

// splitPort separates the host from an optional port. The port must be a
// decimal number no greater than 65535; an empty port is dropped.
func splitPort(hostport string) (string, bool) {
	host, port := hostport, ""
	if strings.HasPrefix(hostport, "[") {
		end := strings.IndexByte(hostport, ']')
		if end < 0 {
			return "", false
		}
		host, port = hostport[:end+1], hostport[end+1:]
		if port != "" {
			if port[0] != ':' {
				return "", false
			}
			port = port[1:]
		}
	} else if i := strings.IndexByte(hostport, ':'); i >= 0 {
		host, port = hostport[:i], hostport[i+1:]
	}
	return host, validPort(port)
}

func validPort(port string) bool {
	if port == "" {
		return true
	}
	_, err := strconv.ParseUint(port, 10, 16)
	return err == nil
}

// stripInput drops leading and trailing C0 controls and spaces, and every
// tab or newline, matching browser URL preprocessing.
func stripInput(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
}

// splitScheme returns the lower-cased scheme and everything after its colon.
func splitScheme(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			if i == 0 {
				return "", "", false
			}
			return strings.ToLower(s[:i]), s[i+1:], true
		case isAlpha(c):
		case i > 0 && (isDigit(c) || c == '+' || c == '-' || c == '.'):
		default:
			return "", "", false
		}
	}
	return "", "", false
}

// normalizeSpecialRest converts backslashes in the authority and path to
// slashes and drops every slash in front of the authority.
func normalizeSpecialRest(rest string) string {
	end := strings.IndexAny(rest, "?#")
	if end < 0 {
		end = len(rest)
	}
	head := strings.ReplaceAll(rest[:end], `\`, "/")
	return strings.TrimLeft(head, "/") + rest[end:]
}

// escapeStrayPercents encodes "%" signs not followed by two hex digits so
// that net/url accepts what browsers leave untouched.
func escapeStrayPercents(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// escapeControls percent-encodes C0 controls and DEL, which net/url refuses
// and browsers encode in paths.
func escapeControls(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return r < 0x20 || r == 0x7f }) < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c == 0x7f {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// percentDecode decodes valid %XX sequences and keeps everything else.
func percentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b = append(b, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		b = append(b, s[i])
	}
	return string(b)
}

const forbiddenHostChars = " #/:<>?@[\\]^|%"

// hostProfile maps hosts the way browsers do: UTS #46 non-transitional
// processing without STD3 or hyphen checks.
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.Transitional(false),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
)

// canonicalHost returns the browser-visible hostname of a special URL.
func canonicalHost(host string) (string, bool) {
	if host == "" {
		return "", false
	}

	if strings.HasPrefix(host, "[") {
		if !strings.HasSuffix(host, "]") {
			return "", false
		}
		return parseIPv6(host[1 : len(host)-1])
	}

	domain := strings.ToValidUTF8(percentDecode(host), "\uFFFD")
	ascii, err := hostProfile.ToASCII(domain)
	if err != nil || ascii == "" {
		return "", false
	}

	if strings.ContainsAny(ascii, forbiddenHostChars) {
		return "", false
	}
	for i := 0; i < len(ascii); i++ {
		if ascii[i] < 0x20 || ascii[i] == 0x7f {
			return "", false
		}
	}

	if endsInNumber(ascii) {
		return parseIPv4(ascii)
	}

	return ascii, true
}

// parseIPv6 validates a bracketed IPv6 literal and serializes it with the
// longest run of two or more zero pieces compressed.
func parseIPv6(s string) (string, bool) {
	if strings.Contains(s, "%") {
		return "", false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is6() {
		return "", false
	}

	b := addr.As16()
	var pieces [8]uint16
	for i := range pieces {
		pieces[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}

	start, length := -1, 1
	for i := 0; i < len(pieces); {
		if pieces[i] != 0 {
			i++
			continue
		}
		j := i
		for j < len(pieces) && pieces[j] == 0 {
			j++
		}
		if j-i > length {
			start, length = i, j-i
		}
		i = j
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i, piece := range pieces {
		if start >= 0 && i >= start && i < start+length {
			if i == start {
				if i == 0 {
					sb.WriteString("::")
				} else {
					sb.WriteByte(':')
				}
			}
			continue
		}
		sb.WriteString(strconv.FormatUint(uint64(piece), 16))
		if i != len(pieces)-1 {
			sb.WriteByte(':')
		}
	}
	sb.WriteByte(']')
	return sb.String(), true
}

// endsInNumber reports whether the last label of host looks numeric, in
// which case the whole host must parse as an IPv4 address.
func endsInNumber(host string) bool {
	labels := strings.Split(host, ".")
	if labels[len(labels)-1] == "" {
		if len(labels) == 1 {
			return false
		}
		labels = labels[:len(labels)-1]
	}
	last := labels[len(labels)-1]
	if last != "" && strings.Trim(last, "0123456789") == "" {
		return true
	}
	_, ok := parseIPv4Part(last)
	return ok
}

// parseIPv4 accepts the loose IPv4 forms browsers accept (hex, octal, fewer
// than four parts) and serializes them as dotted decimal.
func parseIPv4(host string) (string, bool) {
	parts := strings.Split(host, ".")
	if parts[len(parts)-1] == "" && len(parts) > 1 {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 4 {
		return "", false
	}

	numbers := make([]uint64, len(parts))
	for i, part := range parts {
		n, ok := parseIPv4Part(part)
		if !ok {
			return "", false
		}
		numbers[i] = n
	}

	for _, n := range numbers[:len(numbers)-1] {
		if n > 255 {
			return "", false
		}
	}
	last := numbers[len(numbers)-1]
	if float64(last) >= math.Pow(256, float64(5-len(numbers))) {
		return "", false
	}

	ipv4 := last
	for i, n := range numbers[:len(numbers)-1] {
		ipv4 += n << (8 * uint(3-i))
	}

	octets := make([]string, 4)
	for i := 3; i >= 0; i-- {
		octets[i] = strconv.FormatUint(ipv4%256, 10)
		ipv4 /= 256
	}
	return strings.Join(octets, "."), true
}

func parseIPv4Part(part string) (uint64, bool) {
	if part == "" {
		return 0, false
	}
	base := 10
	switch {
	case len(part) >= 2 && (part[:2] == "0x" || part[:2] == "0X"):
		part = part[2:]
		base = 16
	case len(part) >= 2 && part[0] == '0':
		part = part[1:]
		base = 8
	}
	if part == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(part, base, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// removeDotSegments resolves "." and ".." path segments (including their
// percent-encoded forms) while keeping empty segments intact.
func removeDotSegments(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	out := make([]string, 0, len(segments))
	for i, seg := range segments {
		last := i == len(segments)-1
		switch {
		case isDoubleDot(seg):
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			if last {
				out = append(out, "")
			}
		case isSingleDot(seg):
			if last {
				out = append(out, "")
			}
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/")
}

func isSingleDot(seg string) bool {
	return seg == "." || strings.EqualFold(seg, "%2e")
}

func isDoubleDot(seg string) bool {
	switch strings.ToLower(seg) {
	case "..", ".%2e", "%2e.", "%2e%2e":
		return true
	}
	return false
}

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isHex(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case isDigit(c):
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
