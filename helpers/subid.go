package helpers

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	subIDPrefixLen = 8
	subIDSuffixLen = 6
	subIDDelimiter = "_"
	subIDAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	subIDPattern   = regexp.MustCompile(`^[A-Za-z0-9]+_[A-Za-z0-9]+(?:_[A-Za-z0-9]+)?$`)
	fieldSeparator = regexp.MustCompile(`[&|;,\s]+`)
	tokenSeparator = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

func randomChars(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = subIDAlphabet[rand.IntN(len(subIDAlphabet))]
	}
	return string(b)
}

func alnumOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isAlnum(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// MemberPrefix is the member fragment embedded in every SubID.
func MemberPrefix(memberID string) string {
	p := alnumOnly(memberID)
	if len(p) > subIDPrefixLen {
		p = p[:subIDPrefixLen]
	}
	if p == "" {
		p = "x"
	}
	return p
}

// EncodeSubID builds <memberPrefix>_<base36 millis>_<random>. Only
// [A-Za-z0-9_] is emitted so networks echo it back unchanged.
func EncodeSubID(memberID string, now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	return MemberPrefix(memberID) + subIDDelimiter + ts + subIDDelimiter + randomChars(subIDSuffixLen)
}

// DecodeSubIDPrefix returns the leading member fragment of a SubID. The
// result is only a hint: short prefixes can collide across members.
func DecodeSubIDPrefix(subID string) (string, bool) {
	s := strings.TrimSpace(subID)
	end := 0
	for end < len(s) && isAlnum(rune(s[end])) {
		end++
	}
	if end == 0 {
		return "", false
	}
	run := s[:end]
	if len(run) > subIDPrefixLen {
		run = run[:subIDPrefixLen]
	}
	return run, true
}

// ExtractSubID pulls a SubID candidate out of a raw tracking field, which
// networks often wrap in query strings or pipe separated values.
func ExtractSubID(trackingID string) (string, bool) {
	s := strings.TrimSpace(trackingID)
	if s == "" {
		return "", false
	}
	for _, field := range fieldSeparator.Split(s, -1) {
		// In key=value pairs only the value can carry the SubID.
		if _, value, ok := strings.Cut(field, "="); ok {
			field = value
		}
		for _, token := range tokenSeparator.Split(field, -1) {
			if subIDPattern.MatchString(token) {
				return token, true
			}
		}
	}
	return s, true
}
