package response

import (
	"regexp"
	"strings"
)

type sanitizeRule struct {
	match       *regexp.Regexp
	replacement string
}

// Rules are checked in order; SQL keywords are checked last and win.
var sanitizeRules = []sanitizeRule{
	{regexp.MustCompile(`(?i)database|connection|pgx|postgres|redis`), "Service temporarily unavailable"},
	{regexp.MustCompile(`(?i)file|path|\.go:\d+`), "Request could not be processed"},
	{regexp.MustCompile(`(?i)traceback|stack|goroutine|panic`), "Internal server error occurred"},
	{regexp.MustCompile(`(?i)secret|\bkey\b|token signature`), "Authentication error occurred"},
	{regexp.MustCompile(`(?i)password|hash`), "Authentication failed"},
	{regexp.MustCompile(`(?i)\b(select|union|drop|delete from|update \w+ set|insert into)\b`), "Request validation failed"},
}

// Sanitize replaces a message that may leak internals with a generic phrase.
func Sanitize(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "An error occurred"
	}
	out := msg
	for _, r := range sanitizeRules {
		if r.match.MatchString(msg) {
			out = r.replacement
		}
	}
	return out
}
