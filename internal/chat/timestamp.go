package chat

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	clockPattern   = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::(\d{2}))?`)
	decimalPattern = regexp.MustCompile(`(\d{1,2})\.(\d{2})\b`)

	minuteSecondPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*(?:minutes?|mins?)\s+(?:and\s+)?(\d+)\s*(?:seconds?|secs?|s)\b`),
		regexp.MustCompile(`(\d+)\s*(?:minutes?|mins?)\s+(\d+)`),
	}

	secondPatterns = []*regexp.Regexp{
		regexp.MustCompile(`explain\s+(\d+)\s*(?:seconds?|secs?|s)\b`),
		regexp.MustCompile(`(?:at|in|what\s+happened\s+in|what\s+happened\s+at|what\s+happens?\s+in|what\s+happens?\s+at|what|whats|what's)\s+(\d+)\s*(?:seconds?|secs?|s)\b`),
		regexp.MustCompile(`(\d+)\s*(?:seconds?|secs?|s)\b`),
	}

	leadingNumber = regexp.MustCompile(`^(\d+)(?:\s|$)`)
)

const (
	maxBareNumber      = 600
	maxBareNumberWords = 5
)

// ParseTimestamp finds a video time, in seconds, mentioned in a chat
// message. Forms are tried in order: H:MM:SS or M:SS, M.SS, "N minutes
// [and] M seconds", "N seconds" phrases (only when minutes are not
// mentioned), and finally a bare leading number in a short message.
func ParseTimestamp(msg string) (float64, bool) {
	if m := clockPattern.FindStringSubmatch(msg); m != nil {
		a, b := atoi(m[1]), atoi(m[2])
		if m[3] != "" {
			return float64(a*3600 + b*60 + atoi(m[3])), true
		}
		return float64(a*60 + b), true
	}

	if m := decimalPattern.FindStringSubmatch(msg); m != nil {
		if sec := atoi(m[2]); sec < 60 {
			return float64(atoi(m[1])*60 + sec), true
		}
	}

	lower := strings.ToLower(msg)
	for _, re := range minuteSecondPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			if sec := atoi(m[2]); sec < 60 {
				return float64(atoi(m[1])*60 + sec), true
			}
		}
	}

	if !strings.Contains(lower, "min") {
		for _, re := range secondPatterns {
			if m := re.FindStringSubmatch(lower); m != nil {
				return float64(atoi(m[1])), true
			}
		}
	}

	if len(strings.Fields(msg)) <= maxBareNumberWords && !strings.ContainsAny(msg, ":.") {
		if m := leadingNumber.FindStringSubmatch(msg); m != nil {
			if n := atoi(m[1]); n < maxBareNumber {
				return float64(n), true
			}
		}
	}

	return 0, false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
