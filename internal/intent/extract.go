package intent

import (
	"regexp"
	"strings"
)

var fencedPayload = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// ExtractPayload finds the structured block of a model reply: a fenced
// ```json block when present, otherwise the first balanced {...} span.
func ExtractPayload(reply string) (string, bool) {
	if !strings.Contains(reply, "{") || !strings.Contains(reply, "}") {
		return "", false
	}
	if m := fencedPayload.FindStringSubmatch(reply); m != nil {
		return m[1], true
	}
	return balancedObject(reply)
}

// balancedObject returns the first brace-balanced span, ignoring braces inside JSON strings.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

var smallTalk = regexp.MustCompile(`(?i)^(سلام|درود|صبح بخیر|ظهر بخیر|عصر بخیر|خب|خوبی|چطوری|چیه|چطوره|هی|بله|نه|ممنون|متشکرم|عالی|خوب|بد|بدون|خداحافظ|hello|hi|hey|thanks|thank you|how are you|good morning|good evening|bye|yes|no|ok)(?:$|[\s,.!?،؟😊🙏])`)

// IsSmallTalk reports whether the message opens with a greeting or a courtesy word.
// The word must end there, so "نهار" does not count as "نه".
func IsSmallTalk(message string) bool {
	return smallTalk.MatchString(strings.TrimSpace(message))
}

var inlineObject = regexp.MustCompile(`\{[^}]*\}`)

// actionlessText picks what to show when a payload decodes without an action:
// a long enough description, else the reply without its braces blocks, else the reply.
func actionlessText(description, reply string) string {
	if d := strings.TrimSpace(description); len([]rune(d)) > 10 {
		return d
	}
	if rest := strings.TrimSpace(inlineObject.ReplaceAllString(reply, "")); len([]rune(rest)) > 20 {
		return rest
	}
	return reply
}
