package middleware

import "strings"

// MatchesAny reports whether path falls inside a middleware's declared scope.
//
// Pattern forms:
//   - exact:    "/api/chat"
//   - prefix:   "/api/*" (also matches "/api" itself)
//   - negation: "!/terms-of-service" excludes the path even when a positive
//     pattern matches; a pattern list of only negations means "everything
//     except these".
//
// An empty pattern list matches everything.
func MatchesAny(patterns []string, path string) bool {
	hasPositive := false
	positiveHit := false
	for _, p := range patterns {
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			if matchOne(neg, path) {
				return false
			}
			continue
		}
		hasPositive = true
		if matchOne(p, path) {
			positiveHit = true
		}
	}
	if !hasPositive {
		return true
	}
	return positiveHit
}

func matchOne(pattern, path string) bool {
	if base, ok := strings.CutSuffix(pattern, "/*"); ok {
		return path == base || strings.HasPrefix(path, base+"/")
	}
	if base, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(path, base)
	}
	return path == pattern
}
