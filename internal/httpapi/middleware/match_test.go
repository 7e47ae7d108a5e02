package middleware

import "testing"

func TestMatchesAny(t *testing.T) {
	cases := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"exact hit", []string{"/api/chat"}, "/api/chat", true},
		{"exact miss", []string{"/api/chat"}, "/api/vector-search", false},
		{"other endpoint not in scope", []string{"/api/vector-search"}, "/api/chat", false},
		{"prefix hit", []string{"/api/*"}, "/api/chat", true},
		{"prefix matches base", []string{"/api/*"}, "/api", true},
		{"prefix miss", []string{"/api/*"}, "/ping", false},
		{"prefix no partial segment", []string{"/api/*"}, "/apiary", false},
		{"bare star suffix", []string{"/api/ch*"}, "/api/chat", true},
		{"empty list matches all", nil, "/anything", true},
		{"negation only excludes named", []string{"!/ping"}, "/ping", false},
		{"negation only includes rest", []string{"!/ping"}, "/api/chat", true},
		{"negation beats positive", []string{"/api/*", "!/api/internal"}, "/api/internal", false},
		{"negation with positive hit", []string{"/api/*", "!/api/internal"}, "/api/chat", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchesAny(tc.patterns, tc.path); got != tc.want {
				t.Fatalf("MatchesAny(%v, %q) = %v, want %v", tc.patterns, tc.path, got, tc.want)
			}
		})
	}
}
