package booking

import (
	"strings"
	"testing"
)

func TestNewOrderCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewOrderCode(EventOrderPrefix)
		if !strings.HasPrefix(code, "TK") {
			t.Fatalf("missing prefix: %s", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code %s", code)
		}
		seen[code] = true
	}
}

func TestNewLinkCode(t *testing.T) {
	code := NewLinkCode()
	if len(code) != len("LNK-")+6 || !strings.HasPrefix(code, "LNK-") {
		t.Fatalf("unexpected link code %s", code)
	}
	if strings.ContainsAny(code[4:], "01IO") {
		t.Fatalf("ambiguous characters in %s", code)
	}
}

func TestNewSlug(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"Jazz Night", "jazz-night-"},
		{"  Rock!!  & Roll ", "rock-roll-"},
		{"Концерт в парке", "концерт-в-парке-"},
		{"***", ""},
	}
	for _, tt := range tests {
		slug := NewSlug(tt.name)
		if !strings.HasPrefix(slug, tt.prefix) {
			t.Errorf("NewSlug(%q) = %q, want prefix %q", tt.name, slug, tt.prefix)
		}
		if len(slug) != len(tt.prefix)+6 {
			t.Errorf("NewSlug(%q) = %q, unexpected suffix length", tt.name, slug)
		}
	}
}
