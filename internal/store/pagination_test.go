package store

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	in := OrderCursor{CreatedAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), ID: 42}

	out, err := DecodeCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("Decode cursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestDecodeCursor(t *testing.T) {
	start, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("Decode empty cursor: %v", err)
	}
	if !start.CreatedAt.After(time.Now()) {
		t.Errorf("Empty cursor should start after now, got %v", start.CreatedAt)
	}

	for _, bad := range []string{"!!", "bm90LWpzb24="} {
		if _, err := DecodeCursor(bad); err == nil {
			t.Errorf("Expected error for cursor %q", bad)
		}
	}
}

func TestNewOffsetPage(t *testing.T) {
	tests := []struct {
		total, pageSize, pages int
	}{
		{0, 20, 0},
		{20, 20, 1},
		{21, 20, 2},
		{5, 2, 3},
	}
	for _, tt := range tests {
		page := newOffsetPage(nil, int64(tt.total), 1, tt.pageSize)
		if page.TotalPages != tt.pages {
			t.Errorf("total %d size %d: expected %d pages, got %d", tt.total, tt.pageSize, tt.pages, page.TotalPages)
		}
	}
}
