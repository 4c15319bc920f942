package mail

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: pagination window math
// Page 1 covers [max(1, total-14), total]; a page beyond the range is an
// empty page, never an error; every valid window spans at most 15 messages.

func TestProperty_PageWindow(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("first_page_covers_newest_messages", prop.ForAll(
		func(total uint32) bool {
			start, end, ok := pageWindow(total, 1)
			if total == 0 {
				return !ok
			}
			if !ok {
				return false
			}
			wantStart := uint32(1)
			if total > PageSize {
				wantStart = total - (PageSize - 1)
			}
			return start == wantStart && end == total
		},
		gen.UInt32Range(0, 100000),
	))

	properties.Property("window_never_exceeds_page_size", prop.ForAll(
		func(total uint32, page int) bool {
			start, end, ok := pageWindow(total, page)
			if !ok {
				return true
			}
			return start >= 1 && end >= start && end-start+1 <= PageSize
		},
		gen.UInt32Range(0, 100000),
		gen.IntRange(1, 10000),
	))

	properties.Property("page_beyond_range_is_empty_not_error", prop.ForAll(
		func(total uint32) bool {
			// First page strictly beyond the available range
			beyond := int(total/PageSize) + 2
			_, _, ok := pageWindow(total, beyond)
			return !ok
		},
		gen.UInt32Range(0, 100000),
	))

	properties.Property("consecutive_pages_tile_without_overlap", prop.ForAll(
		func(total uint32, page int) bool {
			start1, _, ok1 := pageWindow(total, page)
			_, end2, ok2 := pageWindow(total, page+1)
			if !ok1 || !ok2 {
				return true
			}
			return end2 == start1-1
		},
		gen.UInt32Range(31, 100000),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}

func TestPageWindow(t *testing.T) {
	tests := []struct {
		name      string
		total     uint32
		page      int
		wantStart uint32
		wantEnd   uint32
		wantOK    bool
	}{
		{"first page of large folder", 100, 1, 86, 100, true},
		{"second page of large folder", 100, 2, 71, 85, true},
		{"first page of small folder", 10, 1, 1, 10, true},
		{"page two of ten messages is empty", 10, 2, 0, 0, false},
		{"exactly one page", 15, 1, 1, 15, true},
		{"second page clamps start", 20, 2, 1, 5, true},
		{"empty folder", 0, 1, 0, 0, false},
		{"zero page rejected", 100, 0, 0, 0, false},
		{"negative page rejected", 100, -3, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := pageWindow(tt.total, tt.page)
			if start != tt.wantStart || end != tt.wantEnd || ok != tt.wantOK {
				t.Errorf("pageWindow(%d, %d) = (%d, %d, %v), want (%d, %d, %v)",
					tt.total, tt.page, start, end, ok, tt.wantStart, tt.wantEnd, tt.wantOK)
			}
		})
	}
}

func TestHasFlag(t *testing.T) {
	flags := []string{"\\Seen", "\\Flagged"}
	if !hasFlag(flags, "\\Seen") {
		t.Error("expected \\Seen to be present")
	}
	if hasFlag(flags, "\\Deleted") {
		t.Error("expected \\Deleted to be absent")
	}
	if hasFlag(nil, "\\Seen") {
		t.Error("expected no flags on nil slice")
	}
}
