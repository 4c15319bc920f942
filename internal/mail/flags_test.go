package mail

import (
	"errors"
	"testing"

	"github.com/emersion/go-imap"
)

func TestFlagName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"seen maps to system flag", "seen", imap.SeenFlag, false},
		{"flagged maps to system flag", "flagged", imap.FlaggedFlag, false},
		{"unknown flag rejected", "pinned", "", true},
		{"empty flag rejected", "", "", true},
		{"case sensitive", "Seen", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlagName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFlag) {
					t.Errorf("FlagName(%q) error = %v, want ErrUnknownFlag", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FlagName(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("FlagName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFlagsOpStoreItem(t *testing.T) {
	// Setting adds, clearing removes; both stores are silent so the server
	// does not echo untagged FETCH responses back.
	if got := imap.FormatFlagsOp(flagsOp(true), true); got != imap.StoreItem("+FLAGS.SILENT") {
		t.Errorf("set store item = %q", got)
	}
	if got := imap.FormatFlagsOp(flagsOp(false), true); got != imap.StoreItem("-FLAGS.SILENT") {
		t.Errorf("clear store item = %q", got)
	}
}
