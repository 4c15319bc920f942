package mail

import (
	"errors"
	"fmt"

	"github.com/emersion/go-imap"
)

var (
	// ErrUnknownFlag indicates an unsupported flag name
	ErrUnknownFlag = errors.New("unknown flag")
)

// flagByName maps the API-level flag names to IMAP system flags
var flagByName = map[string]string{
	"seen":    imap.SeenFlag,
	"flagged": imap.FlaggedFlag,
}

// FlagName resolves an API-level flag name to its IMAP system flag
func FlagName(name string) (string, error) {
	flag, ok := flagByName[name]
	if !ok {
		return "", ErrUnknownFlag
	}
	return flag, nil
}

// SetFlag sets or clears a flag on one message. The store operation is
// idempotent: re-adding a present flag or re-removing an absent one is a
// no-op success on the server side.
func (s *Session) SetFlag(folderPath string, uid uint32, flagName string, present bool) error {
	flag, err := FlagName(flagName)
	if err != nil {
		return err
	}

	if _, _, err := s.selectWithInboxFallback(folderPath, false); err != nil {
		return err
	}

	return s.storeUIDFlag(uid, flag, present)
}

// storeFlag selects the folder and updates a raw IMAP flag on one message
func (s *Session) storeFlag(folderPath string, uid uint32, flag string, present bool) error {
	if _, err := s.selectFolder(folderPath, false); err != nil {
		return err
	}
	return s.storeUIDFlag(uid, flag, present)
}

// flagsOp picks the store operation for setting or clearing a flag
func flagsOp(present bool) imap.FlagsOp {
	if present {
		return imap.AddFlags
	}
	return imap.RemoveFlags
}

func (s *Session) storeUIDFlag(uid uint32, flag string, present bool) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(flagsOp(present), true)
	flags := []interface{}{flag}

	if err := s.client.UidStore(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("store flags failed: %w", err)
	}
	return nil
}
