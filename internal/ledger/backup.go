package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"billetera/internal/core"
)

// BackupVersion is written into every exported backup.
const BackupVersion = 1

var (
	ErrInvalidBackup = errors.New("invalid backup")
	ErrMissingState  = errors.New("backup has no state")
)

// Backup is the portable export format.
type Backup struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	State      core.LedgerState `json:"state"`
}

// Export wraps the ledger in a versioned backup document.
func Export(s core.LedgerState, now time.Time) ([]byte, error) {
	s, _ = Normalize(s)
	b := Backup{Version: BackupVersion, ExportedAt: now.UTC(), State: s}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export backup: %w", err)
	}
	return data, nil
}

// Import reads a backup document. The embedded state goes through Decode,
// so backups written by older versions are migrated on the way in.
func Import(data []byte) (core.LedgerState, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return core.DefaultState(), fmt.Errorf("import backup: %w", errors.Join(ErrInvalidBackup, err))
	}
	if envelope == nil {
		return core.DefaultState(), fmt.Errorf("import backup: %w", ErrInvalidBackup)
	}
	raw, ok := envelope["state"]
	if !ok || string(raw) == "null" {
		return core.DefaultState(), fmt.Errorf("import backup: %w", ErrMissingState)
	}
	s, _, err := Decode(raw)
	if err != nil {
		return core.DefaultState(), fmt.Errorf("import backup: %w", errors.Join(ErrInvalidBackup, err))
	}
	return s, nil
}
