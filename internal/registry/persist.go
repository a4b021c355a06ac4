package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrStateCorrupt is returned when both the primary state file and its
// backup exist but neither can be parsed. Startup maps this onto exit
// code 2.
var ErrStateCorrupt = errors.New("persistent state corrupt")

// ErrStateUnreadable is returned when the primary file cannot be parsed
// and no backup exists. Callers start empty and log at critical level;
// the worst case is one duplicate buy, which the executor can refuse.
var ErrStateUnreadable = errors.New("persistent state unreadable")

// writeFileAtomic writes data via a sibling temp file, fsyncs it, moves
// the previous content to path.bak, then renames the temp file over
// path. A reader observes either the old content or the new content,
// never a truncated file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			return fmt.Errorf("rotate backup: %w", err)
		}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// readJSONWithBackup reads and parses path into v; on failure it tries
// path.bak. Missing files return os.ErrNotExist. Two present but
// unparseable files return ErrStateCorrupt.
func readJSONWithBackup(path string, v interface{}) error {
	primaryData, primaryErr := os.ReadFile(path)
	if primaryErr == nil {
		if err := json.Unmarshal(primaryData, v); err == nil {
			return nil
		}
	} else if !os.IsNotExist(primaryErr) {
		return fmt.Errorf("read %s: %w", path, primaryErr)
	}

	backupData, backupErr := os.ReadFile(path + ".bak")
	if backupErr == nil {
		if err := json.Unmarshal(backupData, v); err == nil {
			return nil
		}
		if primaryErr == nil {
			// Both files exist, neither parses.
			return fmt.Errorf("%w: %s and backup both unreadable", ErrStateCorrupt, path)
		}
		return fmt.Errorf("%w: backup for %s", ErrStateUnreadable, path)
	}

	if primaryErr == nil {
		// Primary exists but does not parse, and there is no backup.
		return fmt.Errorf("%w: %s, no backup", ErrStateUnreadable, path)
	}
	return os.ErrNotExist
}
