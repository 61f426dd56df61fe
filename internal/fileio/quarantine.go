package fileio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const QuarantineDir = "quarantine"

// Quarantine moves a corrupted file into baseDir/quarantine and returns its new path.
func Quarantine(baseDir, filePath string) (string, error) {
	quarantineDir := filepath.Join(baseDir, QuarantineDir)
	if err := os.MkdirAll(quarantineDir, 0755); err != nil {
		return "", fmt.Errorf("create quarantine dir: %w", err)
	}

	baseName := filepath.Base(filePath)
	timestamp := time.Now().Format("20060102T150405.000")
	quarantinePath := filepath.Join(quarantineDir, fmt.Sprintf("%s.%s.corrupt", baseName, timestamp))

	if err := os.Rename(filePath, quarantinePath); err != nil {
		return "", fmt.Errorf("move to quarantine: %w", err)
	}
	return quarantinePath, nil
}

// RestoreFromBackup replaces filePath with filePath+".bak" if the backup validates.
func RestoreFromBackup(filePath string, validate Validator) error {
	bakPath := filePath + ".bak"
	content, err := os.ReadFile(bakPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no backup file: %s", bakPath)
		}
		return fmt.Errorf("read backup: %w", err)
	}

	if validate != nil {
		if err := validate(content); err != nil {
			return fmt.Errorf("backup is also corrupted: %w", err)
		}
	}

	if err := AtomicWriteRaw(filePath, content, nil); err != nil {
		return fmt.Errorf("restore from backup: %w", err)
	}
	return nil
}

// RecoverCorruptedFile quarantines filePath and restores the last good backup when one
// exists. restored is false when no usable backup was found; the file is then absent.
func RecoverCorruptedFile(baseDir, filePath string, validate Validator) (quarantined string, restored bool, err error) {
	quarantined, err = Quarantine(baseDir, filePath)
	if err != nil {
		return "", false, fmt.Errorf("quarantine failed: %w", err)
	}
	if err := RestoreFromBackup(filePath, validate); err != nil {
		return quarantined, false, nil
	}
	return quarantined, true, nil
}
