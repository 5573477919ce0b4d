// Package ttsutils provides the file and formatting helpers used when audio
// is written to disk and summarised for humans.
package ttsutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Common path constants.
const (
	defaultDirPermissions  = 0o750
	defaultFilePermissions = 0o640
	defaultFilename        = "output"
	dot                    = "."
	invalidCharReplacement = '_'
	reservedFilenameChars  = `<>:"/\|?*`
)

// sizeUnits are the binary units used by FormatFileSize, smallest first.
var sizeUnits = []string{"KB", "MB", "GB", "TB"}

const sizeStep = 1024

// Error message format constants.
const (
	errFmtFailedToCreateDir = "failed to create directory %s: %w"
	errFmtFailedToWriteFile = "failed to write %s: %w"
)

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		// MkdirAll is used to create parent directories as needed.
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
		}
	}

	return nil
}

// OutputPath joins dir and a sanitised "<filename>.<ext>". An empty or blank
// filename becomes "output".
func OutputPath(dir, filename, ext string) string {
	name := strings.TrimSpace(filename)
	if name == "" {
		name = defaultFilename
	}

	name = SanitizeFilename(name)
	if ext != "" {
		name += dot + strings.TrimPrefix(ext, dot)
	}

	if dir == "" {
		return name
	}

	return filepath.Join(dir, name)
}

// WriteFile writes data to path, creating the parent directory first.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != dot {
		err := EnsureDir(dir)
		if err != nil {
			return err
		}
	}

	err := os.WriteFile(path, data, defaultFilePermissions)
	if err != nil {
		return fmt.Errorf(errFmtFailedToWriteFile, path, err)
	}

	return nil
}

// FormatDuration renders seconds of audio rounded to the millisecond, for
// example "1.5s" or "2m3.25s".
func FormatDuration(seconds float64) string {
	duration := time.Duration(seconds * float64(time.Second))

	return duration.Round(time.Millisecond).String()
}

// FormatFileSize renders a byte count with one decimal in the largest binary
// unit that keeps the value at or above 1, for example "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes < sizeStep {
		return fmt.Sprintf("%d B", bytes)
	}

	value := float64(bytes) / sizeStep
	unit := 0

	for value >= sizeStep && unit < len(sizeUnits)-1 {
		value /= sizeStep
		unit++
	}

	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}

// SanitizeFilename replaces path separators, characters reserved on common
// filesystems and control characters with "_".
func SanitizeFilename(filename string) string {
	return strings.Map(func(r rune) rune {
		if r < ' ' || r == 0x7f || strings.ContainsRune(reservedFilenameChars, r) {
			return invalidCharReplacement
		}

		return r
	}, filename)
}
