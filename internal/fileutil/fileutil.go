package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// CreateDir creates the directory and any missing parents. It is a no-op if
// the directory already exists.
func CreateDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", path, err)
	}
	return nil
}

// Radar file names carry their timestamp as YYYY_MM_DD_HHMM, e.g.
// RDLi_SEAB_2018_06_01_1300.ruv or totals_MARA_2018_06_01_1300.mat.
var filenameTimeRE = regexp.MustCompile(`(\d{4}_\d{2}_\d{2}_\d{4})`)

const filenameTimeLayout = "2006_01_02_1504"

// ErrNoTimestamp is returned when a file name carries no timestamp.
var ErrNoTimestamp = errors.New("no YYYY_MM_DD_HHMM timestamp in file name")

// TimestampFromFilename extracts the UTC observation time encoded in the base
// name of path.
func TimestampFromFilename(path string) (time.Time, error) {
	base := filepath.Base(path)
	m := filenameTimeRE.FindString(base)
	if m == "" {
		return time.Time{}, fmt.Errorf("%s: %w", base, ErrNoTimestamp)
	}
	t, err := time.ParseInLocation(filenameTimeLayout, m, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", base, err)
	}
	return t, nil
}
