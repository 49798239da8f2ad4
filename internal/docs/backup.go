package docs

import (
	"fmt"
	"io"
	"os"
	"time"
)

// BackupLayout is the timestamp format used in backup file names.
const BackupLayout = "20060102_150405"

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// BackupPath returns "<path>.backup.<YYYYMMDD_HHMMSS>" for the given time.
func BackupPath(path string, at time.Time) string {
	return fmt.Sprintf("%s.backup.%s", path, at.Format(BackupLayout))
}

// Backup copies path to a timestamped sibling and returns the backup path.
// If a backup with the same second already exists, a numeric suffix
// (-2, -3, ...) is appended so earlier backups are never overwritten.
func Backup(path string) (string, error) {
	base := BackupPath(path, timeNow())
	dst := base
	suffix := 2
	for {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		dst = fmt.Sprintf("%s-%d", base, suffix)
		suffix++
	}

	if err := copyFile(path, dst); err != nil {
		return "", fmt.Errorf("backing up %s: %w", path, err)
	}
	return dst, nil
}

// BackupPair backs up both documents of p. Nothing is left behind on
// failure: a backup already written for the first document is removed.
func BackupPair(p Pair) ([]string, error) {
	var written []string
	for _, path := range []string{p.Structured, p.Narrative} {
		dst, err := Backup(path)
		if err != nil {
			for _, w := range written {
				_ = os.Remove(w)
			}
			return nil, err
		}
		written = append(written, dst)
	}
	return written, nil
}

// copyFile copies src to a new file dst. A partially written dst is
// removed on any error.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
