package docio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ltxtrans/internal/logger"
)

// backupStamp sorts lexically in creation order.
const backupStamp = "20060102_150405.000000"

// Backups keeps copies of translated documents before a run overwrites
// them. Copies of paper_en.tex are named paper_en.tex.<stamp>.bak.
type Backups struct {
	dir  string
	keep int
	now  func() time.Time
}

// NewBackups keeps at most keep copies per document in dir; keep < 1
// keeps them all. An empty dir stores copies next to the document.
func NewBackups(dir string, keep int) *Backups {
	return &Backups{dir: dir, keep: keep, now: time.Now}
}

func (b *Backups) dirFor(path string) string {
	if b.dir == "" {
		return filepath.Dir(path)
	}
	return b.dir
}

// Save copies path and prunes older copies. It returns the copy's path.
func (b *Backups) Save(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	dir := b.dirFor(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(path)+"."+b.now().Format(backupStamp)+".bak")
	if err := writeFileAtomic(dst, data); err != nil {
		return "", err
	}
	logger.Debug("backup saved", logger.String("document", path), logger.String("backup", dst))

	if b.keep > 0 {
		b.prune(path)
	}
	return dst, nil
}

// List returns the copies of path, newest first.
func (b *Backups) List(path string) ([]string, error) {
	pattern := filepath.Join(b.dirFor(path), globEscape(filepath.Base(path))+".*.bak")
	found, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(found)))
	return found, nil
}

// Latest returns the newest copy of path.
func (b *Backups) Latest(path string) (string, error) {
	found, err := b.List(path)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no backups of %s", path)
	}
	return found[0], nil
}

// Restore puts a copy back in place of path.
func (b *Backups) Restore(backup, path string) error {
	data, err := os.ReadFile(backup)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	logger.Info("document restored", logger.String("document", path), logger.String("backup", backup))
	return nil
}

func (b *Backups) prune(path string) {
	found, err := b.List(path)
	if err != nil {
		logger.Warn("cannot list backups", logger.String("document", path), logger.Err(err))
		return
	}
	for _, old := range found[min(b.keep, len(found)):] {
		if err := os.Remove(old); err != nil {
			logger.Warn("cannot remove old backup", logger.String("backup", old), logger.Err(err))
		}
	}
}

func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}

// writeFileAtomic replaces path with data through a temporary file in the
// same directory, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, 0644)
	}
	if err == nil {
		err = os.Rename(name, path)
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
