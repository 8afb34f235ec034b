package partstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/yourname/chunk_upload/internal/models"
)

// PendingUpload: незавершённая загрузка, как она видна по частям на диске.
type PendingUpload struct {
	Key       string    `json:"key"`
	Indices   []int     `json:"indices"`
	Bytes     int64     `json:"bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StaleEntry: часть или staging-файл, не менявшиеся дольше TTL.
type StaleEntry struct {
	Key     string // пусто для staging-файлов
	Index   int
	Path    string
	Staging bool
	Size    int64
}

// Pending группирует части на диске по ключам загрузки. Отсутствующий каталог: пустой список.
func (s *Store) Pending() ([]PendingUpload, error) {
	entries, err := s.readDir()
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*PendingUpload)
	for _, e := range entries {
		key, idx, ok := ParsePartName(e.Name())
		if !ok || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Часть могла быть удалена сборкой между ReadDir и Info.
			continue
		}

		p, ok := byKey[key]
		if !ok {
			p = &PendingUpload{Key: key}
			byKey[key] = p
		}
		p.Indices = append(p.Indices, idx)
		p.Bytes += info.Size()
		if info.ModTime().After(p.UpdatedAt) {
			p.UpdatedAt = info.ModTime()
		}
	}

	out := make([]PendingUpload, 0, len(byKey))
	for _, p := range byKey {
		sort.Ints(p.Indices)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})

	return out, nil
}

// Stale возвращает части и staging-файлы, изменённые раньше now-ttl.
func (s *Store) Stale(ttl time.Duration, now time.Time) ([]StaleEntry, error) {
	entries, err := s.readDir()
	if err != nil {
		return nil, err
	}

	cutoff := now.Add(-ttl)
	var out []StaleEntry
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}

		name := e.Name()
		key, idx, isPart := ParsePartName(name)
		staging := isStagingName(name)
		if !isPart && !staging {
			continue
		}

		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		out = append(out, StaleEntry{
			Key:     key,
			Index:   idx,
			Path:    filepath.Join(s.root, name),
			Staging: staging,
			Size:    info.Size(),
		})
	}

	return out, nil
}

// RemoveStale удаляет запись, если она всё ещё старше cutoff. Файл мог быть перезаписан
// после вызова Stale; тогда он остаётся на месте и возвращается false.
func (s *Store) RemoveStale(e StaleEntry, cutoff time.Time) (bool, error) {
	if filepath.Dir(e.Path) != filepath.Clean(s.root) {
		return false, fmt.Errorf("%w: %s is outside the upload dir", models.ErrBadRequest, e.Path)
	}

	info, err := os.Stat(e.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %w", models.ErrStorage, e.Path, err)
	}
	if !info.ModTime().Before(cutoff) {
		return false, nil
	}

	if err := os.Remove(e.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%w: remove %s: %w", models.ErrStorage, e.Path, err)
	}
	return true, nil
}

// DiskUsage суммирует размер всех файлов каталога загрузок.
func (s *Store) DiskUsage() (int64, error) {
	entries, err := s.readDir()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func (s *Store) readDir() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read upload dir: %w", models.ErrStorage, err)
	}
	return entries, nil
}
