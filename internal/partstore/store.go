// Package partstore хранит части загружаемых файлов на локальном диске.
//
// Раскладка каталога:
//   - <root>/<index>_<key>.part: принятый чанк загрузки key;
//   - <root>/<key>: собранный файл;
//   - <root>/.<name>.<uuid>.tmp: staging-файл, который ещё пишется.
//
// Часть и итоговый файл появляются под своим именем только после полной записи
// и fsync: запись идёт в staging-файл, затем rename.
package partstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yourname/chunk_upload/internal/models"
)

// Store работает с одним каталогом загрузок. Безопасен для конкурентного
// использования; сериализацию по ключу обеспечивает вызывающий код.
type Store struct {
	root string
}

// New создаёт Store поверх каталога root. Каталог создаётся лениво, см. EnsureDir.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// EnsureDir создаёт каталог загрузок; существующий каталог ошибкой не считается.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: create upload dir: %w", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) PartPath(key string, index int) string {
	return filepath.Join(s.root, PartName(key, index))
}

func (s *Store) ArtifactPath(key string) string {
	return filepath.Join(s.root, key)
}

// ArtifactSize возвращает размер собранного файла key; ok == false, если его нет.
func (s *Store) ArtifactSize(key string) (size int64, ok bool) {
	fi, err := os.Stat(s.ArtifactPath(key))
	if err != nil || !fi.Mode().IsRegular() {
		return 0, false
	}
	return fi.Size(), true
}

// Exists проверяет наличие части без открытия файла.
func (s *Store) Exists(key string, index int) bool {
	fi, err := os.Stat(s.PartPath(key, index))
	return err == nil && fi.Mode().IsRegular()
}

// Contiguous возвращает число частей, лежащих подряд начиная с индекса 0.
func (s *Store) Contiguous(key string) int {
	n := 0
	for s.Exists(key, n) {
		n++
	}
	return n
}

// Open открывает часть на чтение. Отсутствие части: fs.ErrNotExist.
func (s *Store) Open(key string, index int) (*os.File, error) {
	return os.Open(s.PartPath(key, index))
}

// Remove удаляет часть; отсутствующая часть ошибкой не считается.
func (s *Store) Remove(key string, index int) error {
	err := os.Remove(s.PartPath(key, index))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove part %d of %q: %w", models.ErrStorage, index, key, err)
	}
	return nil
}

// WriteChunk сохраняет чанк index загрузки key, полностью заменяя прежнее содержимое части.
// Повторная отправка того же чанка даёт ту же часть.
func (s *Store) WriteChunk(ctx context.Context, key string, index int, r io.Reader) (int64, error) {
	staged, err := s.Stage(ctx, key, index, r)
	if err != nil {
		return 0, err
	}
	defer staged.Discard()

	if err := staged.Commit(); err != nil {
		return 0, err
	}
	return staged.Size(), nil
}

// Stage потоково пишет чанк во временный файл. Под именем части он появится только после Commit.
func (s *Store) Stage(ctx context.Context, key string, index int, r io.Reader) (*StagedPart, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: negative chunk index %d", models.ErrBadRequest, index)
	}

	tmp := filepath.Join(s.root, stagingName(PartName(key, index)))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: create staging file for chunk %d of %q: %w", models.ErrStorage, index, key, err)
	}

	n, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("%w: write chunk %d of %q: %w", models.ErrStorage, index, key, err)
	}

	return &StagedPart{
		store: s,
		key:   key,
		index: index,
		tmp:   tmp,
		size:  n,
	}, nil
}

// StagedPart: полностью записанный чанк, ещё не опубликованный под именем части.
type StagedPart struct {
	store *Store
	key   string
	index int
	tmp   string
	size  int64
	done  bool
}

func (p *StagedPart) Size() int64 {
	return p.size
}

// Commit атомарно заменяет часть содержимым staging-файла.
func (p *StagedPart) Commit() error {
	if p.done {
		return fmt.Errorf("%w: chunk %d of %q already committed or discarded", models.ErrStorage, p.index, p.key)
	}
	p.done = true

	if err := os.Rename(p.tmp, p.store.PartPath(p.key, p.index)); err != nil {
		_ = os.Remove(p.tmp)
		return fmt.Errorf("%w: publish chunk %d of %q: %w", models.ErrStorage, p.index, p.key, err)
	}
	syncDir(p.store.root)
	return nil
}

// Discard удаляет staging-файл, если Commit не был вызван. Повторный вызов безопасен.
func (p *StagedPart) Discard() {
	if p == nil || p.done {
		return
	}
	p.done = true
	_ = os.Remove(p.tmp)
}

// Artifact: собираемый итоговый файл. Пишется в staging-файл, публикуется через Commit.
type Artifact struct {
	store *Store
	key   string
	f     *os.File
	tmp   string
	done  bool
}

// CreateArtifact начинает сборку итогового файла для key.
func (s *Store) CreateArtifact(key string) (*Artifact, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	tmp := filepath.Join(s.root, stagingName(key))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: create artifact %q: %w", models.ErrStorage, key, err)
	}
	return &Artifact{store: s, key: key, f: f, tmp: tmp}, nil
}

func (a *Artifact) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

// Commit сбрасывает данные на диск и переименовывает staging-файл в <root>/<key>,
// заменяя прежний файл с тем же именем.
func (a *Artifact) Commit() error {
	if a.done {
		return fmt.Errorf("%w: artifact %q already committed or discarded", models.ErrStorage, a.key)
	}
	a.done = true

	err := a.f.Sync()
	if closeErr := a.f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(a.tmp, a.store.ArtifactPath(a.key))
	}
	if err != nil {
		_ = os.Remove(a.tmp)
		return fmt.Errorf("%w: publish artifact %q: %w", models.ErrStorage, a.key, err)
	}
	syncDir(a.store.root)
	return nil
}

// Discard бросает недописанный файл. Повторный вызов безопасен.
func (a *Artifact) Discard() {
	if a == nil || a.done {
		return
	}
	a.done = true
	_ = a.f.Close()
	_ = os.Remove(a.tmp)
}

// syncDir фиксирует rename в каталоге. Не все файловые системы это умеют, ошибки игнорируются.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// contextReader прерывает копирование, когда запрос отменён.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
