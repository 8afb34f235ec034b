package uploadsvc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yourname/chunk_upload/internal/models"
	"github.com/yourname/chunk_upload/internal/partstore"
	"github.com/yourname/chunk_upload/internal/reassembly"
)

// CompletionMode определяет, когда загрузка считается завершённой.
type CompletionMode string

const (
	// CompletionDeclared: завершает чанк с индексом total-1.
	CompletionDeclared CompletionMode = "declared"
	// CompletionVerified: завершает любой чанк, после которого на диске лежат все части 0..total-1.
	CompletionVerified CompletionMode = "verified"
)

// ParseCompletion разбирает режим из конфигурации; пустая строка: CompletionDeclared.
func ParseCompletion(raw string) (CompletionMode, error) {
	switch mode := CompletionMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return CompletionDeclared, nil
	case CompletionDeclared, CompletionVerified:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown completion mode %q (want %q or %q)", raw, CompletionDeclared, CompletionVerified)
	}
}

type (
	// Finalizer собирает итоговый файл из частей.
	Finalizer interface {
		Finalize(ctx context.Context, key string, total int, fileSize int64) (reassembly.Result, error)
	}

	// Service объединяет операции приёма чанков и обслуживания каталога загрузок.
	Service interface {
		UploadChunk(ctx context.Context, d models.ChunkDescriptor, body io.Reader) (models.ChunkResult, error)
		Pending() ([]partstore.PendingUpload, error)
		Sweep(ctx context.Context, ttl time.Duration) (SweepReport, error)
		StartGC(ttl, every time.Duration) func()
	}
)

type Deps struct {
	Parts       *partstore.Store
	Reassembler Finalizer
	Completion  CompletionMode
}

type Uploads struct {
	Deps
	locks *keyLocks
}

// New конструирует сервис загрузки с заданными зависимостями.
func New(deps Deps) *Uploads {
	if deps.Completion == "" {
		deps.Completion = CompletionDeclared
	}
	return &Uploads{Deps: deps, locks: newKeyLocks()}
}

var _ Service = (*Uploads)(nil)

// Pending перечисляет незавершённые загрузки по частям на диске.
func (s *Uploads) Pending() ([]partstore.PendingUpload, error) {
	return s.Parts.Pending()
}
