// Package reassembly склеивает части загрузки в итоговый файл.
package reassembly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yourname/chunk_upload/internal/logger"
	"github.com/yourname/chunk_upload/internal/models"
	"github.com/yourname/chunk_upload/internal/partstore"
)

// Result описывает собранный файл.
type Result struct {
	Bytes int64
	Parts int
}

// Reassembler собирает итоговый файл из частей одного ключа.
// Вызывающий код держит блокировку ключа на всё время Finalize.
type Reassembler struct {
	parts  *partstore.Store
	strict bool
}

// New создаёт сборщик. В строгом режиме сборка требует все части 0..total-1
// и не читает части за пределами заявленного количества.
func New(parts *partstore.Store, strict bool) *Reassembler {
	return &Reassembler{parts: parts, strict: strict}
}

func (r *Reassembler) Strict() bool {
	return r.strict
}

// Finalize склеивает части key начиная с индекса 0 до первой отсутствующей,
// атомарно публикует <upload-dir>/<key> и удаляет использованные части.
// fileSize < 0 означает, что размер файла не заявлен.
func (r *Reassembler) Finalize(ctx context.Context, key string, total int, fileSize int64) (res Result, err error) {
	start := time.Now()
	defer func() {
		FinalizeDuration.Observe(time.Since(start).Seconds())
		switch {
		case err == nil:
			FinalizeTotal.WithLabelValues("ok").Inc()
		case errors.Is(err, models.ErrIncompleteUpload):
			FinalizeTotal.WithLabelValues("incomplete").Inc()
		default:
			FinalizeTotal.WithLabelValues("error").Inc()
		}
	}()

	if r.strict && total > 0 {
		if have := r.parts.Contiguous(key); have < total {
			return Result{}, fmt.Errorf("%w: %q has %d of %d parts, part %d is missing",
				models.ErrIncompleteUpload, key, have, total, have)
		}
	}

	artifact, err := r.parts.CreateArtifact(key)
	if err != nil {
		return Result{}, err
	}
	defer artifact.Discard()

	for idx := 0; !r.strict || idx < total; idx++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%w: assemble %q: %w", models.ErrStorage, key, err)
		}

		n, err := r.appendPart(artifact, key, idx)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return Result{}, err
		}
		res.Bytes += n
		res.Parts++
	}

	// Ни одной части, но файл уже собран: повтор после завершённой сборки не затирает его.
	if res.Parts == 0 {
		if size, ok := r.parts.ArtifactSize(key); ok {
			logger.Ctx(ctx).Info().
				Str("key", key).
				Int64("bytes", size).
				Msg("no parts to assemble, keeping existing file")
			return Result{Bytes: size}, nil
		}
	}

	if r.strict && fileSize >= 0 && res.Bytes != fileSize {
		return Result{}, fmt.Errorf("%w: %q assembled %d bytes, declared %d",
			models.ErrIncompleteUpload, key, res.Bytes, fileSize)
	}

	if err := artifact.Commit(); err != nil {
		return Result{}, err
	}
	AssembledBytes.Add(float64(res.Bytes))

	r.cleanup(ctx, key, res.Parts)

	logger.Ctx(ctx).Info().
		Str("key", key).
		Int("parts", res.Parts).
		Int64("bytes", res.Bytes).
		Str("size", humanize.IBytes(uint64(res.Bytes))).
		Msg("upload assembled")

	return res, nil
}

// appendPart дописывает часть idx в файл. Отсутствующая часть: fs.ErrNotExist без обёртки.
func (r *Reassembler) appendPart(dst io.Writer, key string, idx int) (int64, error) {
	f, err := r.parts.Open(key, idx)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("%w: open part %d of %q: %w", models.ErrStorage, idx, key, err)
	}
	defer f.Close()

	n, err := io.Copy(dst, f)
	if err != nil {
		return n, fmt.Errorf("%w: append part %d of %q: %w", models.ErrStorage, idx, key, err)
	}
	return n, nil
}

// cleanup удаляет использованные части. Итоговый файл уже опубликован,
// поэтому ошибки только логируются.
func (r *Reassembler) cleanup(ctx context.Context, key string, parts int) {
	for idx := 0; idx < parts; idx++ {
		if err := r.parts.Remove(key, idx); err != nil {
			CleanupFailures.Inc()
			logger.Ctx(ctx).Warn().Err(err).
				Str("key", key).
				Int("index", idx).
				Msg("failed to remove consumed part")
		}
	}
}
