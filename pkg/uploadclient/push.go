package uploadclient

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/yourname/chunk_upload/internal/logger"
)

type PushOptions struct {
	// Name: имя файла на сервере; по умолчанию базовое имя локального файла.
	Name        string
	ChunkSize   int64
	Concurrency int
}

type PushResult struct {
	Key          string
	Size         int64
	Chunks       int
	ArtifactSize int64
}

// PushFile загружает файл по частям. Чанки 0..N-2 идут параллельно (не больше
// Concurrency одновременно), последний отправляется после успеха всех остальных:
// сервер собирает файл на последнем чанке.
func (h *Client) PushFile(ctx context.Context, path string, opts PushOptions) (PushResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return PushResult{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return PushResult{}, err
	}
	size := info.Size()

	plan, err := PlanChunks(size, opts.ChunkSize)
	if err != nil {
		return PushResult{}, err
	}

	key := opts.Name
	if key == "" {
		key = filepath.Base(path)
	}

	bar := newProgressBar(h.progress, fmt.Sprintf("Uploading %s", key), size)
	bar.render(true)

	chunk := func(idx int) ChunkRequest {
		return ChunkRequest{
			Key:      key,
			Index:    idx,
			Total:    plan.Total,
			FileSize: size,
			Data:     f,
			Offset:   int64(idx) * plan.Size,
			Size:     plan.ChunkLen(idx, size),
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(opts.Concurrency, 1))
	for idx := 0; idx < plan.Total-1; idx++ {
		eg.Go(func() error {
			req := chunk(idx)
			if _, err := h.PushChunk(egCtx, req); err != nil {
				return err
			}
			bar.AddBytes(req.Size)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		bar.Fail(err)
		return PushResult{}, err
	}

	last := chunk(plan.Total - 1)
	resp, err := h.PushChunk(ctx, last)
	if err != nil {
		bar.Fail(err)
		return PushResult{}, err
	}
	bar.AddBytes(last.Size)

	if !resp.Finalized {
		err := fmt.Errorf("server accepted all %d chunks of %q but did not assemble the file", plan.Total, key)
		bar.Fail(err)
		return PushResult{}, err
	}
	bar.Finish()

	logger.Ctx(ctx).Debug().
		Str("key", key).
		Int("chunks", plan.Total).
		Int64("bytes", resp.ArtifactSize).
		Msg("file pushed")

	return PushResult{
		Key:          key,
		Size:         size,
		Chunks:       plan.Total,
		ArtifactSize: resp.ArtifactSize,
	}, nil
}
