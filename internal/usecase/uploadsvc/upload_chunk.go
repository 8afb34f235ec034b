package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yourname/chunk_upload/internal/logger"
	"github.com/yourname/chunk_upload/internal/models"
	"github.com/yourname/chunk_upload/internal/partstore"
)

// UploadChunk сохраняет один чанк и, если он завершает загрузку, собирает итоговый файл.
//
// Тело читается потоково в staging-файл без блокировки. Публикация части, проверка
// завершённости и сборка выполняются под блокировкой ключа, так что чанки одной загрузки
// не пересекаются со сборкой, а разные загрузки не ждут друг друга.
func (s *Uploads) UploadChunk(ctx context.Context, d models.ChunkDescriptor, body io.Reader) (res models.ChunkResult, err error) {
	defer func() {
		ChunksReceived.WithLabelValues(resultLabel(err)).Inc()
	}()

	if err := validateDescriptor(d); err != nil {
		return models.ChunkResult{}, err
	}
	if err := s.Parts.EnsureDir(); err != nil {
		return models.ChunkResult{}, err
	}

	staged, err := s.Parts.Stage(ctx, d.Key, d.Index, body)
	if err != nil {
		return models.ChunkResult{}, err
	}
	defer staged.Discard()

	waitStart := time.Now()
	if err := s.locks.Lock(ctx, d.Key); err != nil {
		return models.ChunkResult{}, fmt.Errorf("%w: wait for %q: %w", models.ErrStorage, d.Key, err)
	}
	defer s.locks.Unlock(d.Key)
	LockWait.Observe(time.Since(waitStart).Seconds())

	if s.alreadyFinalized(d) {
		size, _ := s.Parts.ArtifactSize(d.Key)
		logger.Ctx(ctx).Info().
			Str("key", d.Key).
			Int("index", d.Index).
			Msg("last chunk resent after assembly, ignored")
		return models.ChunkResult{
			Key:          d.Key,
			Index:        d.Index,
			Bytes:        staged.Size(),
			Finalized:    true,
			ArtifactSize: size,
		}, nil
	}

	if err := staged.Commit(); err != nil {
		return models.ChunkResult{}, err
	}
	ChunkBytes.Add(float64(staged.Size()))

	res = models.ChunkResult{
		Key:   d.Key,
		Index: d.Index,
		Bytes: staged.Size(),
	}

	log := logger.Ctx(ctx)
	log.Debug().
		Str("key", d.Key).
		Int("index", d.Index).
		Int("total", d.Total).
		Int64("bytes", res.Bytes).
		Msg("chunk stored")

	if !s.complete(d) {
		return res, nil
	}

	// Начатая сборка доводится до конца, даже если клиент отключился.
	assembled, err := s.Reassembler.Finalize(context.WithoutCancel(ctx), d.Key, d.Total, d.FileSize)
	if err != nil {
		log.Warn().Err(err).Str("key", d.Key).Int("total", d.Total).Msg("finalize failed")
		return models.ChunkResult{}, err
	}
	UploadsFinalized.Inc()

	res.Finalized = true
	res.ArtifactSize = assembled.Bytes
	res.Parts = assembled.Parts
	return res, nil
}

func (s *Uploads) complete(d models.ChunkDescriptor) bool {
	if s.Completion == CompletionVerified {
		return s.Parts.Contiguous(d.Key) >= d.Total
	}
	return d.IsLast()
}

// alreadyFinalized распознаёт повтор последнего чанка, ответ на который потерялся:
// части уже удалены сборкой, а итоговый файл лежит на месте. Повтор не пишется на диск.
// В режиме verified чанки приходят в любом порядке, поэтому там правило не применяется.
func (s *Uploads) alreadyFinalized(d models.ChunkDescriptor) bool {
	if s.Completion != CompletionDeclared || !d.IsLast() || d.Index == 0 {
		return false
	}
	if s.Parts.Exists(d.Key, 0) {
		return false
	}
	_, ok := s.Parts.ArtifactSize(d.Key)
	return ok
}

func validateDescriptor(d models.ChunkDescriptor) error {
	if err := partstore.ValidateKey(d.Key); err != nil {
		return err
	}
	switch {
	case d.Total < 1:
		return fmt.Errorf("%w: total chunks must be at least 1, got %d", models.ErrBadRequest, d.Total)
	case d.Index < 0 || d.Index >= d.Total:
		return fmt.Errorf("%w: chunk index %d is out of range for %d chunks", models.ErrBadRequest, d.Index, d.Total)
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, models.ErrIncompleteUpload):
		return "incomplete"
	default:
		return "error"
	}
}
