package uploadhttp

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/yourname/chunk_upload/internal/models"
	"github.com/yourname/chunk_upload/pkg/uploadproto"
)

// resolveChunk извлекает описание чанка из заголовков. Отсутствующие заголовки дают
// пустое имя, индекс и количество 0, размер -1; их допустимость проверяет сервис.
func resolveChunk(h http.Header) (models.ChunkDescriptor, error) {
	d := models.ChunkDescriptor{
		Key:      strings.TrimSpace(h.Get(uploadproto.HeaderFileName)),
		FileSize: -1,
	}

	var err error
	if d.Index, err = intHeader(h, uploadproto.HeaderChunkIndex); err != nil {
		return models.ChunkDescriptor{}, err
	}
	if d.Total, err = intHeader(h, uploadproto.HeaderTotalChunks); err != nil {
		return models.ChunkDescriptor{}, err
	}

	if raw := strings.TrimSpace(h.Get(uploadproto.HeaderFileSize)); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || size < 0 {
			return models.ChunkDescriptor{}, fmt.Errorf("%w: invalid %s header %q", models.ErrBadRequest, uploadproto.HeaderFileSize, raw)
		}
		d.FileSize = size
	}

	return d, nil
}

// intHeader разбирает неотрицательное десятичное значение; пустой заголовок: 0.
func intHeader(h http.Header, name string) (int, error) {
	raw := strings.TrimSpace(h.Get(name))
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid %s header %q", models.ErrBadRequest, name, raw)
	}
	return v, nil
}
