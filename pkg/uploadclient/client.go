// Package uploadclient загружает файлы на сервер по частям и скачивает собранные файлы.
package uploadclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourname/chunk_upload/internal/models"
	"github.com/yourname/chunk_upload/pkg/uploadproto"
)

type Config struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Progress: куда рисовать индикатор выполнения; nil отключает вывод.
	Progress io.Writer

	// HTTPClient заменяет транспорт по умолчанию, например в тестах.
	HTTPClient *http.Client
}

// ChunkRequest описывает один чанк: Size байт файла Data начиная с Offset.
type ChunkRequest struct {
	Key      string
	Index    int
	Total    int
	FileSize int64
	Data     io.ReaderAt
	Offset   int64
	Size     int64
}

// ChunkResponse: ответ сервера на чанк.
type ChunkResponse struct {
	Finalized    bool
	ArtifactSize int64
	Message      string
}

// StatusError: ответ сервера с кодом, отличным от 200.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server responded %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

type Client struct {
	c        *retryablehttp.Client
	baseURL  string
	progress io.Writer
}

// New создаёт клиент для сервера baseURL. Запросы повторяются при сетевых ошибках и 5xx.
func New(baseURL string, cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = leveledLogger{}
	rc.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	}
	// Последний ответ возвращается как есть, чтобы вызывающий видел код и текст ошибки.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		c:        rc,
		baseURL:  strings.TrimRight(baseURL, "/"),
		progress: cfg.Progress,
	}
}

// PushChunk отправляет один чанк. Тело перечитывается из Data при каждой попытке.
func (h *Client) PushChunk(ctx context.Context, req ChunkRequest) (ChunkResponse, error) {
	body := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		return io.NewSectionReader(req.Data, req.Offset, req.Size), nil
	})

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf(uploadproto.UploadURLFormat, h.baseURL), body)
	if err != nil {
		return ChunkResponse{}, err
	}

	// retryablehttp не выставляет Content-Length для ReaderFunc.
	httpReq.ContentLength = req.Size
	httpReq.Header.Set("Content-Length", strconv.FormatInt(req.Size, 10))
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set(uploadproto.HeaderFileName, req.Key)
	httpReq.Header.Set(uploadproto.HeaderChunkIndex, strconv.Itoa(req.Index))
	httpReq.Header.Set(uploadproto.HeaderTotalChunks, strconv.Itoa(req.Total))
	if req.FileSize >= 0 {
		httpReq.Header.Set(uploadproto.HeaderFileSize, strconv.FormatInt(req.FileSize, 10))
	}

	resp, err := h.c.Do(httpReq)
	if err != nil {
		return ChunkResponse{}, fmt.Errorf("push chunk %d of %q: %w", req.Index, req.Key, err)
	}
	defer resp.Body.Close()

	msg, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return ChunkResponse{}, fmt.Errorf("push chunk %d of %q: read response: %w", req.Index, req.Key, err)
	}
	if resp.StatusCode != http.StatusOK {
		return ChunkResponse{}, fmt.Errorf("push chunk %d of %q: %w", req.Index, req.Key,
			&StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))})
	}

	out := ChunkResponse{Message: string(msg)}
	out.Finalized, _ = strconv.ParseBool(resp.Header.Get(uploadproto.HeaderFinalized))
	if out.Finalized {
		out.ArtifactSize, err = strconv.ParseInt(resp.Header.Get(uploadproto.HeaderSize), 10, 64)
		if err != nil {
			return ChunkResponse{}, fmt.Errorf("push chunk %d of %q: bad %s header: %w",
				req.Index, req.Key, uploadproto.HeaderSize, err)
		}
	}
	return out, nil
}

// Fetch скачивает собранный файл и возвращает поток с телом.
func (h *Client) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	u := fmt.Sprintf(uploadproto.FilesURLFormat, h.baseURL, url.PathEscape(key))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", key, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("fetch %q: %w", key, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))})
	}

	bar := newProgressBar(h.progress, fmt.Sprintf("Downloading %s", key), resp.ContentLength)
	bar.render(true)
	return newProgressReadCloser(resp.Body, bar), nil
}

// PlanChunks делит файл размером size на чанки по chunkSize байт. Пустой файл: один пустой чанк.
func PlanChunks(size, chunkSize int64) (models.ChunkPlan, error) {
	if chunkSize <= 0 {
		return models.ChunkPlan{}, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if size < 0 {
		return models.ChunkPlan{}, fmt.Errorf("file size must not be negative, got %d", size)
	}

	total := (size + chunkSize - 1) / chunkSize
	return models.ChunkPlan{Total: int(max(total, 1)), Size: chunkSize}, nil
}
