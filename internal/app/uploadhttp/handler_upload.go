package uploadhttp

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/yourname/chunk_upload/internal/models"
	"github.com/yourname/chunk_upload/pkg/httperrors"
	"github.com/yourname/chunk_upload/pkg/uploadproto"
)

// upload принимает один чанк загрузки.
func (a *Server) upload(w http.ResponseWriter, r *http.Request) {
	d, err := resolveChunk(r.Header)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}

	body, err := chunkBody(r)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}

	res, err := a.Uploads.UploadChunk(r.Context(), d, body)
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}

	msg := fmt.Sprintf("%s - chunk %d uploaded", res.Key, res.Index)
	w.Header().Set(uploadproto.HeaderFinalized, strconv.FormatBool(res.Finalized))
	if res.Finalized {
		w.Header().Set(uploadproto.HeaderSize, strconv.FormatInt(res.ArtifactSize, 10))
		msg += fmt.Sprintf("; assembled %d bytes", res.ArtifactSize)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, msg)
}

// chunkBody возвращает поток с данными чанка. Для multipart/form-data это поле "chunk"
// либо первое файловое поле; текстовые поля до него пропускаются. Иначе: тело запроса целиком.
func chunkBody(r *http.Request) (io.Reader, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: multipart body: %w", models.ErrBadRequest, err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: multipart body has no file field", models.ErrBadRequest)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: multipart body: %w", models.ErrBadRequest, err)
		}

		if part.FormName() == uploadproto.FormFieldChunk || part.FileName() != "" {
			return part, nil
		}
		if _, err := io.Copy(io.Discard, part); err != nil {
			return nil, fmt.Errorf("%w: multipart body: %w", models.ErrBadRequest, err)
		}
	}
}
