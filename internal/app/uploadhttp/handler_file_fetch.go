package uploadhttp

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/yourname/chunk_upload/internal/models"
	"github.com/yourname/chunk_upload/internal/partstore"
	"github.com/yourname/chunk_upload/pkg/httperrors"
)

// fetchFile обслуживает GET и HEAD для собранного файла. Поддерживает Range.
func (a *Server) fetchFile(w http.ResponseWriter, r *http.Request) {
	// chi берёт путь из RawPath, только если он задан; иначе параметр уже декодирован.
	name := chi.URLParam(r, "name")
	var err error
	if r.URL.RawPath != "" {
		name, err = url.PathUnescape(name)
	}
	if err == nil {
		err = partstore.ValidateKey(name)
	}
	if err != nil {
		httperrors.Write(w, r, fmt.Errorf("%w: %w", models.ErrBadRequest, err))
		return
	}

	f, err := os.Open(a.Parts.ArtifactPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		httperrors.Write(w, r, fmt.Errorf("%w: %s", models.ErrNotFound, name))
		return
	}
	if err != nil {
		httperrors.Write(w, r, fmt.Errorf("%w: open %s: %w", models.ErrStorage, name, err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		httperrors.Write(w, r, fmt.Errorf("%w: stat %s: %w", models.ErrStorage, name, err))
		return
	}
	if !info.Mode().IsRegular() {
		httperrors.Write(w, r, fmt.Errorf("%w: %s", models.ErrNotFound, name))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
