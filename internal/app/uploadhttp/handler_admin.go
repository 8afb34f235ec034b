package uploadhttp

import (
	"net/http"

	"github.com/yourname/chunk_upload/internal/partstore"
	"github.com/yourname/chunk_upload/pkg/httperrors"
)

// listUploads отдаёт незавершённые загрузки, восстановленные по частям на диске.
func (a *Server) listUploads(w http.ResponseWriter, r *http.Request) {
	pending, err := a.Uploads.Pending()
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	if pending == nil {
		pending = []partstore.PendingUpload{}
	}
	writeJSON(w, r, pending)
}

// gcOnce вручную запускает сбор устаревших частей и staging-файлов.
func (a *Server) gcOnce(w http.ResponseWriter, r *http.Request) {
	report, err := a.Uploads.Sweep(r.Context(), a.gcTTL())
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	writeJSON(w, r, report)
}

func (a *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, a.Cfg)
}
