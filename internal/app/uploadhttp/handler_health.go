package uploadhttp

import (
	"encoding/json"
	"net/http"

	"github.com/yourname/chunk_upload/pkg/httperrors"
)

// healthStats: payload ответа /health.
type healthStats struct {
	OK             bool  `json:"ok"`
	TotalBytes     int64 `json:"total_bytes"`
	PendingUploads int   `json:"pending_uploads"`
}

// health возвращает агрегированную статистику по каталогу загрузок.
func (a *Server) health(w http.ResponseWriter, r *http.Request) {
	total, err := a.Parts.DiskUsage()
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}
	pending, err := a.Uploads.Pending()
	if err != nil {
		httperrors.Write(w, r, err)
		return
	}

	writeJSON(w, r, healthStats{
		OK:             true,
		TotalBytes:     total,
		PendingUploads: len(pending),
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		httperrors.Write(w, r, err)
	}
}
