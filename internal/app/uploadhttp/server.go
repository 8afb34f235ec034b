package uploadhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yourname/chunk_upload/internal/config"
	"github.com/yourname/chunk_upload/internal/partstore"
	"github.com/yourname/chunk_upload/internal/reassembly"
	"github.com/yourname/chunk_upload/internal/usecase/uploadsvc"
	"github.com/yourname/chunk_upload/pkg/uploadproto"
)

// Server: HTTP API приёма чанков поверх локального каталога загрузок.
type Server struct {
	Uploads uploadsvc.Service
	Parts   *partstore.Store
	Cfg     *config.Config
}

// NewServer конструктор
func NewServer(cfg *config.Config) (http.Handler, *Server, error) {
	completion, err := uploadsvc.ParseCompletion(cfg.Completion)
	if err != nil {
		return nil, nil, err
	}

	parts := partstore.New(cfg.UploadDir)
	srv := &Server{
		Uploads: uploadsvc.New(uploadsvc.Deps{
			Parts:       parts,
			Reassembler: reassembly.New(parts, cfg.Strict),
			Completion:  completion,
		}),
		Parts: parts,
		Cfg:   cfg,
	}

	return srv.routes(), srv, nil
}

// routes регистрирует обработчики загрузки, выдачи файлов, здоровья и админки.
func (a *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.Cfg.CORS.AllowedOrigins,
		AllowedMethods: a.Cfg.CORS.AllowedMethods,
		AllowedHeaders: a.Cfg.CORS.AllowedHeaders,
		ExposedHeaders: []string{uploadproto.HeaderFinalized, uploadproto.HeaderSize},
		MaxAge:         a.Cfg.CORS.MaxAge,
	}))

	r.Post(uploadproto.UploadPath, a.upload)

	r.Route("/files/{name}", func(fr chi.Router) {
		fr.Get("/", a.fetchFile)
		fr.Head("/", a.fetchFile)
	})

	r.Get("/health", a.health)

	r.Route("/admin", func(ar chi.Router) {
		ar.Get("/uploads", a.listUploads)
		ar.Post("/gc", a.gcOnce)
		ar.Get("/config", a.showConfig)
	})

	return r
}

// StartGC запускает периодическую очистку устаревших частей согласно конфигурации.
func (a *Server) StartGC() func() {
	return a.Uploads.StartGC(a.Cfg.GCTTL, a.Cfg.GCInterval)
}

// gcTTL: TTL для ручного запуска; без настройки сборщика используется сутки.
func (a *Server) gcTTL() time.Duration {
	if a.Cfg.GCTTL > 0 {
		return a.Cfg.GCTTL
	}
	return 24 * time.Hour
}
