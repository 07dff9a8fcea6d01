package handlers

import (
	"net/http"
	"time"

	"github.com/camden-git/mememanager/config"
	"github.com/camden-git/mememanager/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"gorm.io/gorm"
)

func corsOptions(cfg config.Config) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			// reflect the caller's origin; a literal "*" is rejected by browsers with credentials
			opts.AllowOriginFunc = func(string) bool { return true }
			return opts
		}
	}
	opts.AllowedOrigins = cfg.AllowedOrigins
	return opts
}

// NewRouter wires the HTTP API onto db
func NewRouter(cfg config.Config, db *gorm.DB) http.Handler {
	groupRepo := repository.NewGroupRepository(db)
	imageRepo := repository.NewImageRepository(db)

	imageHandler := &ImageHandler{Images: imageRepo, Groups: groupRepo, Cfg: cfg}
	tagHandler := &TagHandler{Images: imageRepo}
	groupHandler := &GroupHandler{Groups: groupRepo}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.New(corsOptions(cfg)).Handler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/images", func(r chi.Router) {
			r.Get("/", imageHandler.ListImages)
			r.Post("/add", imageHandler.AddImage)
			r.Get("/delete", imageHandler.DeleteImage)
			r.Post("/update", imageHandler.UpdateImage)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tagHandler.ListTags)
			r.Post("/add", tagHandler.AddTags)
			r.Post("/delete", tagHandler.DeleteTag)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", groupHandler.ListGroups)
			r.Post("/add", groupHandler.AddGroup)
			r.Post("/delete", groupHandler.DeleteGroup)
			r.Post("/update", groupHandler.UpdateGroup)
		})
	})

	if cfg.FrontendDirectory != "" {
		r.Get("/*", FrontendServer(cfg.FrontendDirectory))
	}

	return r
}
