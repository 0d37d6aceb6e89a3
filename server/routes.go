package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes 组装 HTTP 路由：/ws 接入、管理与监控接口、静态资源
func Routes(gw *Gateway, admin *Admin, staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", gw.HandleWS)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", admin.HandleMetrics)

	r.Route("/admin", func(r chi.Router) {
		r.Use(requestLogger)
		r.Get("/config", admin.HandleAdminConfig)
		r.Post("/config", admin.HandleAdminConfig)
		r.Post("/participants", admin.HandleRegisterParticipant)
		r.Get("/participants/{id}", admin.HandleGetParticipant)
	})

	if staticDir != "" {
		// 前后端分离：将 / 映射到静态资源目录
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		Log.Infow("admin request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
