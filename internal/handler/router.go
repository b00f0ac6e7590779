package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/pickers-market/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware маркетплейса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Recoverer(h.logger))
	if h.opts.HTTPMetrics != nil {
		r.Use(h.opts.HTTPMetrics)
	}
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Pickers Server is running!"))
	})

	r.Get("/download", h.Download)

	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/verify", h.Verify)
			r.Post("/login", h.Login)
			r.Post("/resend-code", h.ResendCode)

			r.With(h.authMiddleware.Middleware).Get("/profile", h.Profile)
		})

		r.Route("/pickers", func(r chi.Router) {
			r.Get("/", h.ListPickers)
			r.Get("/{pickerID}", h.GetPicker)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Post("/", h.UploadPicker)
				r.Delete("/{pickerID}", h.DeactivatePicker)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			create := http.Handler(http.HandlerFunc(h.CreateOrder))
			if h.opts.OrderLimiter != nil {
				create = h.opts.OrderLimiter.Middleware(create)
			}
			r.Method(http.MethodPost, "/", create)

			r.Get("/", h.ListOrders)
			r.Get("/{orderID}", h.GetOrder)
			r.Post("/{orderID}/download-token", h.IssueDownloadToken)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
	})

	return r
}
