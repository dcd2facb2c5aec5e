package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Leanline-Systems/Gemba/internal/events"
	"github.com/Leanline-Systems/Gemba/internal/store"
)

func NewRouter(s store.Store, ev events.Client, weightEpsilon float64, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	taxonomy := NewTaxonomyHandler(s)
	descriptors := NewDescriptorsHandler(s, ev)
	schemes := NewSchemesHandler(s, ev, weightEpsilon)
	assessments := NewAssessmentsHandler(s, ev)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))

			r.Post("/sectors", taxonomy.CreateSector)
			r.Get("/sectors", taxonomy.ListSectors)
			r.Delete("/sectors/{id}", taxonomy.DeleteSector)
			r.Post("/categories", taxonomy.CreateCategory)
			r.Get("/categories", taxonomy.ListCategories)
			r.Delete("/categories/{id}", taxonomy.DeleteCategory)
			r.Post("/dimensions", taxonomy.CreateDimension)
			r.Get("/dimensions", taxonomy.ListDimensions)
			r.Delete("/dimensions/{id}", taxonomy.DeleteDimension)
			r.Post("/companies", taxonomy.CreateCompany)

			r.Put("/sectors/{id}/descriptors", descriptors.Upsert)
			r.Get("/sectors/{id}/descriptors", descriptors.List)
			r.Get("/sectors/{id}/template", descriptors.Template)
			r.Delete("/descriptors/{id}", descriptors.Delete)
			r.Post("/descriptors/{id}/restore", descriptors.Restore)

			r.Post("/schemes", schemes.Create)
			r.Get("/schemes", schemes.List)
			r.Get("/schemes/default", schemes.GetDefault)
			r.Get("/schemes/{id}", schemes.Get)
			r.Delete("/schemes/{id}", schemes.Delete)
			r.Put("/schemes/{id}/weights", schemes.SetWeights)
			r.Post("/schemes/{id}/default", schemes.SetDefault)
			r.Get("/schemes/{id}/mismatches", schemes.Mismatches)
		})

		r.Group(func(r chi.Router) {
			r.Use(ExpertIDMiddleware)

			r.Post("/assessments", assessments.Create)
			r.Get("/assessments", assessments.List)
			r.Get("/assessments/{id}", assessments.Get)
			r.Put("/assessments/{id}/scores/{dimensionID}", assessments.UpsertScore)
			r.Post("/assessments/{id}/scheme", assessments.AssignScheme)
			r.Post("/assessments/{id}/submit", assessments.Submit)
			r.Post("/assessments/{id}/review", assessments.Review)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
