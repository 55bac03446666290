package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/acolella/voxpop/app"
	"github.com/acolella/voxpop/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	root.
		With(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.TokenSecret)).
		Mount("/admin", servePrivateFiles("/admin"))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	// feedback form: schema source and submit endpoint
	api.Get(`/campaigns/{id:^\d+$}`, PublicGetCampaign(app))
	api.Post("/feedback", SubmitFeedback(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD campaign
		r.Post("/campaigns", CreateCampaign(app))
		r.Get("/campaigns", ListCampaigns(app))
		r.Get(`/campaigns/{id:^\d+$}`, GetCampaignById(app))
		r.Put(`/campaigns/{id:^\d+$}`, UpdateCampaign(app))
		r.Delete(`/campaigns/{id:^\d+$}`, DeleteCampaign(app))

		// reporting
		r.Get("/dashboard", Dashboard(app))
		r.Post("/analysis", RunAnalysis(app))
		r.Get("/export", ExportFeedback(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}

func servePrivateFiles(path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir("private")))
}
