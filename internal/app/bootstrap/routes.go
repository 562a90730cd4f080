// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	categoriesfeature "github.com/techradar/compass/internal/app/features/categories"
	groupsfeature "github.com/techradar/compass/internal/app/features/groups"
	healthfeature "github.com/techradar/compass/internal/app/features/health"
	historyfeature "github.com/techradar/compass/internal/app/features/history"
	siteconfigfeature "github.com/techradar/compass/internal/app/features/siteconfig"
	solutionsfeature "github.com/techradar/compass/internal/app/features/solutions"
	techradarfeature "github.com/techradar/compass/internal/app/features/techradar"
	"github.com/techradar/compass/internal/app/system/auth"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Every request passes through the bearer
// token middleware, which puts the caller (if any) in the context; feature
// routers then gate their own write routes.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services
	verifier := auth.NewVerifier(appCfg.JWTSecret, appCfg.JWTIssuer, logger.Named("auth"))

	r := chi.NewRouter()
	r.Use(verifier.LoadActor)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		groupsHandler := groupsfeature.NewHandler(svc.Groups, logger)
		api.Mount("/groups", groupsfeature.Routes(groupsHandler, verifier))

		radarHandler := techradarfeature.NewHandler(svc.Radar, logger)
		api.Mount("/tech-radar", techradarfeature.Routes(radarHandler))

		solutionsHandler := solutionsfeature.NewHandler(svc.Solutions, logger)
		api.Mount("/solutions", solutionsfeature.Routes(solutionsHandler, verifier))

		categoriesHandler := categoriesfeature.NewHandler(svc.Categories, logger)
		api.Mount("/categories", categoriesfeature.Routes(categoriesHandler, verifier))

		historyHandler := historyfeature.NewHandler(svc.History, logger)
		api.Mount("/history", historyfeature.Routes(historyHandler, verifier))

		siteConfigHandler := siteconfigfeature.NewHandler(svc.SiteConfig, svc.Recorder, logger)
		api.Mount("/site-config", siteconfigfeature.Routes(siteConfigHandler, verifier))
	})

	return r, nil
}
