package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/acolella/voxpop/app"
	"github.com/acolella/voxpop/config"
	"github.com/acolella/voxpop/database"
	"github.com/acolella/voxpop/httpx"
	"github.com/acolella/voxpop/log"
	"github.com/acolella/voxpop/routes"
	"github.com/acolella/voxpop/sentiment"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	bearerServer := httpx.NewBearerServer(db, cfg)
	analyzer := sentiment.NewAnalyzer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
		Analyzer:     analyzer,
	}

	if cfg.AnalysisEvery > 0 {
		if !analyzer.Enabled() {
			log.Warn("main.analysis: schedule requested but no provider configured")
		} else {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go analyzer.RunEvery(ctx, cfg.AnalysisEvery)
		}
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
