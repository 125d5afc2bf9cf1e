package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"vocab-ai/internal/api"
	"vocab-ai/internal/config"
	"vocab-ai/internal/db"
	"vocab-ai/internal/logger"
	"vocab-ai/internal/metrics"
	"vocab-ai/internal/services"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}
	defer logger.Close()
	metrics.Init()

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database).Msg("open database")
	}
	defer conn.Close()

	lessonService := services.NewLessonService(conn)
	if n, err := lessonService.SeedDefaults(context.Background()); err != nil {
		log.Warn().Err(err).Msg("seeding default lessons failed")
	} else if n > 0 {
		log.Info().Int("lessons", n).Msg("seeded default lessons")
	}

	providers, err := services.NewProviderFactory(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("configure model provider")
	}
	vocabService := services.NewVocabService(providers, cfg.Vocab)
	ingestionService := services.NewIngestionService(services.NewExtractor(), vocabService, cfg.Vocab.MinTextLength)

	server := api.NewServer(ingestionService, lessonService, providers, api.Options{
		DefaultAPIKey: cfg.APIKey(),
		MaxUploadMB:   cfg.MaxUploadMB,
	})
	mux := http.NewServeMux()
	mux.Handle("/api", server.Handler())
	mux.Handle("/api/", server.Handler())
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("provider", cfg.Provider).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
