package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadlens/internal/api"
	"threadlens/internal/artifact"
	"threadlens/internal/chat"
	"threadlens/internal/config"
	"threadlens/internal/hn"
	"threadlens/internal/llm"
	"threadlens/internal/logger"
	"threadlens/internal/server"
	"threadlens/internal/summarize"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{})
		fallback.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Pretty: cfg.Env == "local",
	})

	trees := hn.NewClient(cfg.HNBaseURL)
	clients := llm.NewFactory(llm.Options{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		RPS:      cfg.LLM.RPS,
		Burst:    cfg.LLM.Burst,
	})

	cache := summarize.NewMemoryCache(cfg.Summary.CacheSize, cfg.Summary.CacheTTL)
	if cfg.Summary.RedisURL != "" {
		origin, err := summarize.NewRedisCache(cfg.Summary.RedisURL, cfg.Summary.CacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("redis cache unavailable, using in-process cache only")
		} else {
			cache = summarize.NewLayeredCache(cache, origin)
			log.Info().Msg("summary cache backed by redis")
		}
	}

	var archive summarize.Archiver
	if cfg.Artifact.CanUseS3() {
		store, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("artifact store unavailable, archiving disabled")
		} else {
			archive = store
			log.Info().Str("bucket", cfg.Artifact.Bucket).Msg("artifact archiving enabled")
		}
	}

	var transcripts *chat.Store
	if cfg.Transcript.PostgresDSN != "" {
		transcripts, err = chat.NewPostgres(cfg.Transcript.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open transcript store")
		}
		log.Info().Msg("transcripts backed by postgres")
	} else {
		transcripts, err = chat.New(cfg.Transcript.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("open transcript store")
		}
		log.Info().Str("path", cfg.Transcript.Path).Msg("transcripts backed by file")
	}
	defer transcripts.Close()

	summaries := summarize.NewService(summarize.ServiceConfig{
		Trees:    trees,
		Clients:  clients,
		Cache:    cache,
		Archive:  archive,
		Log:      log.With().Str("component", "summarize").Logger(),
		MinNodes: cfg.Summary.MinNodes,
		MinDepth: cfg.Summary.MinDepth,
	})
	chats := chat.NewService(chat.ServiceConfig{
		Trees:   trees,
		Clients: clients,
		Store:   transcripts,
		Log:     log.With().Str("component", "chat").Logger(),
	})

	handler := api.NewHandler(summaries, chats, log.With().Str("component", "api").Logger())
	srv := server.New(cfg.Port, api.NewMux(handler), log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}
}
