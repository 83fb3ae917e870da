package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/traceview/internal/config"
	"github.com/local/traceview/internal/docsource"
	"github.com/local/traceview/internal/generate"
	logpkg "github.com/local/traceview/internal/logger"
	"github.com/local/traceview/internal/metrics"
	"github.com/local/traceview/internal/render"
	"github.com/local/traceview/internal/rendercache"
	"github.com/local/traceview/internal/session"
	"github.com/local/traceview/internal/statuscheck"
	"github.com/local/traceview/internal/trace"
	"github.com/local/traceview/internal/viewer"
)

func main() {
	// Local overrides for development; a missing .env is fine.
	_ = godotenv.Load()

	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	// Document downloads left behind by earlier runs.
	docsource.CleanupTemps(24 * time.Hour)

	// Bundled document: a local path, an http(s) URL or an s3 URI.
	var docPath string
	if cfg.Data.DocumentPath != "" {
		path, cleanup, err := docsource.Resolve(context.Background(), cfg.Data.DocumentPath)
		if err != nil {
			log.Warn().Err(err).Str("ref", cfg.Data.DocumentPath).Msg("bundled document unavailable")
		} else {
			docPath = path
			defer cleanup()
		}
	}

	// Bundled records
	recs, err := trace.Load(cfg.Data.RecordsPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Data.RecordsPath).Msg("bundled records unavailable")
	} else {
		log.Info().Int("records", len(recs)).Str("path", cfg.Data.RecordsPath).Msg("records loaded")
	}

	// Session store
	var sessions session.Store
	if cfg.Session.Backend == "redis" {
		rs, err := session.NewRedisStore(cfg.Session.RedisURL, cfg.Session.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		sessions = rs
	} else {
		sessions = session.NewMemoryStore()
	}
	defer sessions.Close()

	// Renderer and page cache
	renderer := render.New()
	if !renderer.Available() {
		log.Warn().Msg("no rasterization backend in this build; pages fall back to the placeholder")
	}
	cache := rendercache.New(rendercache.Options{
		Renderer:             renderer,
		MaxSizeMB:            cfg.Render.CacheMaxMB,
		MaxConcurrentRenders: cfg.Render.MaxInflight,
	})

	checker := statuscheck.New(statuscheck.Options{
		Sessions:     sessions,
		RendererOK:   renderer.Available,
		RecordsPath:  cfg.Data.RecordsPath,
		DocumentPath: docPath,
	})

	v := viewer.New(viewer.Options{
		Records:      recs,
		DocumentPath: docPath,
		UploadDir:    cfg.Data.UploadDir,
		UploadMaxMB:  cfg.Data.UploadMaxMB,
		Zoom:         cfg.Render.Zoom,
		RendererOK:   renderer.Available,
		Cache:        cache,
		Sessions:     sessions,
		Generator:    generate.Remote{},
		Status:       checker,
	})
	mux := http.NewServeMux()
	v.RegisterRoutes(mux)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on :%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}
