package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-wall/internal/engine"
	"video-wall/internal/platform/config"
	"video-wall/internal/platform/logger"
	"video-wall/internal/platform/metrics"
	"video-wall/internal/platform/ratelimit"
	"video-wall/internal/wall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	wallPath := config.GetEnv("WALL_CONFIG", "wall.yaml")
	rateRPS := config.GetEnvFloat("RATE_LIMIT_RPS", 0)
	rateBurst := config.GetEnvInt("RATE_LIMIT_BURST", 20)

	log := logger.New(logLevel, logFormat)

	wallCfg, err := config.LoadWall(wallPath)
	if err != nil {
		log.Error("load wall config", "path", wallPath, "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	eng := engine.New(engine.Config{
		HandshakeTimeout: wallCfg.Engine.HandshakeTimeout,
		ReleaseTimeout:   wallCfg.Engine.ReleaseTimeout,
		ReadBufferSize:   wallCfg.Engine.ReadBufferSize,
	}, log.With(slog.String("component", "engine")))

	slotCounts := make([]wall.SlotCount, 0, len(wallCfg.SlotCounts))
	for _, n := range wallCfg.SlotCounts {
		slotCounts = append(slotCounts, wall.SlotCount(n))
	}
	vw, err := wall.New(eng, wall.Options{
		SlotCounts:       slotCounts,
		DefaultSlotCount: wall.SlotCount(wallCfg.DefaultSlotCount),
		TransportHint:    wallCfg.TransportHint,
		ViewerBuffer:     wallCfg.ViewerBuffer,
		Logger:           log.With(slog.String("component", "wall")),
		Metrics:          met,
	})
	if err != nil {
		log.Error("create wall", "error", err)
		os.Exit(1)
	}
	defer vw.Close()

	if len(wallCfg.Streams) > 0 {
		initial := make([]wall.StreamAddress, 0, len(wallCfg.Streams))
		for _, s := range wallCfg.Streams {
			initial = append(initial, wall.StreamAddress(s))
		}
		for _, res := range vw.AddStream(initial...) {
			if res.Err != nil {
				log.Warn("initial stream not started", "slot", res.Slot, "address", res.Address, "error", res.Err)
			}
		}
	}

	h := wall.NewHandler(vw, log, met)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			met.SetActiveSessions(vw.ActiveSessions())
			met.SetSlotCount(int(vw.SlotCount()))
		}).ServeHTTP(w, r)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/wall", func(r chi.Router) {
		r.Use(ratelimit.Middleware(rateRPS, rateBurst))
		h.Routes(r)
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"slot_count", int(vw.SlotCount()),
		"initial_streams", len(wallCfg.Streams),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, releasing sessions")

	// Closing the wall ends every slot relay so Shutdown does not wait on viewers.
	vw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
