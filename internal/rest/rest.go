package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/segfal/whiteboard/internal/rest/ws"
)

type Rest struct {
	config *Config

	server *http.Server
	done   chan struct{}
}

func NewRest(config *Config) *Rest {
	return &Rest{
		config: config,
		done:   make(chan struct{}),
	}
}

func (rest *Rest) Start() {
	router := chi.NewRouter()

	// Define the /ping endpoint
	router.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write([]byte("pong"))
		if err != nil {
			return
		}
	})

	// Define the /ws endpoint
	limiter := ws.NewIPRateLimit()
	go rest.cleanupLoop(limiter)

	wsHandler := ws.NewWebSocketHandler(
		rest.config.Relay,
		rest.config.AllowedOrigins,
		limiter,
		rest.config.Logger,
	)
	router.HandleFunc("/ws", wsHandler.Handle)

	rest.server = &http.Server{
		Addr:              ":" + strconv.Itoa(rest.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 0,
	}
	if err := rest.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		rest.config.Logger.Error("server error", zap.Error(err))
		return
	}
}

func (rest *Rest) Stop() {
	close(rest.done)
	if rest.server == nil {
		return
	}
	if err := rest.server.Shutdown(context.Background()); err != nil {
		rest.config.Logger.Error("server error", zap.Error(err))
	}
}

func (rest *Rest) cleanupLoop(limiter *ws.IPRateLimit) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rest.done:
			return
		case <-ticker.C:
			limiter.Cleanup()
		}
	}
}
