package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"deskrag/internal/adapter/utils"
	"deskrag/internal/config"
	"deskrag/internal/middleware"
	"deskrag/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()

	r.Router.Get("/health", middleware.HealthHandler)

	r.Router.Post("/chat", middleware.ChatHandler)
	r.Router.Post("/retrieve", middleware.RetrieveHandler)

	r.Router.Post("/ingest", middleware.PostIngestHandler)
	r.Router.Get("/status/{id}", middleware.GetStatusHandler)

	r.Router.Get("/documents", middleware.ListDocumentsHandler)
	r.Router.Get("/documents/{id}/chunks", middleware.ListChunksHandler)
	r.Router.Delete("/documents/{id}", middleware.DeleteDocumentHandler)

	r.Router.Post("/sessions", middleware.CreateSessionHandler)
	r.Router.Get("/sessions/{id}", middleware.GetSessionHandler)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully: %s", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
