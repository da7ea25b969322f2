package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Server runs the API as a background worker.
type Server struct {
	http *http.Server
}

func NewServer(port string, engine *gin.Engine) *Server {
	return &Server{http: &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func (s *Server) Name() string { return "api" }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
