package infra

import (
	"net/http"
	"time"
)

// NewHTTPServer builds the API server with the configured timeouts. The
// write timeout has to cover archive downloads, which stream every output
// blob of a project in a single response, so it is configured separately
// from the read side.
func NewHTTPServer(cfg *Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}
}
