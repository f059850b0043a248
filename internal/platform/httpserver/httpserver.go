package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Write timeout stays generous because the CSV
// export endpoints stream their full result set in one response.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
