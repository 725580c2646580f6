package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server. Write timeout is generous because document
// uploads stream multipart bodies of several megabytes.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}
