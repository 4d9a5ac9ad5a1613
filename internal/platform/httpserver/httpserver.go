package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 120 * time.Second
	maxHeaderBytes    = 1 << 20

	// writeMargin is added on top of the handler budget so a timed-out
	// request can still write its error body.
	writeMargin = 5 * time.Second
)

// New builds an HTTP server. handlerBudget is the longest a handler may run;
// the write timeout is derived from it.
func New(addr string, handler http.Handler, handlerBudget time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      handlerBudget + writeMargin,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}
