package httpserver

import (
	"context"
	"net/http"
	"time"
)

// Pinger is checked on every /healthz probe, e.g. *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHealth returns a server answering /healthz, for processes whose real
// work is not HTTP. db may be nil.
func NewHealth(addr string, db Pinger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
