package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// requestLoggingMiddleware logs every HTTP request at completion.
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// responseTimeMiddleware stamps every response with the wall time spent
// handling it so far, as of the first byte written. The header must be set
// before headers are flushed, so it cannot reflect a streaming handler's
// full duration — only the time up to the first write.
func responseTimeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(&timedResponseWriter{ResponseWriter: w, start: start}, r)
	})
}

type timedResponseWriter struct {
	http.ResponseWriter
	start      time.Time
	headerSent bool
}

func (w *timedResponseWriter) stampHeader() {
	if !w.headerSent {
		w.Header().Set("X-Response-Time", fmt.Sprintf("%d", time.Since(w.start).Milliseconds()))
		w.headerSent = true
	}
}

func (w *timedResponseWriter) WriteHeader(status int) {
	w.stampHeader()
	w.ResponseWriter.WriteHeader(status)
}

func (w *timedResponseWriter) Write(b []byte) (int, error) {
	w.stampHeader()
	return w.ResponseWriter.Write(b)
}

func (w *timedResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// corsMiddleware handles CORS headers and preflight requests.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 {
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
