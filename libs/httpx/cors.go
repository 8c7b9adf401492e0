package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
)

// CORSPolicy defines which browser origins may call the API.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// WithCORS adds CORS handling. If AllowedOrigins is empty, it is a no-op.
func WithCORS(cfg CORSPolicy) Middleware {
	origins := normalizeList(cfg.AllowedOrigins)
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := []handlers.CORSOption{handlers.AllowedOrigins(origins)}
	if methods := normalizeList(cfg.AllowedMethods); len(methods) > 0 {
		opts = append(opts, handlers.AllowedMethods(methods))
	}
	if headers := normalizeList(cfg.AllowedHeaders); len(headers) > 0 {
		opts = append(opts, handlers.AllowedHeaders(headers))
	}
	if cfg.AllowCredentials {
		opts = append(opts, handlers.AllowCredentials())
	}
	if cfg.MaxAge > 0 {
		opts = append(opts, handlers.MaxAge(int(cfg.MaxAge.Seconds())))
	}
	return handlers.CORS(opts...)
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
