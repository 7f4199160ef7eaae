package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/askbase/internal/api"
)

// MaxBodyBytes caps request bodies at limit bytes. A declared Content-Length
// over the cap is refused up front with 413; streamed bodies fail on the
// first read past it. A limit <= 0 disables the cap.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		capped := http.MaxBytesHandler(next, limit)
		tooLarge := fmt.Sprintf("request body exceeds %d bytes", limit)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.ContentLength > limit:
				api.Error(w, http.StatusRequestEntityTooLarge, tooLarge)
			case r.Body == nil || r.Body == http.NoBody:
				next.ServeHTTP(w, r)
			default:
				capped.ServeHTTP(w, r)
			}
		})
	}
}
